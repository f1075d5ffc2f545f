package models

// RawRow is one listing row of a listing-type extract. Each field is nil
// when none of the columns it resolves from appear in the extract header.
type RawRow struct {
	ListNo     *string // LIST_NO
	ListAgent  *string // LIST_AGENT
	BathsFull  *string // NO_FULL_BATHS, then TOTAL_FULL_BATHS
	BathsHalf  *string // NO_HALF_BATHS, then TOTAL_HALF_BATHS
	Bedrooms   *string // NO_BEDROOMS, then TOTAL_BRS
	ListPrice  *string // LIST_PRICE
	Remarks    *string // REMARKS
	PhotoCount *string // PHOTO_COUNT
	SquareFeet *string // SQUARE_FEET
	Status     *string // STATUS
	StreetName *string // STREET_NAME
	StreetNo   *string // STREET_NO
	ZipCode    *string // ZIP_CODE
	Style      *string // STYLE

	Acre          *string // ACRE
	Area          *string // AREA
	Basement      *string // BASEMENT
	Floors        *string // NO_FLOORS
	GarageParking *string // GARAGE_PARKING
	GarageSpaces  *string // GARAGE_SPACES
	LotSize       *string // LOT_SIZE
	Neighborhood  *string // NEIGHBORHOOD
	Taxes         *string // TAXES
	Units         *string // NO_UNITS
	YearBuilt     *string // YEAR_BUILT
}

// OpenHouseRow is one row of the open house reference extract
type OpenHouseRow struct {
	ListNo    *string // LIST_NO
	StartDate *string // START_DATE
	EndDate   *string // END_DATE
	URL       *string // VIRTUALEVENTURL
	EventType *string // EVENTTYPEDESCRIPTION
}

// VirtualTourRow is one row of the virtual tour reference extract
type VirtualTourRow struct {
	ListNo *string // LIST_NO
	URL    *string // TOUR_URL
}
