package extract

import "idx_sync/models"

// ListingRow decodes a listing-type extract record, resolving the columns
// whose names differ between single-family, multi-family and condo drops.
func ListingRow(r Record) models.RawRow {
	return models.RawRow{
		ListNo:     r.Lookup("LIST_NO"),
		ListAgent:  r.Lookup("LIST_AGENT"),
		BathsFull:  r.Lookup("NO_FULL_BATHS", "TOTAL_FULL_BATHS"),
		BathsHalf:  r.Lookup("NO_HALF_BATHS", "TOTAL_HALF_BATHS"),
		Bedrooms:   r.Lookup("NO_BEDROOMS", "TOTAL_BRS"),
		ListPrice:  r.Lookup("LIST_PRICE"),
		Remarks:    r.Lookup("REMARKS"),
		PhotoCount: r.Lookup("PHOTO_COUNT"),
		SquareFeet: r.Lookup("SQUARE_FEET"),
		Status:     r.Lookup("STATUS"),
		StreetName: r.Lookup("STREET_NAME"),
		StreetNo:   r.Lookup("STREET_NO"),
		ZipCode:    r.Lookup("ZIP_CODE"),
		Style:      r.Lookup("STYLE"),

		Acre:          r.Lookup("ACRE"),
		Area:          r.Lookup("AREA"),
		Basement:      r.Lookup("BASEMENT"),
		Floors:        r.Lookup("NO_FLOORS"),
		GarageParking: r.Lookup("GARAGE_PARKING"),
		GarageSpaces:  r.Lookup("GARAGE_SPACES"),
		LotSize:       r.Lookup("LOT_SIZE"),
		Neighborhood:  r.Lookup("NEIGHBORHOOD"),
		Taxes:         r.Lookup("TAXES"),
		Units:         r.Lookup("NO_UNITS"),
		YearBuilt:     r.Lookup("YEAR_BUILT"),
	}
}

func OpenHouseRow(r Record) models.OpenHouseRow {
	return models.OpenHouseRow{
		ListNo:    r.Lookup("LIST_NO"),
		StartDate: r.Lookup("START_DATE"),
		EndDate:   r.Lookup("END_DATE"),
		URL:       r.Lookup("VIRTUALEVENTURL"),
		EventType: r.Lookup("EVENTTYPEDESCRIPTION"),
	}
}

func VirtualTourRow(r Record) models.VirtualTourRow {
	return models.VirtualTourRow{
		ListNo: r.Lookup("LIST_NO"),
		URL:    r.Lookup("TOUR_URL"),
	}
}

// ReadListings reads and decodes a listing-type extract
func ReadListings(path string) ([]models.RawRow, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows := make([]models.RawRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ListingRow(rec))
	}
	return rows, nil
}

// ReadOpenHouses reads and decodes the open house reference extract
func ReadOpenHouses(path string) ([]models.OpenHouseRow, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows := make([]models.OpenHouseRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, OpenHouseRow(rec))
	}
	return rows, nil
}

// ReadVirtualTours reads and decodes the virtual tour reference extract
func ReadVirtualTours(path string) ([]models.VirtualTourRow, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows := make([]models.VirtualTourRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, VirtualTourRow(rec))
	}
	return rows, nil
}
