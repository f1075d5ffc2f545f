package models

import "time"

// ListingType is the extract type a listing was delivered in
type ListingType string

const (
	ListingTypeSingleFamily ListingType = "singlefamily"
	ListingTypeMultiFamily  ListingType = "multifamily"
	ListingTypeCondo        ListingType = "condo"
)

// ListingTypes is the order extracts are processed in
var ListingTypes = []ListingType{
	ListingTypeSingleFamily,
	ListingTypeMultiFamily,
	ListingTypeCondo,
}

// Valid reports whether t is one of the known extract types
func (t ListingType) Valid() bool {
	for _, known := range ListingTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Sort buckets, highest display priority first. BucketMedia is never
// computed here; it is implied by the videos column owned by another writer.
const (
	BucketOpenHouseSoon = "70-"
	BucketMedia         = "60-"
	BucketVirtualTour   = "50-"
	BucketDefault       = "20-"
)

// Listing is the canonical record reconciled into the listings table.
// Every field except ListingID is replaced wholesale on each sync.
type Listing struct {
	ListingID     string             `json:"listing_id" db:"listing_id"`
	Type          ListingType        `json:"type" db:"type"`
	AgentID       *string            `json:"agent_id" db:"agent_id"`
	Beds          *int               `json:"beds" db:"beds"`
	BathsFull     *int               `json:"baths_full" db:"baths_full"`
	BathsHalf     *int               `json:"baths_half" db:"baths_half"`
	Facts         Facts              `json:"facts" db:"facts"`
	Hashtags      []string           `json:"hashtags" db:"hashtags"`
	OpenHouses    []OpenHouseEvent   `json:"idx_open_houses" db:"idx_open_houses"`
	VirtualTours  []VirtualTourEvent `json:"idx_virtual_tours" db:"idx_virtual_tours"`
	OpenHouseSoon bool               `json:"open_house_soon" db:"open_house_soon"`
	Pictures      []string           `json:"pictures" db:"pictures"`
	Price         float64            `json:"price" db:"price"`
	Remarks       string             `json:"remarks" db:"remarks"`
	SortID        string             `json:"sort_id" db:"sort_id"`
	SqFt          *float64           `json:"sqft" db:"sqft"`
	Status        string             `json:"status" db:"status"`
	StreetName    string             `json:"street_name" db:"street_name"`
	StreetNo      string             `json:"street_no" db:"street_no"`
	Zip           string             `json:"zip" db:"zip"`
	LastUpdated   time.Time          `json:"last_updated" db:"last_updated"`
}

// Facts holds the named attributes shown on a listing's fact sheet.
// A nil value means the column was absent from the extract.
type Facts map[string]*string

// Fact sheet keys
const (
	FactAcre          = "Acre"
	FactArea          = "Area"
	FactBasement      = "Basement"
	FactFloors        = "Floors"
	FactGarageParking = "Garage Parking"
	FactGarageSpaces  = "Garage Spaces"
	FactLotSize       = "Lot Size"
	FactNeighborhood  = "Neighborhood"
	FactSqFt          = "Sq Ft"
	FactStatus        = "Status"
	FactStyle         = "Style"
	FactTaxes         = "Taxes"
	FactUnits         = "Units"
	FactYearBuilt     = "Year Built"
)
