// Package transform maps raw extract rows to canonical listings.
package transform

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"idx_sync/models"
	"idx_sync/reference"
)

// RunContext is the data computed once per run and shared read-only by every
// worker. Nothing in it is mutated after construction.
type RunContext struct {
	Now           time.Time
	OpenHouses    *reference.OpenHouseIndex
	Tours         *reference.VirtualTourIndex
	Vocabulary    *Vocabulary
	PhotoTemplate string
	StyleCodes    map[string]string
}

// Transform builds the canonical listing for row. It never touches the store
// and returns a *models.MalformedRecordError when a required field is absent
// or unparseable.
func Transform(row models.RawRow, t models.ListingType, rc *RunContext) (*models.Listing, error) {
	id := strings.TrimSpace(deref(row.ListNo))
	if id == "" {
		return nil, &models.MalformedRecordError{Field: "LIST_NO", Reason: "missing"}
	}
	malformed := func(field, reason string) error {
		return &models.MalformedRecordError{ListingID: id, Field: field, Reason: reason}
	}

	if row.ListPrice == nil {
		return nil, malformed("LIST_PRICE", "missing")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(*row.ListPrice), 64)
	if err != nil {
		return nil, malformed("LIST_PRICE", "not a number")
	}

	for _, req := range []struct {
		field string
		value *string
	}{
		{"REMARKS", row.Remarks},
		{"STATUS", row.Status},
		{"STREET_NAME", row.StreetName},
		{"STREET_NO", row.StreetNo},
	} {
		if req.value == nil {
			return nil, malformed(req.field, "missing")
		}
	}

	zip := strings.TrimSpace(deref(row.ZipCode))
	if zip == "" {
		return nil, malformed("ZIP_CODE", "missing")
	}

	if row.PhotoCount == nil {
		return nil, malformed("PHOTO_COUNT", "missing")
	}
	photos, err := strconv.Atoi(strings.TrimSpace(*row.PhotoCount))
	if err != nil || photos < 0 {
		return nil, malformed("PHOTO_COUNT", "not a non-negative integer")
	}

	beds := parseCount(row.Bedrooms)
	bathsFull := parseCount(row.BathsFull)

	openHouses := rc.OpenHouses.Get(id)
	tours := rc.Tours.Get(id)
	soon := len(openHouses) > 0 && openHouses[0].OpenHouseSoon

	return &models.Listing{
		ListingID:     id,
		Type:          t,
		AgentID:       row.ListAgent,
		Beds:          beds,
		BathsFull:     bathsFull,
		BathsHalf:     parseCount(row.BathsHalf),
		Facts:         buildFacts(row, rc.StyleCodes),
		Hashtags:      Hashtags(rc.Vocabulary, t, beds, bathsFull, *row.Remarks),
		OpenHouses:    openHouses,
		VirtualTours:  tours,
		OpenHouseSoon: soon,
		Pictures:      pictureURLs(rc.PhotoTemplate, id, photos),
		Price:         price,
		Remarks:       *row.Remarks,
		SortID:        sortID(id, soon, len(tours) > 0),
		SqFt:          parseAmount(row.SquareFeet),
		Status:        *row.Status,
		StreetName:    *row.StreetName,
		StreetNo:      *row.StreetNo,
		Zip:           padZip(zip),
		LastUpdated:   rc.Now,
	}, nil
}

func sortID(id string, openHouseSoon, hasTour bool) string {
	switch {
	case openHouseSoon:
		return models.BucketOpenHouseSoon + id
	case hasTour:
		return models.BucketVirtualTour + id
	default:
		return models.BucketDefault + id
	}
}

func pictureURLs(template, id string, count int) []string {
	pictures := make([]string, 0, count)
	withID := strings.ReplaceAll(template, "{id}", url.QueryEscape(id))
	for n := range count {
		pictures = append(pictures, strings.ReplaceAll(withID, "{n}", strconv.Itoa(n)))
	}
	return pictures
}

func buildFacts(row models.RawRow, styles map[string]string) models.Facts {
	var style *string
	if row.Style != nil {
		if name, ok := styles[*row.Style]; ok {
			style = &name
		}
	}

	return models.Facts{
		models.FactAcre:          row.Acre,
		models.FactArea:          row.Area,
		models.FactBasement:      row.Basement,
		models.FactFloors:        row.Floors,
		models.FactGarageParking: row.GarageParking,
		models.FactGarageSpaces:  row.GarageSpaces,
		models.FactLotSize:       row.LotSize,
		models.FactNeighborhood:  row.Neighborhood,
		models.FactSqFt:          row.SquareFeet,
		models.FactStatus:        row.Status,
		models.FactStyle:         style,
		models.FactTaxes:         row.Taxes,
		models.FactUnits:         row.Units,
		models.FactYearBuilt:     row.YearBuilt,
	}
}

func padZip(zip string) string {
	if len(zip) >= 5 {
		return zip
	}
	return strings.Repeat("0", 5-len(zip)) + zip
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
