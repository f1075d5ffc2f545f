// Package reference builds the per-run lookups of virtual open houses and
// virtual tours that listing rows are enriched with.
package reference

import (
	"slices"
	"strings"
	"time"

	"idx_sync/models"
)

// Reasons an event is left out of an index
const (
	RejectMissingField = "missing_field"
	RejectNotVirtual   = "not_virtual"
	RejectURL          = "url_not_allowed"
	RejectTimestamp    = "bad_timestamp"
)

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"01/02/2006",
}

// Builder turns raw reference rows into indices. It is a pure function of
// its inputs given a fixed Now.
type Builder struct {
	Allow     *AllowList
	Now       time.Time
	Lookahead time.Duration
	Location  *time.Location
}

// OpenHouseIndex maps listing id to its virtual open houses. Events that do
// not end soon sort first, then the ones that do, each group by start time.
// That puts an imminent event first only when every event of the listing is
// imminent; it is a display ordering, not a chronological one.
type OpenHouseIndex struct {
	events   map[string][]models.OpenHouseEvent
	rejected map[string]int
}

// Get returns a copy of the listing's events, or nil
func (x *OpenHouseIndex) Get(listingID string) []models.OpenHouseEvent {
	if x == nil {
		return nil
	}
	return slices.Clone(x.events[listingID])
}

func (x *OpenHouseIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.events)
}

// Rejected counts dropped rows by reason
func (x *OpenHouseIndex) Rejected() map[string]int {
	if x == nil {
		return nil
	}
	return cloneCounts(x.rejected)
}

// VirtualTourIndex maps listing id to its tour links in extract order
type VirtualTourIndex struct {
	tours    map[string][]models.VirtualTourEvent
	rejected map[string]int
}

func (x *VirtualTourIndex) Get(listingID string) []models.VirtualTourEvent {
	if x == nil {
		return nil
	}
	return slices.Clone(x.tours[listingID])
}

func (x *VirtualTourIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.tours)
}

func (x *VirtualTourIndex) Rejected() map[string]int {
	if x == nil {
		return nil
	}
	return cloneCounts(x.rejected)
}

// OpenHouses indexes the virtual open houses that carry a start, an end and
// an allowed URL.
func (b *Builder) OpenHouses(rows []models.OpenHouseRow) *OpenHouseIndex {
	idx := &OpenHouseIndex{
		events:   make(map[string][]models.OpenHouseEvent),
		rejected: make(map[string]int),
	}
	horizon := b.Now.Add(b.Lookahead)

	for _, row := range rows {
		listNo := trimmed(row.ListNo)
		rawURL := trimmed(row.URL)
		startRaw := trimmed(row.StartDate)
		endRaw := trimmed(row.EndDate)
		if listNo == "" || rawURL == "" || startRaw == "" || endRaw == "" {
			idx.rejected[RejectMissingField]++
			continue
		}
		if strings.ToLower(trimmed(row.EventType)) != models.EventTypeVirtual {
			idx.rejected[RejectNotVirtual]++
			continue
		}
		if !b.Allow.Allowed(rawURL) {
			idx.rejected[RejectURL]++
			continue
		}

		start, okStart := b.parseTime(startRaw)
		end, okEnd := b.parseTime(endRaw)
		if !okStart || !okEnd {
			idx.rejected[RejectTimestamp]++
			continue
		}

		idx.events[listNo] = append(idx.events[listNo], models.OpenHouseEvent{
			EndDateTime:   endRaw,
			OpenHouseSoon: !end.Before(b.Now) && end.Before(horizon),
			StartDateTime: startRaw,
			Type:          models.EventTypeVirtual,
			URL:           rawURL,
			Start:         start,
			End:           end,
		})
	}

	for _, events := range idx.events {
		slices.SortStableFunc(events, compareDisplayOrder)
	}
	return idx
}

// VirtualTours indexes the tours whose URL is on the allow-list
func (b *Builder) VirtualTours(rows []models.VirtualTourRow) *VirtualTourIndex {
	idx := &VirtualTourIndex{
		tours:    make(map[string][]models.VirtualTourEvent),
		rejected: make(map[string]int),
	}

	for _, row := range rows {
		listNo := trimmed(row.ListNo)
		rawURL := trimmed(row.URL)
		if listNo == "" || rawURL == "" {
			idx.rejected[RejectMissingField]++
			continue
		}
		if !b.Allow.Allowed(rawURL) {
			idx.rejected[RejectURL]++
			continue
		}
		idx.tours[listNo] = append(idx.tours[listNo], models.VirtualTourEvent{URL: rawURL})
	}
	return idx
}

func compareDisplayOrder(a, b models.OpenHouseEvent) int {
	if a.OpenHouseSoon != b.OpenHouseSoon {
		if a.OpenHouseSoon {
			return 1
		}
		return -1
	}
	return a.Start.Compare(b.Start)
}

func (b *Builder) parseTime(s string) (time.Time, bool) {
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
