package reference

import (
	"testing"
	"time"

	"idx_sync/models"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func str(s string) *string { return &s }

func newBuilder() *Builder {
	return &Builder{
		Allow:     NewAllowList([]string{"facebook.com", "fb.com", "matterport.com", "youtu", "zoom.us"}),
		Now:       testNow,
		Lookahead: 7 * 24 * time.Hour,
		Location:  time.UTC,
	}
}

func openHouse(listNo, start, end, url, kind string) models.OpenHouseRow {
	return models.OpenHouseRow{
		ListNo:    str(listNo),
		StartDate: str(start),
		EndDate:   str(end),
		URL:       str(url),
		EventType: str(kind),
	}
}

func TestAllowList(t *testing.T) {
	allow := NewAllowList([]string{"facebook.com", "fb.com", "matterport.com", "youtu", "zoom.us"})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"https://us02web.zoom.us/j/123", true},
		{"https://my.matterport.com/show/?m=x", true},
		{"www.facebook.com/events/1", true},
		{"https://vimeo.com/123", false},
		{"https://evil.example.com/?next=youtube.com", false},
		{"ftp://youtube.com/file", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := allow.Allowed(tt.url); got != tt.want {
			t.Fatalf("Allowed(%q): expected %v, got %v", tt.url, tt.want, got)
		}
	}
}

func TestOpenHouses_Filters(t *testing.T) {
	b := newBuilder()
	rows := []models.OpenHouseRow{
		openHouse("1", "2024-05-02T10:00:00", "2024-05-02T11:00:00", "https://zoom.us/j/1", "Virtual"),
		openHouse("2", "2024-05-02T10:00:00", "2024-05-02T11:00:00", "https://zoom.us/j/2", "In Person"),
		openHouse("3", "2024-05-02T10:00:00", "2024-05-02T11:00:00", "https://vimeo.com/3", "virtual"),
		openHouse("4", "", "2024-05-02T11:00:00", "https://zoom.us/j/4", "virtual"),
		openHouse("5", "2024-05-02T10:00:00", "", "https://zoom.us/j/5", "virtual"),
		openHouse("6", "2024-05-02T10:00:00", "2024-05-02T11:00:00", "", "virtual"),
		openHouse("7", "soon", "later", "https://zoom.us/j/7", "virtual"),
		{ListNo: str("8"), StartDate: str("2024-05-02T10:00:00"), EndDate: str("2024-05-02T11:00:00"), URL: str("https://zoom.us/j/8")},
	}

	idx := b.OpenHouses(rows)
	if idx.Len() != 1 {
		t.Fatalf("expected 1 listing indexed, got %d", idx.Len())
	}
	events := idx.Get("1")
	if len(events) != 1 {
		t.Fatalf("expected 1 event for listing 1, got %d", len(events))
	}
	if events[0].Type != models.EventTypeVirtual || events[0].URL != "https://zoom.us/j/1" {
		t.Fatalf("unexpected event %+v", events[0])
	}

	rejected := idx.Rejected()
	if rejected[RejectNotVirtual] != 2 {
		t.Fatalf("expected 2 non-virtual rejections, got %d", rejected[RejectNotVirtual])
	}
	if rejected[RejectURL] != 1 {
		t.Fatalf("expected 1 URL rejection, got %d", rejected[RejectURL])
	}
	if rejected[RejectMissingField] != 3 {
		t.Fatalf("expected 3 missing field rejections, got %d", rejected[RejectMissingField])
	}
	if rejected[RejectTimestamp] != 1 {
		t.Fatalf("expected 1 timestamp rejection, got %d", rejected[RejectTimestamp])
	}
}

func TestOpenHouses_ImminentWindow(t *testing.T) {
	b := newBuilder()
	rows := []models.OpenHouseRow{
		openHouse("past", "2024-04-30T10:00:00", "2024-04-30T11:00:00", "https://zoom.us/j/1", "virtual"),
		openHouse("edge", "2024-05-01T11:00:00", "2024-05-01T12:00:00", "https://zoom.us/j/2", "virtual"),
		openHouse("soon", "2024-05-04T10:00:00", "2024-05-04T11:00:00", "https://zoom.us/j/3", "virtual"),
		openHouse("horizon", "2024-05-08T11:00:00", "2024-05-08T12:00:00", "https://zoom.us/j/4", "virtual"),
		openHouse("far", "2024-06-01T10:00:00", "2024-06-01T11:00:00", "https://zoom.us/j/5", "virtual"),
	}
	idx := b.OpenHouses(rows)

	want := map[string]bool{
		"past":    false,
		"edge":    true,
		"soon":    true,
		"horizon": false,
		"far":     false,
	}
	for id, soon := range want {
		events := idx.Get(id)
		if len(events) != 1 {
			t.Fatalf("%s: expected 1 event, got %d", id, len(events))
		}
		if events[0].OpenHouseSoon != soon {
			t.Fatalf("%s: expected openHouseSoon %v, got %v", id, soon, events[0].OpenHouseSoon)
		}
	}
}

func TestOpenHouses_DisplayOrder(t *testing.T) {
	rows := []models.OpenHouseRow{
		openHouse("9", "2024-05-03T10:00:00", "2024-05-03T11:00:00", "https://zoom.us/j/soon-late", "virtual"),
		openHouse("9", "2024-06-10T10:00:00", "2024-06-10T11:00:00", "https://zoom.us/j/far-late", "virtual"),
		openHouse("9", "2024-05-02T10:00:00", "2024-05-02T11:00:00", "https://zoom.us/j/soon-early", "virtual"),
		openHouse("9", "2024-06-01T10:00:00", "2024-06-01T11:00:00", "https://zoom.us/j/far-early", "virtual"),
	}
	events := newBuilder().OpenHouses(rows).Get("9")

	order := []string{
		"https://zoom.us/j/far-early",
		"https://zoom.us/j/far-late",
		"https://zoom.us/j/soon-early",
		"https://zoom.us/j/soon-late",
	}
	if len(events) != len(order) {
		t.Fatalf("expected %d events, got %d", len(order), len(events))
	}
	for i, url := range order {
		if events[i].URL != url {
			t.Fatalf("position %d: expected %s, got %s", i, url, events[i].URL)
		}
	}
}

func TestOpenHouses_GetReturnsCopy(t *testing.T) {
	idx := newBuilder().OpenHouses([]models.OpenHouseRow{
		openHouse("1", "2024-05-02T10:00:00", "2024-05-02T11:00:00", "https://zoom.us/j/1", "virtual"),
	})

	events := idx.Get("1")
	events[0].URL = "mutated"
	if idx.Get("1")[0].URL != "https://zoom.us/j/1" {
		t.Fatalf("index was mutated through Get")
	}
	if idx.Get("missing") != nil {
		t.Fatalf("expected nil for unknown listing")
	}
}

func TestVirtualTours(t *testing.T) {
	idx := newBuilder().VirtualTours([]models.VirtualTourRow{
		{ListNo: str(" 123 "), URL: str(" https://my.matterport.com/show/?m=a ")},
		{ListNo: str("123"), URL: str("https://youtu.be/b")},
		{ListNo: str("456"), URL: str("https://vimeo.com/c")},
		{ListNo: str("789")},
	})

	tours := idx.Get("123")
	if len(tours) != 2 {
		t.Fatalf("expected 2 tours, got %d", len(tours))
	}
	if tours[0].URL != "https://my.matterport.com/show/?m=a" {
		t.Fatalf("expected trimmed URL, got %q", tours[0].URL)
	}
	if idx.Get("456") != nil {
		t.Fatalf("expected disallowed tour to be dropped")
	}
	if idx.Rejected()[RejectMissingField] != 1 {
		t.Fatalf("expected 1 missing field rejection, got %d", idx.Rejected()[RejectMissingField])
	}
}
