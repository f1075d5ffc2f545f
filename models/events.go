package models

import "time"

// EventTypeVirtual is the only open house event type kept in the index
const EventTypeVirtual = "virtual"

// OpenHouseEvent is a scheduled virtual open house for a listing
type OpenHouseEvent struct {
	EndDateTime   string    `json:"endDateTime"`
	OpenHouseSoon bool      `json:"openHouseSoon"`
	StartDateTime string    `json:"startDateTime"`
	Type          string    `json:"type"`
	URL           string    `json:"url"`
	Start         time.Time `json:"-"`
	End           time.Time `json:"-"`
}

// VirtualTourEvent is a virtual tour link for a listing
type VirtualTourEvent struct {
	URL string `json:"url"`
}
