package models

import "time"

// EventType classifies entries in a trip's significant-event log.
type EventType string

const (
	EventViolationStart EventType = "violation_start"
	EventViolationEnd   EventType = "violation_end"
	EventLocationEntry  EventType = "location_entry"
	EventLocationExit   EventType = "location_exit"
	EventReverseTravel  EventType = "reverse_travel"
	EventTripCompleted  EventType = "trip_completed"
)

// SignificantEvent is one append-only entry in a trip's event log. A
// violation episode is opened by a violation_start event and closed by a
// violation_end event carrying the same rule name and a non-nil
// EventEndTime.
type SignificantEvent struct {
	Type           EventType    `bson:"type" json:"type"`
	RuleName       string       `bson:"rule_name,omitempty" json:"rule_name,omitempty"`
	LocationName   string       `bson:"location_name,omitempty" json:"location_name,omitempty"`
	EventStartTime time.Time    `bson:"event_start_time" json:"event_start_time"`
	EventEndTime   *time.Time   `bson:"event_end_time,omitempty" json:"event_end_time,omitempty"`
	Distance       float64      `bson:"distance,omitempty" json:"distance,omitempty"` // km accumulated over the episode
	Path           []Coordinate `bson:"path,omitempty" json:"path,omitempty"`
	Detail         string       `bson:"detail,omitempty" json:"detail,omitempty"`
}
