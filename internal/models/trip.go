package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// TripStage is the top-level trip lifecycle state.
type TripStage string

const (
	StagePlanned      TripStage = "Planned"
	StageStartDelayed TripStage = "Start Delayed"
	StageActive       TripStage = "Active"
	StageCompleted    TripStage = "Completed"
)

// MovementStatus is the halted/driving classification of the vehicle.
type MovementStatus string

const (
	MovementDriving MovementStatus = "Driving"
	MovementHalted  MovementStatus = "Halted"
	MovementUnknown MovementStatus = "Unknown"
)

// TripType selects the ingestion mode for a trip.
type TripType string

const (
	TripLive       TripType = "live"       // drain the transient device buffer each cycle
	TripHistorical TripType = "historical" // replay a bounded past range chunk by chunk
)

// TravelDirection is the inferred direction of travel along the route.
type TravelDirection string

const (
	DirectionForward TravelDirection = "forward"
	DirectionReverse TravelDirection = "reverse"
)

// SegmentState is the lifecycle of a segment traversal.
type SegmentState string

const (
	SegmentPending   SegmentState = "pending"
	SegmentRunning   SegmentState = "running"
	SegmentCompleted SegmentState = "completed"
)

// SignificantLocationRecord is one visit to a significant location.
// Created on entry; ExitTime and DwellTime are set on exit, after which
// the record is immutable.
type SignificantLocationRecord struct {
	LocationName string       `bson:"location_name" json:"location_name"`
	LocationType LocationType `bson:"location_type" json:"location_type"`
	EntryTime    time.Time    `bson:"entry_time" json:"entry_time"`
	ExitTime     *time.Time   `bson:"exit_time,omitempty" json:"exit_time,omitempty"`
	DwellTime    float64      `bson:"dwell_time" json:"dwell_time"` // minutes
}

// SegmentRecord is one completed (or in-progress) traversal of a route
// segment, appended to the trip's segment history when the traversal
// finishes.
type SegmentRecord struct {
	SegmentIndex  int          `bson:"segment_index" json:"segment_index"`
	State         SegmentState `bson:"state" json:"state"`
	StartTime     *time.Time   `bson:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime       *time.Time   `bson:"end_time,omitempty" json:"end_time,omitempty"`
	CompletionPct float64      `bson:"completion_pct" json:"completion_pct"`
}

// Trip is the mutable per-journey aggregate. It is owned exclusively by
// the worker processing it during an invocation; the persisted record is
// the only durable copy.
type Trip struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DeviceID string             `bson:"device_id" json:"device_id"`
	RouteID  primitive.ObjectID `bson:"route_id" json:"route_id"`
	TripType TripType           `bson:"trip_type" json:"trip_type"`

	PlannedStartTime time.Time  `bson:"planned_start_time" json:"planned_start_time"`
	PlannedEndTime   time.Time  `bson:"planned_end_time" json:"planned_end_time"`
	ActualStartTime  *time.Time `bson:"actual_start_time,omitempty" json:"actual_start_time,omitempty"`
	ActualEndTime    *time.Time `bson:"actual_end_time,omitempty" json:"actual_end_time,omitempty"`

	TripStage    TripStage `bson:"trip_stage" json:"trip_stage"`
	ActiveStatus string    `bson:"active_status" json:"active_status"`

	MovementStatus      MovementStatus `bson:"movement_status" json:"movement_status"`
	HaltStartTime       *time.Time     `bson:"halt_start_time,omitempty" json:"halt_start_time,omitempty"`
	CurrentHaltDuration float64        `bson:"current_halt_duration" json:"current_halt_duration"` // minutes
	ParkedDuration      float64        `bson:"parked_duration" json:"parked_duration"`             // minutes, cumulative
	RunDuration         float64        `bson:"run_duration" json:"run_duration"`                   // minutes of valid movement
	AverageSpeed        float64        `bson:"average_speed" json:"average_speed"`                 // km/h, time-weighted
	TopSpeed            float64        `bson:"top_speed" json:"top_speed"`                         // km/h

	// Path is the cumulative, append-only sequence of processed points.
	// FromIndex/ToIndex bound the window appended by the latest batch.
	Path      []GPSPoint `bson:"path" json:"path"`
	FromIndex int        `bson:"from_index" json:"from_index"`
	ToIndex   int        `bson:"to_index" json:"to_index"`

	CurrentSignificantLocation *SignificantLocationRecord  `bson:"current_significant_location,omitempty" json:"current_significant_location,omitempty"`
	SignificantLocations       []SignificantLocationRecord `bson:"significant_locations" json:"significant_locations"`
	HasExitedStartLocation     bool                        `bson:"has_exited_start_location" json:"has_exited_start_location"`
	HasExitedEndLocation       bool                        `bson:"has_exited_end_location" json:"has_exited_end_location"`

	RuleStatus        map[string]RuleStatus `bson:"rule_status" json:"rule_status"`
	SignificantEvents []SignificantEvent    `bson:"significant_events" json:"significant_events"`

	// ActiveSegmentIndex is -1 when no segment is running.
	ActiveSegmentIndex   int             `bson:"active_segment_index" json:"active_segment_index"`
	ActiveSegmentStarted *time.Time      `bson:"active_segment_started,omitempty" json:"active_segment_started,omitempty"`
	ActiveSegmentPct     float64         `bson:"active_segment_pct" json:"active_segment_pct"`
	SegmentHistory       []SegmentRecord `bson:"segment_history" json:"segment_history"`

	DistanceCovered   float64    `bson:"distance_covered" json:"distance_covered"`     // km along route
	DistanceRemaining float64    `bson:"distance_remaining" json:"distance_remaining"` // km
	CompletionPct     float64    `bson:"completion_pct" json:"completion_pct"`
	ETA               *time.Time `bson:"eta,omitempty" json:"eta,omitempty"`

	TravelDirection  TravelDirection `bson:"travel_direction" json:"travel_direction"`
	ReverseDistance  float64         `bson:"reverse_distance" json:"reverse_distance"` // km in current reverse episode
	ReversePath      []Coordinate    `bson:"reverse_path,omitempty" json:"reverse_path,omitempty"`
	ReverseStartTime *time.Time      `bson:"reverse_start_time,omitempty" json:"reverse_start_time,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// LastPoint returns the most recent processed point, or nil for an empty path.
func (t *Trip) LastPoint() *GPSPoint {
	if len(t.Path) == 0 {
		return nil
	}
	return &t.Path[len(t.Path)-1]
}

// AtLocation reports whether the trip currently occupies the named
// significant location.
func (t *Trip) AtLocation(name string) bool {
	return t.CurrentSignificantLocation != nil && t.CurrentSignificantLocation.LocationName == name
}
