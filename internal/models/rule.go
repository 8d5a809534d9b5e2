package models

// RuleKind is the closed set of compliance rule types a route can carry.
type RuleKind string

const (
	RuleSpeedLimit     RuleKind = "speed_limit"
	RuleDrivingHours   RuleKind = "driving_hours"
	RuleMaxHalt        RuleKind = "max_halt"
	RuleRouteDeviation RuleKind = "route_deviation"
)

// RuleStatus is the per-rule compliance state.
type RuleStatus string

const (
	RuleGood     RuleStatus = "Good"
	RuleViolated RuleStatus = "Violated"
)

// Rule is one compliance rule configured on a route. Only the parameters
// relevant to its Kind are populated.
type Rule struct {
	Kind RuleKind `bson:"kind" json:"kind"`
	Name string   `bson:"name" json:"name"`

	SpeedLimitKmh float64 `bson:"speed_limit_kmh,omitempty" json:"speed_limit_kmh,omitempty"`

	// Permitted driving window in local hours [DriveStartHour, DriveEndHour).
	DriveStartHour int `bson:"drive_start_hour,omitempty" json:"drive_start_hour,omitempty"`
	DriveEndHour   int `bson:"drive_end_hour,omitempty" json:"drive_end_hour,omitempty"`

	MaxHaltMinutes float64 `bson:"max_halt_minutes,omitempty" json:"max_halt_minutes,omitempty"`

	MaxDeviationKm float64 `bson:"max_deviation_km,omitempty" json:"max_deviation_km,omitempty"`
}
