package models

import "time"

// TrackerTimeLayout is the timestamp format emitted by GPS tracker devices
// in the dt_tracker field.
const TrackerTimeLayout = "2006-01-02 15:04:05"

// GPSPoint is a single validated telemetry fix.
type GPSPoint struct {
	DtTracker time.Time `bson:"dt_tracker" json:"dt_tracker"`
	Lat       float64   `bson:"lat" json:"lat"`
	Lng       float64   `bson:"lng" json:"lng"`
	Speed     float64   `bson:"speed" json:"speed"` // km/h
	Acc       int       `bson:"acc" json:"acc"`     // ignition/accessory flag, 0 or 1
	FuelLevel *float64  `bson:"fuel_level,omitempty" json:"fuel_level,omitempty"`
}

// Coordinate is a bare lat/lng pair, used for route polylines and
// accumulated paths where speed/ignition are irrelevant.
type Coordinate struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Coord returns the point's coordinate pair.
func (p GPSPoint) Coord() Coordinate {
	return Coordinate{Lat: p.Lat, Lng: p.Lng}
}
