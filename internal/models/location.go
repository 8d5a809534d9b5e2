package models

// LocationType distinguishes the two geofence shapes.
type LocationType string

const (
	LocationPoint LocationType = "point" // center + trigger radius
	LocationZone  LocationType = "zone"  // polygon
)

// Location is a significant location on a route: the start, the end, or a
// via stop. A point location is a circle around a center; a zone location
// is a polygon with an optional fallback radius around its vertices.
type Location struct {
	LocationName     string       `bson:"location_name" json:"location_name"`
	Purpose          string       `bson:"purpose" json:"purpose"` // "loading", "unloading", "checkpoint", ...
	Type             LocationType `bson:"type" json:"type"`
	Lat              float64      `bson:"lat" json:"lat"`
	Lng              float64      `bson:"lng" json:"lng"`
	TriggerRadius    float64      `bson:"trigger_radius" json:"trigger_radius"` // meters, point type
	Polygon          []Coordinate `bson:"polygon,omitempty" json:"polygon,omitempty"`
	VertexRadius     float64      `bson:"vertex_radius,omitempty" json:"vertex_radius,omitempty"` // meters, zone fallback
	MaxDetentionTime float64      `bson:"max_detention_time" json:"max_detention_time"`           // minutes, 0 = none
}
