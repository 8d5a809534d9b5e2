package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Segment is a directed sub-path of a route between two consecutive
// significant locations. Polyline and Length are precomputed when the
// route is created.
type Segment struct {
	Index    int          `bson:"index" json:"index"`
	FromName string       `bson:"from_name" json:"from_name"`
	ToName   string       `bson:"to_name" json:"to_name"`
	Polyline []Coordinate `bson:"polyline" json:"polyline"`
	Length   float64      `bson:"length" json:"length"` // km
}

// Route is the planned path a trip follows. Immutable for the lifetime of
// any trip referencing it.
type Route struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RouteName   string             `bson:"route_name" json:"route_name"`
	Start       Location           `bson:"start" json:"start"`
	End         Location           `bson:"end" json:"end"`
	Via         []Location         `bson:"via,omitempty" json:"via,omitempty"`
	Segments    []Segment          `bson:"segments" json:"segments"`
	Polyline    []Coordinate       `bson:"polyline" json:"polyline"`
	TotalLength float64            `bson:"total_length" json:"total_length"` // km
	Rules       []Rule             `bson:"rules,omitempty" json:"rules,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Locations returns start, via stops, and end in route order.
func (r *Route) Locations() []Location {
	locs := make([]Location, 0, len(r.Via)+2)
	locs = append(locs, r.Start)
	locs = append(locs, r.Via...)
	locs = append(locs, r.End)
	return locs
}

// LocationByName returns the named location, or nil.
func (r *Route) LocationByName(name string) *Location {
	for _, l := range r.Locations() {
		if l.LocationName == name {
			loc := l
			return &loc
		}
	}
	return nil
}

// LastSegmentIndex is the index of the final segment, -1 when the route
// has no segments.
func (r *Route) LastSegmentIndex() int {
	return len(r.Segments) - 1
}
