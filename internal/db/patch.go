package db

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fleetsight/tripwatch/internal/models"
)

// TripPatch is a typed changed-field accumulator. Each engine step
// records exactly the fields it touched: scalar and object fields are
// replaced wholesale via $set, array-valued fields (path points, events,
// closed location and segment records) are appended via $push, never
// rewritten.
type TripPatch struct {
	set      bson.M
	points   []models.GPSPoint
	events   []models.SignificantEvent
	sigLocs  []models.SignificantLocationRecord
	segments []models.SegmentRecord
}

// NewTripPatch returns an empty patch.
func NewTripPatch() *TripPatch {
	return &TripPatch{set: bson.M{}}
}

// Set records a scalar or object field replacement.
func (p *TripPatch) Set(field string, value interface{}) {
	p.set[field] = value
}

// PushPoints appends newly processed path points.
func (p *TripPatch) PushPoints(pts ...models.GPSPoint) {
	p.points = append(p.points, pts...)
}

// PushEvent appends a significant event.
func (p *TripPatch) PushEvent(ev models.SignificantEvent) {
	p.events = append(p.events, ev)
}

// PushSignificantLocation appends a closed location record.
func (p *TripPatch) PushSignificantLocation(r models.SignificantLocationRecord) {
	p.sigLocs = append(p.sigLocs, r)
}

// PushSegmentRecord appends a finished segment traversal.
func (p *TripPatch) PushSegmentRecord(r models.SegmentRecord) {
	p.segments = append(p.segments, r)
}

// Events returns the events accumulated so far, for publication.
func (p *TripPatch) Events() []models.SignificantEvent {
	return p.events
}

// Empty reports whether the patch carries no changes.
func (p *TripPatch) Empty() bool {
	return len(p.set) == 0 && len(p.points) == 0 && len(p.events) == 0 &&
		len(p.sigLocs) == 0 && len(p.segments) == 0
}

// Document builds the Mongo update document.
func (p *TripPatch) Document() bson.M {
	update := bson.M{}
	if len(p.set) > 0 {
		update["$set"] = p.set
	}
	push := bson.M{}
	if len(p.points) > 0 {
		push["path"] = bson.M{"$each": p.points}
	}
	if len(p.events) > 0 {
		push["significant_events"] = bson.M{"$each": p.events}
	}
	if len(p.sigLocs) > 0 {
		push["significant_locations"] = bson.M{"$each": p.sigLocs}
	}
	if len(p.segments) > 0 {
		push["segment_history"] = bson.M{"$each": p.segments}
	}
	if len(push) > 0 {
		update["$push"] = push
	}
	return update
}
