package engine

import (
	"time"

	"github.com/fleetsight/tripwatch/internal/geo"
	"github.com/fleetsight/tripwatch/internal/models"
)

// trackProgress updates route-level progress, reverse-travel detection
// and the segment state machine from the chunk's positions.
func (e *Engine) trackProgress(chunk []models.GPSPoint) error {
	first := chunk[0]
	last := chunk[len(chunk)-1]

	firstIdx, _ := geo.NearestIndex(first.Coord(), e.route.Polyline)
	lastIdx, distFromRoute := geo.NearestIndex(last.Coord(), e.route.Polyline)
	e.distanceFromRouteKm = distFromRoute

	e.trackDirection(chunk, firstIdx, lastIdx)

	covered := geo.DistanceAlongKm(e.route.Polyline, lastIdx)
	remaining := e.route.TotalLength - covered
	if remaining < 0 {
		remaining = 0
	}
	pct := covered / e.route.TotalLength * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	e.trip.DistanceCovered = covered
	e.trip.DistanceRemaining = remaining
	e.trip.CompletionPct = pct
	e.patch.Set("distance_covered", covered)
	e.patch.Set("distance_remaining", remaining)
	e.patch.Set("completion_pct", pct)

	// ETA only when it would be finite and in the future.
	if e.trip.AverageSpeed > 0 && remaining > 0 {
		eta := e.now().Add(hoursToDuration(remaining / e.trip.AverageSpeed))
		e.trip.ETA = &eta
		e.patch.Set("eta", eta)
	} else {
		e.trip.ETA = nil
		e.patch.Set("eta", nil)
	}

	e.updateSegments(last)
	return nil
}

// trackDirection detects reverse travel along the route: the chunk moved
// backwards when its last point matches an earlier polyline index than
// its first. Reverse distance accumulates until travel resumes forward,
// at which point the episode becomes a significant event.
func (e *Engine) trackDirection(chunk []models.GPSPoint, firstIdx, lastIdx int) {
	lastTS := chunk[len(chunk)-1].DtTracker

	if lastIdx < firstIdx {
		if e.trip.TravelDirection != models.DirectionReverse {
			e.trip.TravelDirection = models.DirectionReverse
			ts := chunk[0].DtTracker
			e.trip.ReverseStartTime = &ts
			e.patch.Set("travel_direction", models.DirectionReverse)
			e.patch.Set("reverse_start_time", ts)
		}
		for i := 1; i < len(chunk); i++ {
			e.trip.ReverseDistance += geo.HaversineKm(chunk[i-1].Coord(), chunk[i].Coord())
		}
		for _, p := range chunk {
			e.trip.ReversePath = append(e.trip.ReversePath, p.Coord())
		}
		e.patch.Set("reverse_distance", e.trip.ReverseDistance)
		e.patch.Set("reverse_path", e.trip.ReversePath)
		return
	}

	if e.trip.TravelDirection == models.DirectionReverse {
		// Forward travel resumed: close the reverse episode.
		start := lastTS
		if e.trip.ReverseStartTime != nil {
			start = *e.trip.ReverseStartTime
		}
		end := lastTS
		e.recordEvent(models.SignificantEvent{
			Type:           models.EventReverseTravel,
			EventStartTime: start,
			EventEndTime:   &end,
			Distance:       e.trip.ReverseDistance,
			Path:           e.trip.ReversePath,
		})
		e.log.WithField("reverse_km", e.trip.ReverseDistance).Warn("Reverse travel episode closed")

		e.trip.TravelDirection = models.DirectionForward
		e.trip.ReverseDistance = 0
		e.trip.ReversePath = nil
		e.trip.ReverseStartTime = nil
		e.patch.Set("travel_direction", models.DirectionForward)
		e.patch.Set("reverse_distance", 0.0)
		e.patch.Set("reverse_path", nil)
		e.patch.Set("reverse_start_time", nil)
	} else if e.trip.TravelDirection == "" {
		e.trip.TravelDirection = models.DirectionForward
		e.patch.Set("travel_direction", models.DirectionForward)
	}
}

// updateSegments advances the segment state machine from the latest
// point's location occupancy.
func (e *Engine) updateSegments(last models.GPSPoint) {
	if len(e.route.Segments) == 0 {
		return
	}
	ts := last.DtTracker

	if e.trip.ActiveSegmentIndex < 0 {
		e.maybeStartSegment(e.nextPendingSegment(), ts)
		return
	}

	seg := e.route.Segments[e.trip.ActiveSegmentIndex]
	switch {
	case e.trip.AtLocation(seg.ToName):
		e.finishSegment(seg, ts)
		// The vehicle may already be standing at the next segment's
		// start (shared boundary location).
		e.maybeStartSegment(seg.Index+1, ts)

	case !e.trip.AtLocation(seg.FromName):
		// Mid-segment: refresh progress against the segment polyline.
		idx, _ := geo.NearestIndex(last.Coord(), seg.Polyline)
		if seg.Length > 0 {
			pct := geo.DistanceAlongKm(seg.Polyline, idx) / seg.Length * 100
			if pct > 100 {
				pct = 100
			}
			e.trip.ActiveSegmentPct = pct
			e.patch.Set("active_segment_pct", pct)
		}
	}
}

// nextPendingSegment is the index of the first segment not yet
// traversed, derived from the completed history.
func (e *Engine) nextPendingSegment() int {
	next := 0
	for _, rec := range e.trip.SegmentHistory {
		if rec.State == models.SegmentCompleted && rec.SegmentIndex >= next {
			next = rec.SegmentIndex + 1
		}
	}
	return next
}

// maybeStartSegment starts segment idx if it exists and the vehicle
// occupies its start location.
func (e *Engine) maybeStartSegment(idx int, ts time.Time) {
	if idx < 0 || idx > e.route.LastSegmentIndex() {
		return
	}
	seg := e.route.Segments[idx]
	if !e.trip.AtLocation(seg.FromName) {
		return
	}
	started := ts
	e.trip.ActiveSegmentIndex = idx
	e.trip.ActiveSegmentStarted = &started
	e.trip.ActiveSegmentPct = 0
	e.patch.Set("active_segment_index", idx)
	e.patch.Set("active_segment_started", started)
	e.patch.Set("active_segment_pct", 0.0)
	e.log.WithField("segment", idx).Info("Segment started")
}

// finishSegment closes the active traversal, records it in the history
// and clears the active pointer.
func (e *Engine) finishSegment(seg models.Segment, ts time.Time) {
	end := ts
	rec := models.SegmentRecord{
		SegmentIndex:  seg.Index,
		State:         models.SegmentCompleted,
		StartTime:     e.trip.ActiveSegmentStarted,
		EndTime:       &end,
		CompletionPct: 100,
	}
	e.trip.SegmentHistory = append(e.trip.SegmentHistory, rec)
	e.patch.PushSegmentRecord(rec)

	e.trip.ActiveSegmentIndex = -1
	e.trip.ActiveSegmentStarted = nil
	e.trip.ActiveSegmentPct = 100
	e.patch.Set("active_segment_index", -1)
	e.patch.Set("active_segment_started", nil)
	e.patch.Set("active_segment_pct", 100.0)
	e.log.WithField("segment", seg.Index).Info("Segment completed")
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
