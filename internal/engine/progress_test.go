package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetsight/tripwatch/internal/geo"
	"github.com/fleetsight/tripwatch/internal/models"
)

func TestTrackProgress_CoveredRemainingPct(t *testing.T) {
	trip := testTrip(models.StageActive)
	route := testRoute()
	e := newStepEngine(trip, route, baseTS)

	chunk := []models.GPSPoint{
		pt(0, 28.70, 77.20, 50, 1),
		pt(4, 28.70, 77.25, 50, 1), // nearest vertex index 3
	}
	assert.NoError(t, e.trackProgress(chunk))

	wantCovered := geo.DistanceAlongKm(route.Polyline, 3)
	assert.InDelta(t, wantCovered, trip.DistanceCovered, 0.01)
	assert.InDelta(t, route.TotalLength-wantCovered, trip.DistanceRemaining, 0.01)
	assert.InDelta(t, wantCovered/route.TotalLength*100, trip.CompletionPct, 0.1)
	assert.Equal(t, models.DirectionForward, trip.TravelDirection)
}

func TestTrackProgress_ETAOnlyWhenFinite(t *testing.T) {
	trip := testTrip(models.StageActive)
	e := newStepEngine(trip, testRoute(), baseTS)

	chunk := []models.GPSPoint{
		pt(0, 28.70, 77.20, 50, 1),
		pt(4, 28.70, 77.25, 50, 1),
	}

	// No average speed yet: no ETA.
	assert.NoError(t, e.trackProgress(chunk))
	assert.Nil(t, trip.ETA)

	// With an average speed the ETA lands in the future.
	trip.AverageSpeed = 50
	assert.NoError(t, e.trackProgress(chunk))
	if assert.NotNil(t, trip.ETA) {
		assert.True(t, trip.ETA.After(baseTS))
	}

	// At the route's end nothing remains; the ETA clears.
	atEnd := []models.GPSPoint{
		pt(10, 28.70, 77.39, 50, 1),
		pt(12, 28.70, 77.40, 50, 1),
	}
	assert.NoError(t, e.trackProgress(atEnd))
	assert.Equal(t, 0.0, trip.DistanceRemaining)
	assert.Nil(t, trip.ETA)
}

func TestTrackDirection_ReverseEpisode(t *testing.T) {
	trip := testTrip(models.StageActive)
	trip.TravelDirection = models.DirectionForward
	e := newStepEngine(trip, testRoute(), baseTS)

	// Backwards along the route: last point maps to an earlier vertex.
	backwards := []models.GPSPoint{
		pt(0, 28.70, 77.25, 40, 1),
		pt(2, 28.70, 77.20, 40, 1),
		pt(4, 28.70, 77.15, 40, 1),
	}
	assert.NoError(t, e.trackProgress(backwards))

	assert.Equal(t, models.DirectionReverse, trip.TravelDirection)
	assert.Greater(t, trip.ReverseDistance, 0.0)
	assert.Len(t, trip.ReversePath, 3)
	if assert.NotNil(t, trip.ReverseStartTime) {
		assert.Equal(t, backwards[0].DtTracker, *trip.ReverseStartTime)
	}
	assert.Empty(t, trip.SignificantEvents, "no event while the episode is open")

	// Still reversing: distance accumulates, no event yet.
	stillBack := []models.GPSPoint{
		pt(6, 28.70, 77.14, 40, 1),
		pt(8, 28.70, 77.12, 40, 1),
	}
	firstDistance := trip.ReverseDistance
	assert.NoError(t, e.trackProgress(stillBack))
	assert.Greater(t, trip.ReverseDistance, firstDistance)
	assert.Empty(t, trip.SignificantEvents)

	// Forward travel resumes: exactly one reverse-travel event closes
	// the episode and the accumulator resets.
	forward := []models.GPSPoint{
		pt(10, 28.70, 77.12, 40, 1),
		pt(12, 28.70, 77.18, 40, 1),
	}
	assert.NoError(t, e.trackProgress(forward))

	assert.Equal(t, models.DirectionForward, trip.TravelDirection)
	assert.Equal(t, 0.0, trip.ReverseDistance)
	assert.Nil(t, trip.ReversePath)
	assert.Nil(t, trip.ReverseStartTime)
	if assert.Len(t, trip.SignificantEvents, 1) {
		ev := trip.SignificantEvents[0]
		assert.Equal(t, models.EventReverseTravel, ev.Type)
		assert.Equal(t, backwards[0].DtTracker, ev.EventStartTime)
		assert.NotNil(t, ev.EventEndTime)
		assert.Greater(t, ev.Distance, 0.0)
		assert.NotEmpty(t, ev.Path)
	}
}

func TestUpdateSegments_StartAndFinish(t *testing.T) {
	trip := testTrip(models.StageActive)
	route := testRoute()
	e := newStepEngine(trip, route, baseTS)

	// Standing at the first segment's start location.
	trip.CurrentSignificantLocation = &models.SignificantLocationRecord{
		LocationName: "Alpha Depot", EntryTime: baseTS,
	}
	e.updateSegments(pt(0, 28.70, 77.1000, 0, 0))
	assert.Equal(t, 0, trip.ActiveSegmentIndex)
	assert.NotNil(t, trip.ActiveSegmentStarted)

	// Mid-segment: progress refreshes against the segment polyline.
	trip.CurrentSignificantLocation = nil
	e.updateSegments(pt(10, 28.70, 77.25, 50, 1))
	assert.Equal(t, 0, trip.ActiveSegmentIndex)
	assert.Greater(t, trip.ActiveSegmentPct, 0.0)
	assert.Less(t, trip.ActiveSegmentPct, 100.0)

	// Arriving at the segment's end closes the traversal.
	trip.CurrentSignificantLocation = &models.SignificantLocationRecord{
		LocationName: "Beta Yard", EntryTime: baseTS.Add(30 * time.Minute),
	}
	e.updateSegments(pt(30, 28.70, 77.4000, 0, 0))
	assert.Equal(t, -1, trip.ActiveSegmentIndex)
	assert.Equal(t, 100.0, trip.ActiveSegmentPct)
	if assert.Len(t, trip.SegmentHistory, 1) {
		rec := trip.SegmentHistory[0]
		assert.Equal(t, 0, rec.SegmentIndex)
		assert.Equal(t, models.SegmentCompleted, rec.State)
		assert.Equal(t, 100.0, rec.CompletionPct)
		assert.NotNil(t, rec.StartTime)
		assert.NotNil(t, rec.EndTime)
	}
}

func TestNextPendingSegment(t *testing.T) {
	trip := testTrip(models.StageActive)
	e := newStepEngine(trip, testRoute(), baseTS)

	assert.Equal(t, 0, e.nextPendingSegment())

	trip.SegmentHistory = []models.SegmentRecord{
		{SegmentIndex: 0, State: models.SegmentCompleted},
	}
	assert.Equal(t, 1, e.nextPendingSegment())
}

func TestMaybeStartSegment_RequiresStartLocation(t *testing.T) {
	trip := testTrip(models.StageActive)
	e := newStepEngine(trip, testRoute(), baseTS)

	// Not at the segment's start location: nothing starts.
	e.maybeStartSegment(0, baseTS)
	assert.Equal(t, -1, trip.ActiveSegmentIndex)

	// Out-of-range index: nothing starts.
	e.maybeStartSegment(5, baseTS)
	assert.Equal(t, -1, trip.ActiveSegmentIndex)
}
