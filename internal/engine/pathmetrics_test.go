package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetsight/tripwatch/internal/geo"
	"github.com/fleetsight/tripwatch/internal/models"
)

func TestUpdatePathMetrics_AccumulatesDistanceAndSpeed(t *testing.T) {
	trip := testTrip(models.StageActive)
	e := newStepEngine(trip, testRoute(), baseTS)

	chunk := []models.GPSPoint{
		pt(0, 28.70, 77.20, 50, 1),
		pt(2, 28.70, 77.22, 55, 1),
		pt(4, 28.70, 77.24, 60, 1),
	}
	assert.NoError(t, e.updatePathMetrics(chunk))

	wantDist := geo.HaversineKm(chunk[0].Coord(), chunk[1].Coord()) +
		geo.HaversineKm(chunk[1].Coord(), chunk[2].Coord())
	wantAvg := wantDist / (4.0 / 60.0)

	assert.InDelta(t, wantAvg, trip.AverageSpeed, 0.01)
	assert.InDelta(t, wantAvg, e.batchAvgSpeed, 0.01)
	assert.Equal(t, 60.0, trip.TopSpeed)
	assert.Equal(t, 4.0, trip.RunDuration)
}

func TestUpdatePathMetrics_TimeWeightedAverage(t *testing.T) {
	trip := testTrip(models.StageActive)
	trip.AverageSpeed = 30
	trip.RunDuration = 60 // one hour at 30 km/h so far
	e := newStepEngine(trip, testRoute(), baseTS)

	// A new batch at roughly 58.6 km/h over 6 minutes.
	chunk := []models.GPSPoint{
		pt(0, 28.70, 77.20, 50, 1),
		pt(2, 28.70, 77.22, 50, 1),
		pt(4, 28.70, 77.24, 50, 1),
		pt(6, 28.70, 77.26, 50, 1),
	}
	assert.NoError(t, e.updatePathMetrics(chunk))

	// The stored average moves toward the batch average but stays
	// dominated by the much longer prior hour.
	assert.Greater(t, trip.AverageSpeed, 30.0)
	assert.Less(t, trip.AverageSpeed, 36.0)
	assert.Equal(t, 66.0, trip.RunDuration)
}

func TestUpdatePathMetrics_SkipsNoisePairs(t *testing.T) {
	trip := testTrip(models.StageActive)
	e := newStepEngine(trip, testRoute(), baseTS)

	// Halted points with GPS drift: no pair qualifies.
	chunk := []models.GPSPoint{
		pt(0, 28.70, 77.2000, 0, 0),
		pt(1, 28.70, 77.2001, 1, 0),
		pt(2, 28.70, 77.2000, 0, 0),
	}
	assert.NoError(t, e.updatePathMetrics(chunk))

	assert.Equal(t, 0.0, trip.AverageSpeed)
	assert.Equal(t, 0.0, trip.RunDuration)
	assert.Equal(t, 0.0, trip.TopSpeed)
	assert.Equal(t, 0.0, e.batchAvgSpeed)
}

func TestUpdatePathMetrics_MixedPairsOnlyCountValid(t *testing.T) {
	trip := testTrip(models.StageActive)
	e := newStepEngine(trip, testRoute(), baseTS)

	chunk := []models.GPSPoint{
		pt(0, 28.70, 77.20, 50, 1),
		pt(2, 28.70, 77.22, 50, 1),
		pt(4, 28.70, 77.2201, 0, 0), // halt: both pairs touching it are skipped
		pt(6, 28.70, 77.24, 50, 1),
	}
	assert.NoError(t, e.updatePathMetrics(chunk))

	wantDist := geo.HaversineKm(chunk[0].Coord(), chunk[1].Coord())
	wantAvg := wantDist / (2.0 / 60.0)
	assert.InDelta(t, wantAvg, trip.AverageSpeed, 0.01)
	assert.Equal(t, 2.0, trip.RunDuration)
}

func TestUpdatePathMetrics_TopSpeedNeverDecreases(t *testing.T) {
	trip := testTrip(models.StageActive)
	trip.TopSpeed = 90
	e := newStepEngine(trip, testRoute(), baseTS)

	chunk := []models.GPSPoint{
		pt(0, 28.70, 77.20, 50, 1),
		pt(2, 28.70, 77.22, 55, 1),
	}
	assert.NoError(t, e.updatePathMetrics(chunk))
	assert.Equal(t, 90.0, trip.TopSpeed)
}
