package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetsight/tripwatch/internal/models"
)

func TestUpdateStage_PlannedToStartDelayed(t *testing.T) {
	trip := testTrip(models.StagePlanned)
	// Clock is an hour past the planned start; the vehicle has not
	// reached the start depot.
	e := newStepEngine(trip, testRoute(), baseTS.Add(time.Hour))

	chunk := []models.GPSPoint{
		pt(60, 28.60, 77.00, 40, 1),
		pt(62, 28.61, 77.01, 40, 1),
	}
	assert.NoError(t, e.updateStage(chunk))
	assert.Equal(t, models.StageStartDelayed, trip.TripStage)
}

func TestUpdateStage_PlannedStaysBeforeWindow(t *testing.T) {
	trip := testTrip(models.StagePlanned)
	e := newStepEngine(trip, testRoute(), baseTS.Add(-time.Hour))

	chunk := []models.GPSPoint{
		pt(-60, 28.60, 77.00, 40, 1),
		pt(-58, 28.61, 77.01, 40, 1),
	}
	assert.NoError(t, e.updateStage(chunk))
	assert.Equal(t, models.StagePlanned, trip.TripStage)
}

func TestUpdateStage_ActivatesAtStartLocation(t *testing.T) {
	for _, stage := range []models.TripStage{models.StagePlanned, models.StageStartDelayed} {
		t.Run(string(stage), func(t *testing.T) {
			trip := testTrip(stage)
			entry := baseTS.Add(5 * time.Minute)
			trip.CurrentSignificantLocation = &models.SignificantLocationRecord{
				LocationName: "Alpha Depot", EntryTime: entry,
			}
			e := newStepEngine(trip, testRoute(), baseTS.Add(10*time.Minute))

			chunk := []models.GPSPoint{
				pt(8, 28.70, 77.1000, 0, 0),
				pt(10, 28.70, 77.1001, 0, 0),
			}
			assert.NoError(t, e.updateStage(chunk))
			assert.Equal(t, models.StageActive, trip.TripStage)
			if assert.NotNil(t, trip.ActualStartTime) {
				assert.Equal(t, entry, *trip.ActualStartTime, "actual start is the geofence entry time")
			}
		})
	}
}

func TestUpdateStage_CompletesAfterExitingEnd(t *testing.T) {
	trip := testTrip(models.StageActive)
	trip.HasExitedStartLocation = true
	trip.HasExitedEndLocation = true
	e := newStepEngine(trip, testRoute(), baseTS)

	chunk := []models.GPSPoint{
		pt(100, 28.70, 77.41, 30, 1),
		pt(102, 28.70, 77.42, 30, 1),
	}
	assert.NoError(t, e.updateStage(chunk))
	assert.Equal(t, models.StageCompleted, trip.TripStage)
	if assert.NotNil(t, trip.ActualEndTime) {
		assert.Equal(t, chunk[1].DtTracker, *trip.ActualEndTime)
	}
	if assert.Len(t, trip.SignificantEvents, 1) {
		assert.Equal(t, models.EventTripCompleted, trip.SignificantEvents[0].Type)
	}
}

func TestUpdateStage_ImmediateCompleteWithoutDetention(t *testing.T) {
	trip := testTrip(models.StageActive)
	trip.HasExitedStartLocation = true
	trip.CurrentSignificantLocation = &models.SignificantLocationRecord{
		LocationName: "Beta Yard", EntryTime: baseTS.Add(90 * time.Minute),
	}
	e := newStepEngine(trip, testRoute(), baseTS.Add(90*time.Minute))

	chunk := []models.GPSPoint{
		pt(88, 28.70, 77.3999, 5, 1),
		pt(90, 28.70, 77.4000, 0, 0),
	}
	assert.NoError(t, e.updateStage(chunk))
	assert.Equal(t, models.StageCompleted, trip.TripStage)
}

func TestUpdateStage_DetentionDefersCompletion(t *testing.T) {
	trip := testTrip(models.StageActive)
	trip.HasExitedStartLocation = true
	trip.CurrentSignificantLocation = &models.SignificantLocationRecord{
		LocationName: "Beta Yard", EntryTime: baseTS.Add(90 * time.Minute),
	}
	route := testRoute()
	route.End.MaxDetentionTime = 60 // unloading window at the destination
	e := newStepEngine(trip, route, baseTS.Add(90*time.Minute))

	chunk := []models.GPSPoint{
		pt(88, 28.70, 77.3999, 5, 1),
		pt(90, 28.70, 77.4000, 0, 0),
	}
	assert.NoError(t, e.updateStage(chunk))
	assert.Equal(t, models.StageActive, trip.TripStage, "completion waits for the end-location exit")
}

func TestUpdateStage_InconsistentCompletionIsFatal(t *testing.T) {
	trip := testTrip(models.StageStartDelayed)
	trip.HasExitedEndLocation = true
	e := newStepEngine(trip, testRoute(), baseTS)

	chunk := []models.GPSPoint{
		pt(0, 28.65, 77.30, 40, 1),
		pt(2, 28.65, 77.31, 40, 1),
	}
	err := e.updateStage(chunk)
	assert.ErrorIs(t, err, ErrInconsistentCompletion)
	assert.True(t, IsFatal(err))
}

func TestDeriveActiveStatus(t *testing.T) {
	route := testRoute()

	t.Run("halted at location", func(t *testing.T) {
		trip := testTrip(models.StageActive)
		trip.MovementStatus = models.MovementHalted
		trip.CurrentSignificantLocation = &models.SignificantLocationRecord{
			LocationName: "Alpha Depot", EntryTime: baseTS,
		}
		e := newStepEngine(trip, route, baseTS)
		e.deriveActiveStatus(pt(5, 28.70, 77.10, 0, 0))
		assert.Equal(t, "Halted At Alpha Depot", trip.ActiveStatus)
	})

	t.Run("detained past the detention window", func(t *testing.T) {
		trip := testTrip(models.StageActive)
		trip.MovementStatus = models.MovementHalted
		trip.CurrentSignificantLocation = &models.SignificantLocationRecord{
			LocationName: "Beta Yard", EntryTime: baseTS,
		}
		detained := testRoute()
		detained.End.MaxDetentionTime = 30
		e := newStepEngine(trip, detained, baseTS)
		e.deriveActiveStatus(pt(45, 28.70, 77.40, 0, 0))
		assert.Equal(t, "Detained At Beta Yard", trip.ActiveStatus)
	})

	t.Run("running on route", func(t *testing.T) {
		trip := testTrip(models.StageActive)
		trip.MovementStatus = models.MovementDriving
		e := newStepEngine(trip, route, baseTS)
		e.deriveActiveStatus(pt(10, 28.70, 77.20, 50, 1))
		assert.Equal(t, "Running On Route", trip.ActiveStatus)
	})

	t.Run("running with route violation", func(t *testing.T) {
		violRoute := testRoute(models.Rule{
			Kind: models.RuleRouteDeviation, Name: "Off Route", MaxDeviationKm: 2,
		})
		trip := testTrip(models.StageActive)
		trip.MovementStatus = models.MovementDriving
		trip.RuleStatus = map[string]models.RuleStatus{"Off Route": models.RuleViolated}
		e := newStepEngine(trip, violRoute, baseTS)
		e.deriveActiveStatus(pt(10, 28.60, 77.20, 50, 1))
		assert.Equal(t, "Running & Route Violated", trip.ActiveStatus)
	})

	t.Run("unknown movement keeps the previous status", func(t *testing.T) {
		trip := testTrip(models.StageActive)
		trip.ActiveStatus = "Running On Route"
		trip.MovementStatus = models.MovementUnknown
		e := newStepEngine(trip, route, baseTS)
		e.deriveActiveStatus(pt(10, 28.70, 77.20, 0, 1))
		assert.Equal(t, "Running On Route", trip.ActiveStatus)
	})
}
