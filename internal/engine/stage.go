package engine

import (
	"fmt"
	"time"

	"github.com/fleetsight/tripwatch/internal/models"
)

// updateStage advances the trip lifecycle stage and derives the
// human-readable active status. Runs last in the pipeline so it sees the
// cycle's final location/movement/rule state.
func (e *Engine) updateStage(chunk []models.GPSPoint) error {
	last := chunk[len(chunk)-1]
	ts := last.DtTracker

	switch e.trip.TripStage {
	case models.StagePlanned, models.StageStartDelayed:
		if e.trip.AtLocation(e.route.Start.LocationName) {
			started := e.trip.CurrentSignificantLocation.EntryTime
			e.trip.TripStage = models.StageActive
			e.trip.ActualStartTime = &started
			e.patch.Set("trip_stage", models.StageActive)
			e.patch.Set("actual_start_time", started)
			e.log.Info("Trip activated")
		} else if e.trip.TripStage == models.StagePlanned && e.now().After(e.trip.PlannedStartTime) {
			e.trip.TripStage = models.StageStartDelayed
			e.patch.Set("trip_stage", models.StageStartDelayed)
			e.log.Warn("Trip start delayed")
		}

	case models.StageActive:
		switch {
		case e.trip.HasExitedEndLocation:
			e.complete(ts)
		case e.trip.AtLocation(e.route.End.LocationName) && e.route.End.MaxDetentionTime == 0:
			// No detention requirement at the end location: reaching it
			// completes the trip immediately.
			e.complete(ts)
		}
	}

	// Exited the end location but still not completed by the time this
	// chunk finishes processing: persisting would write contradictory
	// history.
	if e.trip.HasExitedEndLocation && e.trip.TripStage != models.StageCompleted {
		return ErrInconsistentCompletion
	}

	e.deriveActiveStatus(last)
	return nil
}

// complete moves the trip to Completed and records the terminal event.
func (e *Engine) complete(ts time.Time) {
	ended := ts
	e.trip.TripStage = models.StageCompleted
	e.trip.ActualEndTime = &ended
	e.patch.Set("trip_stage", models.StageCompleted)
	e.patch.Set("actual_end_time", ended)
	e.recordEvent(models.SignificantEvent{
		Type:           models.EventTripCompleted,
		EventStartTime: ended,
	})
	e.log.Info("Trip completed")
}

// deriveActiveStatus phrases the trip's human-readable sub-state:
// location-based when occupying a significant location, otherwise
// movement and violation based.
func (e *Engine) deriveActiveStatus(last models.GPSPoint) {
	var status string

	switch {
	case e.trip.TripStage == models.StageCompleted:
		status = "Completed"

	case e.trip.CurrentSignificantLocation != nil:
		cur := e.trip.CurrentSignificantLocation
		name := cur.LocationName
		dwell := minutesBetween(cur.EntryTime, last.DtTracker)
		loc := e.route.LocationByName(name)
		switch {
		case loc != nil && loc.MaxDetentionTime > 0 && dwell > loc.MaxDetentionTime:
			status = fmt.Sprintf("Detained At %s", name)
		case e.trip.MovementStatus == models.MovementHalted:
			status = fmt.Sprintf("Halted At %s", name)
		default:
			status = fmt.Sprintf("Reached %s", name)
		}

	case e.trip.MovementStatus == models.MovementDriving:
		if e.routeViolated() {
			status = "Running & Route Violated"
		} else {
			status = "Running On Route"
		}

	case e.trip.MovementStatus == models.MovementHalted:
		status = "Halted"

	default:
		status = e.trip.ActiveStatus
	}

	if status != "" && status != e.trip.ActiveStatus {
		e.trip.ActiveStatus = status
		e.patch.Set("active_status", status)
	}
}

// routeViolated reports whether any route-deviation rule is currently
// violated.
func (e *Engine) routeViolated() bool {
	for _, rule := range e.route.Rules {
		if rule.Kind == models.RuleRouteDeviation && e.trip.RuleStatus[rule.Name] == models.RuleViolated {
			return true
		}
	}
	return false
}
