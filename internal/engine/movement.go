package engine

import (
	"github.com/fleetsight/tripwatch/internal/models"
)

// classifyPoint maps one fix to a movement status using the accessory
// flag and the speed threshold.
func (e *Engine) classifyPoint(p models.GPSPoint) models.MovementStatus {
	switch {
	case p.Acc == 1 && p.Speed > e.cfg.SpeedThresholdKmh:
		return models.MovementDriving
	case p.Acc == 0 && p.Speed <= e.cfg.SpeedThresholdKmh:
		return models.MovementHalted
	default:
		return models.MovementUnknown
	}
}

// chunkStatus classifies the whole chunk: unanimous agreement wins,
// otherwise the last point decides.
func (e *Engine) chunkStatus(chunk []models.GPSPoint) models.MovementStatus {
	first := e.classifyPoint(chunk[0])
	unanimous := first != models.MovementUnknown
	for _, p := range chunk[1:] {
		if e.classifyPoint(p) != first {
			unanimous = false
			break
		}
	}
	if unanimous {
		return first
	}
	return e.classifyPoint(chunk[len(chunk)-1])
}

// trackMovement updates the halted/driving classification and the halt
// duration accounting.
func (e *Engine) trackMovement(chunk []models.GPSPoint) error {
	status := e.chunkStatus(chunk)
	prev := e.trip.MovementStatus

	// An ambiguous chunk never overwrites an established status.
	if status == models.MovementUnknown && prev != "" && prev != models.MovementUnknown {
		status = prev
	}

	lastTS := chunk[len(chunk)-1].DtTracker

	switch status {
	case models.MovementHalted:
		if prev != models.MovementHalted || e.trip.HaltStartTime == nil {
			ts := lastTS
			e.trip.HaltStartTime = &ts
			e.patch.Set("halt_start_time", ts)
		}
		e.trip.CurrentHaltDuration = minutesBetween(*e.trip.HaltStartTime, lastTS)
		e.patch.Set("current_halt_duration", e.trip.CurrentHaltDuration)

	case models.MovementDriving:
		if prev == models.MovementHalted {
			e.trip.ParkedDuration += e.trip.CurrentHaltDuration
			e.trip.CurrentHaltDuration = 0
			e.trip.HaltStartTime = nil
			e.patch.Set("parked_duration", e.trip.ParkedDuration)
			e.patch.Set("current_halt_duration", 0.0)
			e.patch.Set("halt_start_time", nil)
		}
	}

	if status != prev {
		e.trip.MovementStatus = status
		e.patch.Set("movement_status", status)
	}
	return nil
}
