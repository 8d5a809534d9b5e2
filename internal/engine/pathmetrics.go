package engine

import (
	"github.com/fleetsight/tripwatch/internal/geo"
	"github.com/fleetsight/tripwatch/internal/models"
)

// validMovement reports whether a point counts toward distance and speed
// accumulation: ignition on and speed above the noise floor.
func (e *Engine) validMovement(p models.GPSPoint) bool {
	return p.Acc == 1 && p.Speed > e.cfg.NoiseThresholdKmh
}

// updatePathMetrics accumulates distance, elapsed movement time, top
// speed and the trip's time-weighted average speed over the chunk.
func (e *Engine) updatePathMetrics(chunk []models.GPSPoint) error {
	var distKm, hours, top float64
	for i := 1; i < len(chunk); i++ {
		a, b := chunk[i-1], chunk[i]
		if !e.validMovement(a) || !e.validMovement(b) {
			continue
		}
		distKm += geo.HaversineKm(a.Coord(), b.Coord())
		hours += b.DtTracker.Sub(a.DtTracker).Hours()
		if a.Speed > top {
			top = a.Speed
		}
		if b.Speed > top {
			top = b.Speed
		}
	}

	if hours > 0 {
		e.batchAvgSpeed = distKm / hours

		// Weight the batch average by its duration against the trip's
		// existing average weighted by prior cumulative run time, so the
		// stored average is a true time-weighted mean over the trip.
		prevHours := e.trip.RunDuration / 60
		e.trip.AverageSpeed = (e.trip.AverageSpeed*prevHours + e.batchAvgSpeed*hours) / (prevHours + hours)
		e.trip.RunDuration += hours * 60
		e.patch.Set("average_speed", e.trip.AverageSpeed)
		e.patch.Set("run_duration", e.trip.RunDuration)
	}

	if top > e.trip.TopSpeed {
		e.trip.TopSpeed = top
		e.patch.Set("top_speed", top)
	}
	return nil
}
