package engine

import (
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetsight/tripwatch/internal/db"
	"github.com/fleetsight/tripwatch/internal/models"
)

// Config carries the engine's movement thresholds.
type Config struct {
	// SpeedThresholdKmh separates halt-eligible from driving-eligible
	// points together with the accessory flag.
	SpeedThresholdKmh float64
	// NoiseThresholdKmh is the floor below which movement between two
	// points is treated as GPS noise for distance/speed accounting.
	NoiseThresholdKmh float64
	// Location is the fleet's local clock for driving-hour windows.
	// Tracker timestamps arrive in UTC; nil leaves them unconverted.
	Location *time.Location
}

// Engine runs the per-chunk processing pipeline over one trip. The trip
// is owned exclusively by the engine for the duration of the invocation;
// every mutation is mirrored into the chunk's TripPatch.
type Engine struct {
	trip  *models.Trip
	route *models.Route
	cfg   Config
	now   func() time.Time
	log   *log.Entry

	patch *db.TripPatch

	// Per-chunk scratch computed by earlier steps and consumed by later
	// ones.
	batchAvgSpeed       float64
	distanceFromRouteKm float64
}

// New builds an engine for one trip/route pair.
func New(trip *models.Trip, route *models.Route, cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		trip:  trip,
		route: route,
		cfg:   cfg,
		now:   now,
		log:   log.WithFields(log.Fields{"trip_id": trip.ID.Hex(), "device_id": trip.DeviceID}),
	}
}

// ProcessChunk runs the full pipeline over one chunk and returns the
// patch to persist. On error the patch must be discarded; fatal errors
// (see IsFatal) abort the worker entirely.
func (e *Engine) ProcessChunk(chunk []models.GPSPoint) (*db.TripPatch, error) {
	if len(chunk) == 0 {
		return nil, ErrEmptyChunk
	}
	if e.route == nil || len(e.route.Polyline) < 2 || e.route.TotalLength <= 0 {
		return nil, ErrRouteMissing
	}

	e.patch = db.NewTripPatch()
	e.batchAvgSpeed = 0
	e.distanceFromRouteKm = 0

	steps := []struct {
		name string
		fn   func([]models.GPSPoint) error
	}{
		{"append_path", e.appendPath},
		{"movement", e.trackMovement},
		{"path_metrics", e.updatePathMetrics},
		{"significant_locations", e.trackSignificantLocations},
		{"progress", e.trackProgress},
		{"rules", e.evaluateRules},
		{"stage", e.updateStage},
	}
	for _, s := range steps {
		if err := s.fn(chunk); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return e.patch, nil
}

// appendPath extends the cumulative path and moves the cursor window
// over the new batch.
func (e *Engine) appendPath(chunk []models.GPSPoint) error {
	e.trip.FromIndex = len(e.trip.Path)
	e.trip.Path = append(e.trip.Path, chunk...)
	e.trip.ToIndex = len(e.trip.Path) - 1
	e.patch.PushPoints(chunk...)
	e.patch.Set("from_index", e.trip.FromIndex)
	e.patch.Set("to_index", e.trip.ToIndex)
	return nil
}

// recordEvent appends to the trip's event log and mirrors the append
// into the patch.
func (e *Engine) recordEvent(ev models.SignificantEvent) {
	e.trip.SignificantEvents = append(e.trip.SignificantEvents, ev)
	e.patch.PushEvent(ev)
}

// minutesBetween returns whole minutes from a to b, never negative.
func minutesBetween(a, b time.Time) float64 {
	m := math.Floor(b.Sub(a).Minutes())
	if m < 0 {
		return 0
	}
	return m
}
