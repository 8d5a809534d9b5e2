package worker

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fleetsight/tripwatch/internal/db"
	"github.com/fleetsight/tripwatch/internal/engine"
	"github.com/fleetsight/tripwatch/internal/ingest"
	"github.com/fleetsight/tripwatch/internal/models"
)

// ActiveSet is the active-trip membership set: a device is added when
// its trip activates and removed on completion, so upstream ingestion
// knows whether to buffer its fixes.
type ActiveSet interface {
	AddActive(ctx context.Context, deviceID string) error
	RemoveActive(ctx context.Context, deviceID string) error
}

// EventSink receives significant events for the notification boundary.
type EventSink interface {
	PublishEvents(tripID string, evs []models.SignificantEvent) error
}

// Worker processes one trip per invocation: fetch telemetry, chunk it,
// run the engine chunk by chunk, persisting after each chunk so a crash
// resumes from the last durable checkpoint.
type Worker struct {
	Trips      db.TripCollection
	Routes     db.RouteCollection
	Live       *ingest.LiveSource
	Historical *ingest.HistoricalSource
	ActiveSet  ActiveSet
	Events     EventSink

	EngineCfg   engine.Config
	ChunkWindow time.Duration
	Now         func() time.Time

	// Transient persistence failures retry with doubling waits up to
	// this many attempts before surfacing as worker failure.
	PersistAttempts int
	PersistBaseWait time.Duration
}

// Run executes one processing cycle for the trip. Errors satisfying
// engine.IsFatal mean the cycle aborted without persisting the offending
// chunk.
func (w *Worker) Run(ctx context.Context, tripID string) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	logger := log.WithField("trip_id", tripID)

	trip, err := w.Trips.FindTripByID(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load trip: %w", err)
	}
	if trip.TripStage == models.StageCompleted {
		logger.Info("Trip already completed, nothing to do")
		return nil
	}
	route, err := w.Routes.FindRouteByID(ctx, trip.RouteID)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrRouteMissing, err)
	}

	points, dropped, err := w.fetch(ctx, trip, now())
	if err != nil {
		return fmt.Errorf("fetch telemetry: %w", err)
	}
	logger.WithFields(log.Fields{"points": len(points), "dropped": dropped}).Info("Telemetry fetched")

	eng := engine.New(trip, route, w.EngineCfg, now)

	chunks := ingest.Chunk(points, w.ChunkWindow)
	if len(chunks) == 0 {
		return w.handleUnchunkable(ctx, trip, eng, points, logger)
	}

	for i, chunk := range chunks {
		wasStage := trip.TripStage

		patch, err := eng.ProcessChunk(chunk)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if err := w.persist(ctx, trip.ID, patch); err != nil {
			return fmt.Errorf("persist chunk %d: %w", i, err)
		}
		w.publish(tripID, patch.Events(), logger)

		if err := w.handleStageChange(ctx, trip, wasStage, logger); err != nil {
			return err
		}
		if trip.TripStage == models.StageCompleted {
			break
		}
	}
	return nil
}

// fetch selects the ingestion mode for the trip.
func (w *Worker) fetch(ctx context.Context, trip *models.Trip, now time.Time) ([]models.GPSPoint, int, error) {
	if trip.TripType == models.TripHistorical {
		return w.Historical.Fetch(ctx, trip, now)
	}
	return w.Live.Fetch(ctx, trip.DeviceID)
}

// handleUnchunkable deals with a batch the chunker rejected, whether too
// few points or a span inside a single window. A historical trip whose
// whole range cannot be chunked is converted to a live trip; a live
// batch of at least two points is processed as a single chunk so
// destructively drained fixes are not lost.
func (w *Worker) handleUnchunkable(ctx context.Context, trip *models.Trip, eng *engine.Engine, points []models.GPSPoint, logger *log.Entry) error {
	if trip.TripType == models.TripHistorical {
		logger.WithField("points", len(points)).Info("Historical range below chunkable size, converting to live trip")
		patch := db.NewTripPatch()
		patch.Set("trip_type", models.TripLive)
		trip.TripType = models.TripLive
		return w.persist(ctx, trip.ID, patch)
	}
	if len(points) < 2 {
		logger.WithField("points", len(points)).Info("Not enough points this cycle")
		return nil
	}
	wasStage := trip.TripStage
	patch, err := eng.ProcessChunk(points)
	if err != nil {
		return err
	}
	if err := w.persist(ctx, trip.ID, patch); err != nil {
		return err
	}
	w.publish(trip.ID.Hex(), patch.Events(), logger)
	return w.handleStageChange(ctx, trip, wasStage, logger)
}

// handleStageChange reacts to lifecycle transitions that happened during
// the chunk: activation joins the active set, completion leaves it and
// archives the record.
func (w *Worker) handleStageChange(ctx context.Context, trip *models.Trip, was models.TripStage, logger *log.Entry) error {
	if trip.TripStage == was {
		return nil
	}
	switch trip.TripStage {
	case models.StageActive:
		if err := w.ActiveSet.AddActive(ctx, trip.DeviceID); err != nil {
			return fmt.Errorf("join active set: %w", err)
		}
		logger.Info("Device joined active set")
	case models.StageCompleted:
		if err := w.ActiveSet.RemoveActive(ctx, trip.DeviceID); err != nil {
			return fmt.Errorf("leave active set: %w", err)
		}
		if err := w.finish(ctx, trip); err != nil {
			return fmt.Errorf("finish trip: %w", err)
		}
		logger.Info("Trip archived")
	}
	return nil
}

// persist applies a patch with bounded retry on transient failures.
func (w *Worker) persist(ctx context.Context, id primitive.ObjectID, patch *db.TripPatch) error {
	return w.withRetry(ctx, func() error {
		return w.Trips.ApplyPatch(ctx, id, patch)
	})
}

func (w *Worker) finish(ctx context.Context, trip *models.Trip) error {
	return w.withRetry(ctx, func() error {
		return w.Trips.FinishTrip(ctx, trip)
	})
}

func (w *Worker) withRetry(ctx context.Context, op func() error) error {
	attempts := w.PersistAttempts
	if attempts <= 0 {
		attempts = 3
	}
	wait := w.PersistBaseWait
	if wait <= 0 {
		wait = time.Second
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.WithError(err).WithField("attempt", i+1).Warn("Persistence attempt failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}

// publish forwards the chunk's events to the notification boundary.
// Failures are logged: events are already durable on the trip record.
func (w *Worker) publish(tripID string, evs []models.SignificantEvent, logger *log.Entry) {
	if w.Events == nil || len(evs) == 0 {
		return
	}
	if err := w.Events.PublishEvents(tripID, evs); err != nil {
		logger.WithError(err).Warn("Event publication failed")
	}
}
