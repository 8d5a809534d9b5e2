package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fleetsight/tripwatch/internal/ingest"
	"github.com/fleetsight/tripwatch/internal/models"
)

// TripCollection defines the trip persistence operations the engine and
// scheduler depend on.
type TripCollection interface {
	FindTripByID(ctx context.Context, id string) (*models.Trip, error)
	PendingTrips(ctx context.Context) ([]models.Trip, error)
	ApplyPatch(ctx context.Context, id primitive.ObjectID, patch *TripPatch) error
	FinishTrip(ctx context.Context, trip *models.Trip) error
}

// RouteCollection resolves a trip's route reference.
type RouteCollection interface {
	FindRouteByID(ctx context.Context, id primitive.ObjectID) (*models.Route, error)
}

// FixCollection serves archived raw fixes for historical replay.
type FixCollection interface {
	FixesBetween(ctx context.Context, deviceID string, from, to time.Time) ([]ingest.RawFix, error)
}
