package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetsight/tripwatch/internal/models"
)

// MongoTripCollection persists trips. Live holds in-flight trip records;
// Archive receives the full record when a trip finishes.
type MongoTripCollection struct {
	Live    *mongo.Collection
	Archive *mongo.Collection
}

// FindTripByID loads a trip by its hex id.
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid trip ID: %w", err)
	}
	var trip models.Trip
	err = c.Live.FindOne(ctx, bson.M{"_id": objectID}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("trip not found")
		}
		return nil, err
	}
	return &trip, nil
}

// InsertTrip creates a new trip record.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip models.Trip) error {
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = time.Now()
	_, err := c.Live.InsertOne(ctx, trip)
	return err
}

// PendingTrips returns all trips not yet completed, historical trips
// first so the scheduler can queue them with priority.
func (c *MongoTripCollection) PendingTrips(ctx context.Context) ([]models.Trip, error) {
	filter := bson.M{"trip_stage": bson.M{"$ne": models.StageCompleted}}
	opts := options.Find().SetSort(bson.D{{Key: "trip_type", Value: 1}, {Key: "planned_start_time", Value: 1}})
	cursor, err := c.Live.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var trips []models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// ApplyPatch writes a computed field diff to the trip record.
func (c *MongoTripCollection) ApplyPatch(ctx context.Context, id primitive.ObjectID, patch *TripPatch) error {
	if patch.Empty() {
		return nil
	}
	patch.Set("updated_at", time.Now())
	result, err := c.Live.UpdateOne(ctx, bson.M{"_id": id}, patch.Document())
	if err != nil {
		return fmt.Errorf("trip patch update: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("trip not found")
	}
	return nil
}

// finishedTripFields is what survives on the live record after archival.
type finishedTripFields struct {
	ID              primitive.ObjectID `bson:"_id"`
	DeviceID        string             `bson:"device_id"`
	RouteID         primitive.ObjectID `bson:"route_id"`
	TripStage       models.TripStage   `bson:"trip_stage"`
	ActualStartTime *time.Time         `bson:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time         `bson:"actual_end_time,omitempty"`
	DistanceCovered float64            `bson:"distance_covered"`
	AverageSpeed    float64            `bson:"average_speed"`
	TopSpeed        float64            `bson:"top_speed"`
	ParkedDuration  float64            `bson:"parked_duration"`
	RunDuration     float64            `bson:"run_duration"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

// FinishTrip archives the full trip record and truncates the live record
// to a small summary field set.
func (c *MongoTripCollection) FinishTrip(ctx context.Context, trip *models.Trip) error {
	if _, err := c.Archive.InsertOne(ctx, trip); err != nil {
		return fmt.Errorf("trip archive insert: %w", err)
	}
	summary := finishedTripFields{
		ID:              trip.ID,
		DeviceID:        trip.DeviceID,
		RouteID:         trip.RouteID,
		TripStage:       models.StageCompleted,
		ActualStartTime: trip.ActualStartTime,
		ActualEndTime:   trip.ActualEndTime,
		DistanceCovered: trip.DistanceCovered,
		AverageSpeed:    trip.AverageSpeed,
		TopSpeed:        trip.TopSpeed,
		ParkedDuration:  trip.ParkedDuration,
		RunDuration:     trip.RunDuration,
		UpdatedAt:       time.Now(),
	}
	if _, err := c.Live.ReplaceOne(ctx, bson.M{"_id": trip.ID}, summary); err != nil {
		return fmt.Errorf("trip truncate: %w", err)
	}
	return nil
}
