package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetsight/tripwatch/internal/ingest"
)

// MongoFixCollection stores the raw fix archive used for historical
// replay.
type MongoFixCollection struct {
	Collection *mongo.Collection
}

type storedFix struct {
	DeviceID string        `bson:"device_id"`
	Fix      ingest.RawFix `bson:",inline"`
}

// InsertFixes appends raw fixes for a device.
func (c *MongoFixCollection) InsertFixes(ctx context.Context, deviceID string, fixes []ingest.RawFix) error {
	if len(fixes) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(fixes))
	for _, f := range fixes {
		docs = append(docs, storedFix{DeviceID: deviceID, Fix: f})
	}
	_, err := c.Collection.InsertMany(ctx, docs)
	return err
}

// FixesBetween returns raw fixes for a device in (from, to], ordered by
// tracker timestamp.
func (c *MongoFixCollection) FixesBetween(ctx context.Context, deviceID string, from, to time.Time) ([]ingest.RawFix, error) {
	filter := bson.M{
		"device_id": deviceID,
		"dt_tracker": bson.M{
			"$gt":  from.Format("2006-01-02 15:04:05"),
			"$lte": to.Format("2006-01-02 15:04:05"),
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "dt_tracker", Value: 1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var docs []storedFix
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	fixes := make([]ingest.RawFix, 0, len(docs))
	for _, d := range docs {
		fixes = append(fixes, d.Fix)
	}
	return fixes, nil
}
