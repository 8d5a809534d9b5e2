package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetsight/tripwatch/internal/models"
)

// MongoRouteCollection serves route definitions.
type MongoRouteCollection struct {
	Collection *mongo.Collection
}

// FindRouteByID loads a route by object id.
func (c *MongoRouteCollection) FindRouteByID(ctx context.Context, id primitive.ObjectID) (*models.Route, error) {
	var route models.Route
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&route)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("route not found")
		}
		return nil, err
	}
	return &route, nil
}

// InsertRoute creates a route record.
func (c *MongoRouteCollection) InsertRoute(ctx context.Context, route models.Route) error {
	_, err := c.Collection.InsertOne(ctx, route)
	return err
}
