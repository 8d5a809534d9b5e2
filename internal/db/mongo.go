package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// Stores bundles the collections a worker or scheduler needs.
type Stores struct {
	Trips  *MongoTripCollection
	Routes *MongoRouteCollection
	Fixes  *MongoFixCollection
}

// NewStores wires the collection wrappers over a database handle.
func NewStores(database *mongo.Database) *Stores {
	return &Stores{
		Trips: &MongoTripCollection{
			Live:    database.Collection("trips"),
			Archive: database.Collection("trips_archive"),
		},
		Routes: &MongoRouteCollection{Collection: database.Collection("routes")},
		Fixes:  &MongoFixCollection{Collection: database.Collection("gps_fixes")},
	}
}
