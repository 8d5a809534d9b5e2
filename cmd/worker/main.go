package main

import (
	"context"
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetsight/tripwatch/internal/buffer"
	"github.com/fleetsight/tripwatch/internal/config"
	"github.com/fleetsight/tripwatch/internal/db"
	"github.com/fleetsight/tripwatch/internal/engine"
	"github.com/fleetsight/tripwatch/internal/events"
	"github.com/fleetsight/tripwatch/internal/ingest"
	"github.com/fleetsight/tripwatch/internal/orchestrator"
	"github.com/fleetsight/tripwatch/internal/worker"
)

func main() {
	tripID := flag.String("trip", "", "trip id to process")
	flag.Parse()
	if *tripID == "" {
		log.Error("missing -trip")
		os.Exit(orchestrator.ExitRetryable)
	}
	logger := log.WithField("trip_id", *tripID)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Error("Config load failed")
		os.Exit(orchestrator.ExitRetryable)
	}

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		logger.WithError(err).Error("Mongo connection failed")
		os.Exit(orchestrator.ExitRetryable)
	}
	defer client.Disconnect(context.Background())
	stores := db.NewStores(client.Database(cfg.MongoDatabase))

	redisClient, err := buffer.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.WithError(err).Error("Redis connection failed")
		os.Exit(orchestrator.ExitRetryable)
	}
	defer redisClient.Close()

	var sink worker.EventSink
	if pub, err := events.NewPublisher(cfg.NATSURL); err != nil {
		// Events are durable on the trip record; the broker is best effort.
		logger.WithError(err).Warn("NATS unavailable, events will not be published")
	} else {
		sink = pub
		defer pub.Close()
	}

	validator := &ingest.Validator{Bounds: ingest.BoundingBox{
		MinLat: cfg.ServiceAreaMinLat, MaxLat: cfg.ServiceAreaMaxLat,
		MinLng: cfg.ServiceAreaMinLng, MaxLng: cfg.ServiceAreaMaxLng,
	}}

	w := &worker.Worker{
		Trips:  stores.Trips,
		Routes: stores.Routes,
		Live:   &ingest.LiveSource{Buffer: redisClient, Validator: validator},
		Historical: &ingest.HistoricalSource{
			Store:       stores.Fixes,
			Validator:   validator,
			MaxLookback: time.Duration(cfg.MaxLookbackDays) * 24 * time.Hour,
		},
		ActiveSet: redisClient,
		Events:    sink,
		EngineCfg: engine.Config{
			SpeedThresholdKmh: cfg.SpeedThresholdKmh,
			NoiseThresholdKmh: cfg.NoiseThresholdKmh,
			Location:          cfg.FleetLocation,
		},
		ChunkWindow: cfg.ChunkWindow,
	}

	if err := w.Run(context.Background(), *tripID); err != nil {
		if engine.IsFatal(err) {
			logger.WithError(err).Error("Fatal invariant failure")
			os.Exit(orchestrator.ExitFatal)
		}
		logger.WithError(err).Error("Worker failed")
		os.Exit(orchestrator.ExitRetryable)
	}
}
