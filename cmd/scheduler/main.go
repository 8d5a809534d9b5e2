package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/fleetsight/tripwatch/internal/config"
	"github.com/fleetsight/tripwatch/internal/db"
	"github.com/fleetsight/tripwatch/internal/metrics"
	"github.com/fleetsight/tripwatch/internal/orchestrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Config load failed")
	}

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Mongo connection failed")
	}
	defer client.Disconnect(context.Background())
	stores := db.NewStores(client.Database(cfg.MongoDatabase))

	var collector *metrics.Collector
	if cfg.MetricsAddr != "" {
		collector = metrics.NewCollector()
		go collector.Serve(cfg.MetricsAddr)
	}

	sched := orchestrator.New(orchestrator.Options{
		MaxWorkers:    cfg.MaxWorkers,
		WorkerTimeout: cfg.WorkerTimeout,
		TickInterval:  cfg.TickInterval,
		MaxRetries:    cfg.MaxRetries,
		RetryBaseWait: cfg.RetryBaseWait,
	}, stores.Trips, orchestrator.ExecRunner(cfg.WorkerBinary), collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"max_workers": cfg.MaxWorkers,
		"tick":        cfg.TickInterval,
		"timeout":     cfg.WorkerTimeout,
	}).Info("Scheduler starting")

	if err := sched.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Error("Scheduler stopped")
		os.Exit(1)
	}
	log.Info("Scheduler stopped cleanly")
}
