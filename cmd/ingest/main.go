package main

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/fleetsight/tripwatch/internal/buffer"
	"github.com/fleetsight/tripwatch/internal/config"
	"github.com/fleetsight/tripwatch/internal/ingest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Config load failed")
	}

	redisClient, err := buffer.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Fatal("Redis connection failed")
	}
	defer redisClient.Close()

	bridge, err := ingest.NewBridge(cfg.MQTTBroker, cfg.MQTTClientID, redisClient)
	if err != nil {
		log.WithError(err).Fatal("MQTT connection failed")
	}
	defer bridge.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bridge.Start(ctx); err != nil {
		log.WithError(err).Fatal("Uplink subscription failed")
	}
	log.Info("Ingest bridge running")
	<-ctx.Done()
	log.Info("Ingest bridge stopping")
}
