package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the worker, scheduler and ingest bridge read
// from the environment.
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	RedisPassword string
	NATSURL       string
	MQTTBroker    string
	MQTTClientID  string

	// Engine thresholds.
	ChunkWindow        time.Duration // time span of one processed chunk
	SpeedThresholdKmh  float64       // below this a point is halt-eligible
	NoiseThresholdKmh  float64       // below this movement is GPS noise
	MaxLookbackDays    int           // historical replay cap
	FleetLocation      *time.Location // local clock for driving-hour rules
	ServiceAreaMinLat  float64
	ServiceAreaMaxLat  float64
	ServiceAreaMinLng  float64
	ServiceAreaMaxLng  float64

	// Scheduler.
	MaxWorkers    int
	WorkerTimeout time.Duration
	WorkerBinary  string
	TickInterval  time.Duration
	MaxRetries    int
	RetryBaseWait time.Duration
	MetricsAddr   string
}

// Load reads configuration from the environment, loading a .env file
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:      getenvDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenvDefault("MONGO_DATABASE", "tripwatch"),
		RedisAddr:     getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NATSURL:       getenvDefault("NATS_URL", "nats://127.0.0.1:4222"),
		MQTTBroker:    getenvDefault("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:  getenvDefault("MQTT_CLIENT_ID", "tripwatch-ingest"),
		WorkerBinary:  getenvDefault("WORKER_BINARY", "tripwatch-worker"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
	}

	var err error
	if cfg.ChunkWindow, err = durationEnv("CHUNK_WINDOW_MINUTES", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = durationEnv("TICK_INTERVAL_MINUTES", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.WorkerTimeout, err = durationEnv("WORKER_TIMEOUT_MINUTES", 3*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SpeedThresholdKmh, err = floatEnv("SPEED_THRESHOLD_KMH", 3); err != nil {
		return nil, err
	}
	if cfg.NoiseThresholdKmh, err = floatEnv("NOISE_THRESHOLD_KMH", 2); err != nil {
		return nil, err
	}
	if cfg.MaxLookbackDays, err = intEnv("MAX_LOOKBACK_DAYS", 7); err != nil {
		return nil, err
	}
	tz := getenvDefault("FLEET_TIMEZONE", "UTC")
	if cfg.FleetLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid FLEET_TIMEZONE: %q", tz)
	}
	if cfg.MaxWorkers, err = intEnv("MAX_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intEnv("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBaseWait, err = durationSecondsEnv("RETRY_BASE_WAIT_SECONDS", 5*time.Second); err != nil {
		return nil, err
	}

	// Serviceable bounding box; defaults cover the whole globe.
	if cfg.ServiceAreaMinLat, err = floatEnv("SERVICE_AREA_MIN_LAT", -90); err != nil {
		return nil, err
	}
	if cfg.ServiceAreaMaxLat, err = floatEnv("SERVICE_AREA_MAX_LAT", 90); err != nil {
		return nil, err
	}
	if cfg.ServiceAreaMinLng, err = floatEnv("SERVICE_AREA_MIN_LNG", -180); err != nil {
		return nil, err
	}
	if cfg.ServiceAreaMaxLng, err = floatEnv("SERVICE_AREA_MAX_LNG", 180); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func floatEnv(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return f, nil
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return time.Duration(n) * time.Minute, nil
}

func durationSecondsEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return time.Duration(n) * time.Second, nil
}
