package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Collector holds the scheduler's Prometheus instruments on a private
// registry.
type Collector struct {
	reg *prometheus.Registry

	ActiveWorkers prometheus.Gauge
	QueueDepth    *prometheus.GaugeVec

	WorkersLaunched prometheus.Counter
	WorkerFailures  prometheus.Counter
	WorkerTimeouts  prometheus.Counter
	WorkerRetries   prometheus.Counter
	TripsAbandoned  prometheus.Counter

	WorkerDuration prometheus.Histogram
}

// NewCollector registers all instruments.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		reg: reg,
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripwatch_active_workers",
			Help: "Number of worker processes currently running.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tripwatch_queue_depth",
			Help: "Pending tasks per queue.",
		}, []string{"queue"}),
		WorkersLaunched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripwatch_workers_launched_total",
			Help: "Total worker invocations.",
		}),
		WorkerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripwatch_worker_failures_total",
			Help: "Total failed worker invocations.",
		}),
		WorkerTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripwatch_worker_timeouts_total",
			Help: "Total workers terminated by the hard timeout.",
		}),
		WorkerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripwatch_worker_retries_total",
			Help: "Total requeues after worker failure.",
		}),
		TripsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripwatch_trips_abandoned_total",
			Help: "Trips abandoned for a cycle after the retry ceiling.",
		}),
		WorkerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripwatch_worker_duration_seconds",
			Help:    "Worker invocation wall time.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(
		c.ActiveWorkers, c.QueueDepth,
		c.WorkersLaunched, c.WorkerFailures, c.WorkerTimeouts,
		c.WorkerRetries, c.TripsAbandoned, c.WorkerDuration,
	)
	return c
}

// Serve exposes /metrics on addr. Blocks; run in a goroutine.
func (c *Collector) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.WithField("addr", addr).Info("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("Metrics server stopped")
	}
}
