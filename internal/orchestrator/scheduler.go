package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetsight/tripwatch/internal/db"
	"github.com/fleetsight/tripwatch/internal/metrics"
	"github.com/fleetsight/tripwatch/internal/models"
)

// WorkerRunner executes one worker invocation for a trip. The default is
// ExecRunner, which spawns an isolated OS process; tests inject fakes.
type WorkerRunner func(ctx context.Context, tripID string) error

// Task is one queued worker invocation.
type Task struct {
	TripID     string
	Historical bool
	Attempt    int
}

// Options configures the scheduler.
type Options struct {
	MaxWorkers    int
	WorkerTimeout time.Duration
	TickInterval  time.Duration
	MaxRetries    int
	RetryBaseWait time.Duration
}

// Scheduler runs many trips' workers in parallel under bounded
// resources. Historical trips queue ahead of live trips; failed or
// timed-out workers requeue with exponential backoff up to the retry
// ceiling, after which the trip waits for the next refill tick.
type Scheduler struct {
	opts    Options
	runner  WorkerRunner
	trips   db.TripCollection
	metrics *metrics.Collector

	mu     sync.Mutex
	active map[string]struct{}
	histQ  []Task
	liveQ  []Task

	kick chan struct{}
	wg   sync.WaitGroup
}

// New builds a scheduler. metrics may be nil.
func New(opts Options, trips db.TripCollection, runner WorkerRunner, m *metrics.Collector) *Scheduler {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	return &Scheduler{
		opts:    opts,
		runner:  runner,
		trips:   trips,
		metrics: m,
		active:  make(map[string]struct{}),
		kick:    make(chan struct{}, 1),
	}
}

// Run refills the queues, dispatches workers and blocks until the
// context is cancelled, then drains running workers.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	s.refill(ctx)
	s.dispatch(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Scheduler stopping, draining workers")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.refill(ctx)
			s.dispatch(ctx)
		case <-s.kick:
			s.dispatch(ctx)
		}
	}
}

// Enqueue adds a task unless the trip is already queued or running.
func (s *Scheduler) Enqueue(task Task) {
	s.mu.Lock()
	if s.queuedOrActive(task.TripID) {
		s.mu.Unlock()
		return
	}
	s.push(task)
	s.mu.Unlock()
	s.wake()
}

// refill repopulates both queues from source state.
func (s *Scheduler) refill(ctx context.Context) {
	trips, err := s.trips.PendingTrips(ctx)
	if err != nil {
		log.WithError(err).Error("Queue refill failed")
		return
	}
	added := 0
	s.mu.Lock()
	for _, t := range trips {
		id := t.ID.Hex()
		if s.queuedOrActive(id) {
			continue
		}
		s.push(Task{TripID: id, Historical: t.TripType == models.TripHistorical})
		added++
	}
	s.updateQueueMetricsLocked()
	s.mu.Unlock()
	log.WithFields(log.Fields{"pending": len(trips), "enqueued": added}).Info("Queues refilled")
}

// dispatch launches workers while slots and tasks are available.
func (s *Scheduler) dispatch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for {
		s.mu.Lock()
		if len(s.active) >= s.opts.MaxWorkers {
			s.mu.Unlock()
			return
		}
		task, ok := s.pop()
		if !ok {
			s.updateQueueMetricsLocked()
			s.mu.Unlock()
			return
		}
		s.active[task.TripID] = struct{}{}
		s.updateQueueMetricsLocked()
		s.mu.Unlock()

		s.wg.Add(1)
		go s.runOne(ctx, task)
	}
}

// runOne executes one worker under the hard timeout and handles its
// outcome.
func (s *Scheduler) runOne(ctx context.Context, task Task) {
	defer s.wg.Done()
	logger := log.WithFields(log.Fields{"trip_id": task.TripID, "attempt": task.Attempt})

	wctx, cancel := context.WithTimeout(ctx, s.opts.WorkerTimeout)
	start := time.Now()
	err := s.runner(wctx, task.TripID)
	cancel()

	if s.metrics != nil {
		s.metrics.WorkersLaunched.Inc()
		s.metrics.WorkerDuration.Observe(time.Since(start).Seconds())
	}

	s.mu.Lock()
	delete(s.active, task.TripID)
	s.updateQueueMetricsLocked()
	s.mu.Unlock()

	switch {
	case err == nil:
		logger.Info("Worker finished")

	case errors.Is(err, ErrWorkerFatal):
		// A fatal invariant failure will not heal on retry this cycle.
		if s.metrics != nil {
			s.metrics.WorkerFailures.Inc()
		}
		logger.WithError(err).Error("Worker reported fatal failure, skipping until next cycle")

	default:
		if s.metrics != nil {
			s.metrics.WorkerFailures.Inc()
			if errors.Is(err, context.DeadlineExceeded) {
				s.metrics.WorkerTimeouts.Inc()
			}
		}
		s.retry(ctx, task, err, logger)
	}
	s.wake()
}

// retry requeues with exponential backoff until the attempt ceiling.
func (s *Scheduler) retry(ctx context.Context, task Task, cause error, logger *log.Entry) {
	if task.Attempt >= s.opts.MaxRetries {
		if s.metrics != nil {
			s.metrics.TripsAbandoned.Inc()
		}
		logger.WithError(cause).Error("Retry ceiling reached, abandoning trip for this cycle")
		return
	}
	next := task
	next.Attempt++
	delay := s.opts.RetryBaseWait << (task.Attempt)
	if s.metrics != nil {
		s.metrics.WorkerRetries.Inc()
	}
	logger.WithError(cause).WithField("delay", delay).Warn("Worker failed, requeueing")

	time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		s.Enqueue(next)
	})
}

func (s *Scheduler) queuedOrActive(tripID string) bool {
	if _, ok := s.active[tripID]; ok {
		return true
	}
	for _, t := range s.histQ {
		if t.TripID == tripID {
			return true
		}
	}
	for _, t := range s.liveQ {
		if t.TripID == tripID {
			return true
		}
	}
	return false
}

func (s *Scheduler) push(task Task) {
	if task.Historical {
		s.histQ = append(s.histQ, task)
	} else {
		s.liveQ = append(s.liveQ, task)
	}
}

// pop takes the next task, historical queue first.
func (s *Scheduler) pop() (Task, bool) {
	if len(s.histQ) > 0 {
		t := s.histQ[0]
		s.histQ = s.histQ[1:]
		return t, true
	}
	if len(s.liveQ) > 0 {
		t := s.liveQ[0]
		s.liveQ = s.liveQ[1:]
		return t, true
	}
	return Task{}, false
}

func (s *Scheduler) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) updateQueueMetricsLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.ActiveWorkers.Set(float64(len(s.active)))
	s.metrics.QueueDepth.WithLabelValues("historical").Set(float64(len(s.histQ)))
	s.metrics.QueueDepth.WithLabelValues("live").Set(float64(len(s.liveQ)))
}
