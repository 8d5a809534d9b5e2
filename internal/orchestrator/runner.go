package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// Worker process exit codes.
const (
	ExitOK        = 0
	ExitRetryable = 1
	ExitFatal     = 2
)

// ErrWorkerFatal marks a worker that exited reporting a fatal invariant
// failure; the scheduler skips it until the next cycle instead of
// retrying.
var ErrWorkerFatal = errors.New("worker reported fatal failure")

// ExecRunner returns a WorkerRunner that spawns the worker binary as an
// isolated OS process, passing the trip id as the sole addressing
// parameter. The context's deadline becomes the hard worker timeout.
func ExecRunner(binary string) WorkerRunner {
	return func(ctx context.Context, tripID string) error {
		cmd := exec.CommandContext(ctx, binary, "-trip", tripID)
		out, err := cmd.CombinedOutput()
		if len(out) > 0 {
			log.WithField("trip_id", tripID).Debug(string(out))
		}
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// A plain cancellation (scheduler shutdown) is not a timeout.
			if errors.Is(ctx.Err(), context.Canceled) {
				return fmt.Errorf("worker canceled: %w", context.Canceled)
			}
			return fmt.Errorf("worker timed out: %w", context.DeadlineExceeded)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == ExitFatal {
			return fmt.Errorf("%w: %s", ErrWorkerFatal, string(out))
		}
		return fmt.Errorf("worker exited: %w", err)
	}
}
