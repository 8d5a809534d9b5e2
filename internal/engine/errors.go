package engine

import "errors"

var (
	// ErrEmptyChunk is returned when a chunk carries no points.
	ErrEmptyChunk = errors.New("empty chunk")

	// ErrRouteMissing marks route data absent or malformed. Fatal: the
	// engine cannot produce a consistent update without a route.
	ErrRouteMissing = errors.New("route data missing or malformed")

	// ErrInconsistentCompletion marks the end-location-exit-without-
	// completion invariant violation. Fatal: persisting would corrupt
	// the trip history.
	ErrInconsistentCompletion = errors.New("end location exited but trip not completed")
)

// IsFatal reports whether the error must abort the worker without
// persisting the offending chunk's output.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRouteMissing) || errors.Is(err, ErrInconsistentCompletion)
}
