package scheduler

import "context"

// Scheduler time-slices admitted jobs across a fixed number of slots.
type Scheduler interface {
	// Start runs the scheduling loop. Blocks until ctx is cancelled or Stop
	// is called, and returns only after shutdown cleanup has finished.
	Start(ctx context.Context) error

	// Stop requests shutdown and waits for Start to return.
	Stop() error

	// Done is closed once Start has returned.
	Done() <-chan struct{}

	// Tick runs a single scheduling cycle. Used for testing.
	Tick() (busy bool, err error)
}
