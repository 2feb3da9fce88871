package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/slicer/internal/jobtable"
	"github.com/me/slicer/internal/process"
)

// Config holds scheduler configuration. It is fixed for the lifetime of a Loop.
type Config struct {
	// Concurrency is the maximum number of jobs resumed at once.
	Concurrency int
	// SliceDuration paces cycles. Accounting is in ticks, never wall time.
	SliceDuration time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 1, SliceDuration: 100 * time.Millisecond}
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.SliceDuration <= 0 {
		return fmt.Errorf("slice duration must be positive, got %s", c.SliceDuration)
	}
	return nil
}

// Stats counts admission outcomes. Dropped submissions never reach the job
// table, so these counters are the only place they are visible.
type Stats struct {
	Admitted     int64
	Dropped      int64
	LaunchFailed int64
}

// Loop implements Scheduler over a guarded job table and a process controller.
type Loop struct {
	table  *jobtable.Guard
	procs  process.Controller
	config Config
	logger *slog.Logger

	// running holds the job indices resumed by the previous dispatch phase.
	// Only the goroutine driving Tick touches it, always under the table lock.
	running []int

	admitted     atomic.Int64
	dropped      atomic.Int64
	launchFailed atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewLoop creates a new scheduler loop.
func NewLoop(table *jobtable.Guard, procs process.Controller, cfg Config, logger *slog.Logger) *Loop {
	return &Loop{
		table:   table,
		procs:   procs,
		config:  cfg,
		logger:  logger.With("component", "scheduler"),
		running: make([]int, 0, cfg.Concurrency),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start runs cycles until ctx is cancelled or Stop is called. Termination is
// checked once per iteration, so an in-flight cycle always completes first.
func (l *Loop) Start(ctx context.Context) error {
	defer close(l.doneCh)
	l.logger.Info("scheduler started",
		"concurrency", l.config.Concurrency,
		"slice", l.config.SliceDuration,
	)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopping (context cancelled)")
			l.Shutdown()
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("scheduler stopping (stop called)")
			l.Shutdown()
			return nil
		default:
		}

		busy, err := l.Tick()
		if err != nil {
			l.logger.Error("tick error", "error", err)
		}
		if !busy {
			l.logger.Debug("idle")
		}
		l.pace(ctx)
	}
}

// pace sleeps one slice, waking early on termination so it is observed on
// the next iteration.
func (l *Loop) pace(ctx context.Context) {
	timer := time.NewTimer(l.config.SliceDuration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-l.stopCh:
	case <-timer.C:
	}
}

// Stop requests shutdown and waits until Start has finished cleanup.
// Start must have been called.
func (l *Loop) Stop() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.doneCh
	return nil
}

// Done is closed after Start returns.
func (l *Loop) Done() <-chan struct{} {
	return l.doneCh
}

// Stats returns admission counters. Safe to call from any goroutine.
func (l *Loop) Stats() Stats {
	return Stats{
		Admitted:     l.admitted.Load(),
		Dropped:      l.dropped.Load(),
		LaunchFailed: l.launchFailed.Load(),
	}
}

// Tick runs one scheduling cycle. The admission queue is drained first;
// if nothing is running or ready afterwards the cycle is idle and the clock
// does not move. busy reports whether a slice was executed.
func (l *Loop) Tick() (busy bool, err error) {
	err = l.table.Update(func(t *jobtable.Table) error {
		l.admit(t)

		if len(l.running) == 0 && t.Ready().Empty() && t.Admission().Empty() {
			return nil
		}
		busy = true
		return l.slice(t)
	})
	return busy, err
}

// Shutdown kills and reaps every job that is not DONE and stamps it with the
// final tick. With every job already DONE it signals nothing and changes
// nothing, so calling it twice is harmless.
func (l *Loop) Shutdown() {
	_ = l.table.Update(func(t *jobtable.Table) error {
		final := t.CurrentSlice()
		killed := 0
		for i := 0; i < t.Len(); i++ {
			j := t.Job(i)
			if j.State.IsTerminal() {
				continue
			}
			if err := l.procs.Kill(j.PID); err != nil {
				l.logger.Warn("kill", "index", i, "pid", j.PID, "error", err)
			}
			if err := j.MarkDone(final); err != nil {
				l.logger.Error("mark done on shutdown", "index", i, "error", err)
				continue
			}
			killed++
		}
		for !t.Ready().Empty() {
			t.Ready().Pop()
		}
		l.running = l.running[:0]
		if killed > 0 {
			l.logger.Info("shutdown killed unfinished jobs", "count", killed, "slice", final)
		}
		return nil
	})
}
