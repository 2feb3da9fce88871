package scheduler

import (
	"errors"
	"fmt"

	"github.com/me/slicer/internal/jobtable"
	"github.com/me/slicer/internal/process"
	"github.com/me/slicer/pkg/model"
)

// slice runs one busy cycle against the table. Job-level failures are logged
// and never abort the cycle; only broken table invariants are returned.
func (l *Loop) slice(t *jobtable.Table) error {
	// Phase 0: Advance the clock. Every timestamp below uses the new value.
	now := t.Advance()

	var errs []error

	// Phase 1: Preempt the jobs resumed last cycle.
	if err := l.preempt(t, now); err != nil {
		errs = append(errs, fmt.Errorf("phase 1 (preempt): %w", err))
	}

	// Phase 2: Dispatch up to Concurrency jobs from the ready queue.
	if err := l.dispatch(t, now); err != nil {
		errs = append(errs, fmt.Errorf("phase 2 (dispatch): %w", err))
	}

	// Phase 3: Age every job still waiting.
	l.age(t)

	return errors.Join(errs...)
}

func (l *Loop) preempt(t *jobtable.Table, now int) error {
	prev := l.running
	l.running = make([]int, 0, l.config.Concurrency)

	var errs []error
	for _, idx := range prev {
		j := t.Job(idx)
		if j == nil {
			errs = append(errs, fmt.Errorf("running index %d out of range", idx))
			continue
		}
		j.SlicesRan++

		st, err := l.procs.Pause(j.PID)
		if err != nil {
			l.logger.Warn("pause", "index", idx, "pid", j.PID, "error", err)
		}

		if st == process.StatusExited {
			if err := j.MarkDone(now); err != nil {
				errs = append(errs, err)
				continue
			}
			l.logger.Info("job finished",
				"index", idx,
				"pid", j.PID,
				"slice", now,
				"slices_ran", j.SlicesRan,
			)
			continue
		}

		if err := j.Transition(model.JobStateReady); err != nil {
			errs = append(errs, err)
			continue
		}
		if !t.Ready().Push(idx) {
			errs = append(errs, fmt.Errorf("ready queue full requeueing job %d", idx))
		}
	}
	return errors.Join(errs...)
}

func (l *Loop) dispatch(t *jobtable.Table, now int) error {
	var errs []error
	for len(l.running) < l.config.Concurrency {
		idx, ok := t.Ready().Pop()
		if !ok {
			break
		}
		j := t.Job(idx)
		if j == nil {
			errs = append(errs, fmt.Errorf("ready index %d out of range", idx))
			continue
		}
		if j.State.IsTerminal() {
			l.logger.Debug("skipping finished job in ready queue", "index", idx)
			continue
		}

		if err := l.procs.Resume(j.PID); err != nil {
			l.logger.Warn("resume", "index", idx, "pid", j.PID, "error", err)
			if st, perr := l.procs.Probe(j.PID); perr == nil && st == process.StatusExited {
				if err := j.MarkDone(now); err != nil {
					errs = append(errs, err)
				}
				continue
			}
		}

		if err := j.Transition(model.JobStateRunning); err != nil {
			errs = append(errs, err)
			continue
		}
		if !j.Started {
			j.Started = true
			l.logger.Debug("job started", "index", idx, "pid", j.PID, "slice", now)
		}
		l.running = append(l.running, idx)
	}
	return errors.Join(errs...)
}

func (l *Loop) age(t *jobtable.Table) {
	t.Ready().Each(func(idx int) {
		if j := t.Job(idx); j != nil {
			j.SlicesWaited++
		}
	})
}
