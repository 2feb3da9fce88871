package jobtable

import (
	"errors"
	"fmt"

	"github.com/me/slicer/internal/ring"
	"github.com/me/slicer/pkg/model"
)

// DefaultCapacity is the job table size used when none is configured.
const DefaultCapacity = 64

var (
	// ErrTableFull is returned by Add when every slot is taken.
	ErrTableFull = errors.New("job table full")
	// ErrAdmissionFull is returned by Submit when the admission queue is at capacity.
	ErrAdmissionFull = errors.New("admission queue full")
	// ErrPathTooLong is returned by Submit for paths over model.MaxPathLen bytes.
	ErrPathTooLong = fmt.Errorf("path exceeds %d bytes", model.MaxPathLen)
	// ErrEmptyPath is returned by Submit for an empty path.
	ErrEmptyPath = errors.New("empty path")
)

// Table is the scheduler aggregate: every admitted job, the ready queue of
// job indices, the admission queue of pending paths and the tick counter.
// Table is not safe for concurrent use; share it through a Guard.
type Table struct {
	jobs         []model.Job
	capacity     int
	currentSlice int
	ready        *ring.Ring[int]
	admission    *ring.Ring[string]
}

// New creates an empty table with room for capacity jobs.
func New(capacity int) *Table {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Table{
		jobs:      make([]model.Job, 0, capacity),
		capacity:  capacity,
		ready:     ring.New[int](capacity),
		admission: ring.New[string](capacity),
	}
}

// Capacity returns the maximum number of jobs.
func (t *Table) Capacity() int { return t.capacity }

// Len returns the number of admitted jobs, which is also the next free index.
func (t *Table) Len() int { return len(t.jobs) }

// Full reports whether no further job can be admitted.
func (t *Table) Full() bool { return len(t.jobs) >= t.capacity }

// Job returns a pointer to the job at index i, or nil if i is out of range.
func (t *Table) Job(i int) *model.Job {
	if i < 0 || i >= len(t.jobs) {
		return nil
	}
	return &t.jobs[i]
}

// Add appends a READY job for pid and queues its index.
func (t *Table) Add(pid int, path string) (int, error) {
	if t.Full() {
		return -1, ErrTableFull
	}
	idx := len(t.jobs)
	t.jobs = append(t.jobs, model.NewJob(idx, pid, path, t.currentSlice))
	if !t.ready.Push(idx) {
		// Unreachable while ready capacity equals table capacity.
		t.jobs = t.jobs[:idx]
		return -1, fmt.Errorf("ready queue full at index %d", idx)
	}
	return idx, nil
}

// Jobs returns a copy of every job in insertion order.
func (t *Table) Jobs() []model.Job {
	out := make([]model.Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// CurrentSlice returns the scheduling clock.
func (t *Table) CurrentSlice() int { return t.currentSlice }

// Advance increments the scheduling clock and returns the new value.
func (t *Table) Advance() int {
	t.currentSlice++
	return t.currentSlice
}

// Ready returns the ready queue.
func (t *Table) Ready() *ring.Ring[int] { return t.ready }

// Admission returns the admission queue.
func (t *Table) Admission() *ring.Ring[string] { return t.admission }

// Submit validates path and appends it to the admission queue.
func (t *Table) Submit(path string) error {
	switch {
	case path == "":
		return ErrEmptyPath
	case len(path) > model.MaxPathLen:
		return ErrPathTooLong
	}
	if !t.admission.Push(path) {
		return ErrAdmissionFull
	}
	return nil
}

// Settled reports whether nothing is pending and every job is DONE.
func (t *Table) Settled() bool {
	if !t.admission.Empty() || !t.ready.Empty() {
		return false
	}
	for i := range t.jobs {
		if !t.jobs[i].State.IsTerminal() {
			return false
		}
	}
	return true
}

// Snapshot copies the aggregate into a model.Snapshot.
func (t *Table) Snapshot() model.Snapshot {
	return model.Snapshot{
		CurrentSlice: t.currentSlice,
		Capacity:     t.capacity,
		ReadyLen:     t.ready.Len(),
		AdmissionLen: t.admission.Len(),
		AdmissionCap: t.admission.Cap(),
		Jobs:         t.Jobs(),
	}
}
