package process

import (
	"errors"
	"fmt"
	"sync"
)

// Op names a controller call recorded by Fake.
type Op string

const (
	OpLaunch Op = "launch"
	OpPause  Op = "pause"
	OpResume Op = "resume"
	OpProbe  Op = "probe"
	OpKill   Op = "kill"
)

// Call is one recorded controller call.
type Call struct {
	Op  Op
	PID int
}

// FakeProc is the simulated state of one Fake process.
type FakeProc struct {
	PID     int
	Path    string
	Budget  int // slices of work before the process exits on its own
	Ran     int
	Running bool
	Exited  bool
	Killed  bool
}

// Fake is an in-memory Controller. A process does one slice of work each
// time it is paused after a resume and exits once its budget is used up.
type Fake struct {
	mu sync.Mutex

	// DefaultBudget applies to paths without an entry in Budgets.
	DefaultBudget int
	// Budgets maps a path to its work budget in slices.
	Budgets map[string]int
	// FailLaunch makes Launch fail for the given paths.
	FailLaunch map[string]bool
	// ExitDuringPause makes the next pause of a pid observe an exit that
	// happened after the stop request was sent.
	ExitDuringPause map[int]bool

	nextPID int
	procs   map[int]*FakeProc
	calls   []Call
}

// ErrLaunchFailed is returned by Fake.Launch for paths listed in FailLaunch.
var ErrLaunchFailed = errors.New("launch failed")

// NewFake returns a Fake whose processes need budget slices to finish.
func NewFake(budget int) *Fake {
	return &Fake{
		DefaultBudget:   budget,
		Budgets:         make(map[string]int),
		FailLaunch:      make(map[string]bool),
		ExitDuringPause: make(map[int]bool),
		nextPID:         1000,
		procs:           make(map[int]*FakeProc),
	}
}

func (f *Fake) Launch(path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailLaunch[path] {
		return 0, fmt.Errorf("start %s: %w", path, ErrLaunchFailed)
	}
	f.nextPID++
	pid := f.nextPID
	budget, ok := f.Budgets[path]
	if !ok {
		budget = f.DefaultBudget
	}
	f.procs[pid] = &FakeProc{PID: pid, Path: path, Budget: budget}
	f.calls = append(f.calls, Call{Op: OpLaunch, PID: pid})
	return pid, nil
}

func (f *Fake) Pause(pid int) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(pid, OpPause)
	if err != nil {
		return StatusExited, err
	}
	if p.Exited {
		return StatusExited, nil
	}
	if p.Running {
		p.Ran++
		p.Running = false
	}
	if p.Ran >= p.Budget || f.ExitDuringPause[pid] {
		delete(f.ExitDuringPause, pid)
		p.Exited = true
		return StatusExited, nil
	}
	return StatusPaused, nil
}

func (f *Fake) Resume(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(pid, OpResume)
	if err != nil {
		return err
	}
	if !p.Exited {
		p.Running = true
	}
	return nil
}

func (f *Fake) Probe(pid int) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(pid, OpProbe)
	if err != nil {
		return StatusExited, err
	}
	switch {
	case p.Exited:
		return StatusExited, nil
	case p.Running:
		return StatusRunning, nil
	default:
		return StatusPaused, nil
	}
}

func (f *Fake) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup(pid, OpKill)
	if err != nil {
		return err
	}
	if !p.Exited {
		p.Exited = true
		p.Killed = true
		p.Running = false
	}
	return nil
}

// Proc returns a copy of the simulated process state.
func (f *Fake) Proc(pid int) (FakeProc, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.procs[pid]
	if !ok {
		return FakeProc{}, false
	}
	return *p, true
}

// Running returns the number of processes currently resumed.
func (f *Fake) Running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.procs {
		if p.Running {
			n++
		}
	}
	return n
}

// Calls returns every recorded call in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Launched returns the number of processes created.
func (f *Fake) Launched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.procs)
}

func (f *Fake) lookup(pid int, op Op) (*FakeProc, error) {
	p, ok := f.procs[pid]
	if !ok {
		return nil, fmt.Errorf("pid %d: %w", pid, ErrUnknownPID)
	}
	f.calls = append(f.calls, Call{Op: op, PID: pid})
	return p, nil
}
