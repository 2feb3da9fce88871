// Package process launches and controls the OS processes behind scheduled
// jobs. Control is synchronous: a pause is requested and then confirmed by
// polling the child's wait status, instead of relying on signal handlers.
package process

import (
	"errors"
	"time"
)

// Status is the confirmed state of a process after a control request.
type Status int

const (
	// StatusPaused means the process is alive and stopped.
	StatusPaused Status = iota
	// StatusRunning means the process is alive and not known to be stopped.
	StatusRunning
	// StatusExited means the process terminated and has been reaped.
	StatusExited
)

func (s Status) String() string {
	switch s {
	case StatusPaused:
		return "paused"
	case StatusRunning:
		return "running"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// ErrUnknownPID is returned for a pid this controller never launched.
var ErrUnknownPID = errors.New("unknown pid")

// Controller owns the lifecycle of launched processes.
type Controller interface {
	// Launch starts path with no arguments and returns once the new
	// process is confirmed paused (or already exited).
	Launch(path string) (pid int, err error)

	// Pause requests a stop and confirms whether the process paused or exited.
	Pause(pid int) (Status, error)

	// Resume continues a paused process. Resuming a reaped pid is a no-op.
	Resume(pid int) error

	// Probe reports whether the process has exited, without blocking.
	Probe(pid int) (Status, error)

	// Kill terminates the process unconditionally and blocks until reaped.
	Kill(pid int) error
}

// Options tunes the pause confirmation protocol.
type Options struct {
	// ConfirmRetries bounds the number of wait-status polls after a stop request.
	ConfirmRetries int
	// ConfirmInterval is the delay between polls.
	ConfirmInterval time.Duration
}

// DefaultOptions returns the confirmation settings used by the scheduler.
func DefaultOptions() Options {
	return Options{
		ConfirmRetries:  20,
		ConfirmInterval: 500 * time.Microsecond,
	}
}
