//go:build unix

package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// OS controls real child processes with SIGSTOP/SIGCONT/SIGKILL and wait4.
// Every job leads its own process group and signals go to the whole group,
// so subprocesses a job starts are paused, resumed and killed with it. Only
// the leader is waited on. Reaped pids are remembered and never signalled
// again, so a recycled pid cannot be hit by a stale job.
type OS struct {
	opts   Options
	output *os.File
	logger *slog.Logger

	mu     sync.Mutex
	known  map[int]bool
	reaped map[int]bool
}

// NewOS creates a controller. Children write stdout and stderr to output;
// a nil output discards them.
func NewOS(opts Options, output *os.File, logger *slog.Logger) *OS {
	if opts.ConfirmRetries < 0 {
		opts.ConfirmRetries = 0
	}
	return &OS{
		opts:   opts,
		output: output,
		logger: logger.With("component", "process"),
		known:  make(map[int]bool),
		reaped: make(map[int]bool),
	}
}

// Launch starts path in its own process group and pauses it before returning.
func (c *OS) Launch(path string) (int, error) {
	cmd := exec.Command(path)
	if c.output != nil {
		cmd.Stdout = c.output
		cmd.Stderr = c.output
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", path, err)
	}
	pid := cmd.Process.Pid
	// wait4 below owns reaping; drop the os.Process handle.
	_ = cmd.Process.Release()

	c.mu.Lock()
	c.known[pid] = true
	c.mu.Unlock()

	st, err := c.Pause(pid)
	if err != nil {
		_ = c.Kill(pid)
		return 0, fmt.Errorf("pause new process %d: %w", pid, err)
	}
	c.logger.Debug("launched", "pid", pid, "path", path, "status", st)
	return pid, nil
}

// Pause sends SIGSTOP to the job's group and polls wait4 until the stop or an exit is reported.
func (c *OS) Pause(pid int) (Status, error) {
	if done, err := c.check(pid); err != nil || done {
		return StatusExited, err
	}
	if err := signalGroup(pid, unix.SIGSTOP); err != nil {
		if errors.Is(err, unix.ESRCH) {
			c.markReaped(pid)
			return StatusExited, nil
		}
		return StatusRunning, fmt.Errorf("stop %d: %w", pid, err)
	}

	for i := 0; i <= c.opts.ConfirmRetries; i++ {
		st, settled, err := c.wait(pid, unix.WNOHANG|unix.WUNTRACED)
		if err != nil {
			return st, err
		}
		if settled {
			return st, nil
		}
		if i < c.opts.ConfirmRetries {
			time.Sleep(c.opts.ConfirmInterval)
		}
	}

	// A process that was already stopped reports no new stop.
	alive, err := c.alive(pid)
	if err != nil || alive {
		return StatusPaused, err
	}
	return StatusExited, nil
}

// Resume sends SIGCONT to the job's group.
func (c *OS) Resume(pid int) error {
	if done, err := c.check(pid); err != nil || done {
		return err
	}
	if err := signalGroup(pid, unix.SIGCONT); err != nil {
		if errors.Is(err, unix.ESRCH) {
			c.markReaped(pid)
			return nil
		}
		return fmt.Errorf("continue %d: %w", pid, err)
	}
	return nil
}

// Probe checks for exit without blocking.
func (c *OS) Probe(pid int) (Status, error) {
	if done, err := c.check(pid); err != nil || done {
		return StatusExited, err
	}
	st, settled, err := c.wait(pid, unix.WNOHANG)
	if err != nil {
		return st, err
	}
	if settled && st == StatusExited {
		return StatusExited, nil
	}
	alive, err := c.alive(pid)
	if err != nil || alive {
		return StatusRunning, err
	}
	return StatusExited, nil
}

// Kill sends SIGKILL to the job's group and blocks until the leader is reaped.
func (c *OS) Kill(pid int) error {
	if done, err := c.check(pid); err != nil || done {
		return err
	}
	if err := signalGroup(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill %d: %w", pid, err)
	}
	for {
		st, _, err := c.wait(pid, 0)
		if err != nil {
			return err
		}
		if st == StatusExited {
			return nil
		}
	}
}

// check returns done=true for pids that were already reaped.
func (c *OS) check(pid int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.known[pid] {
		return false, fmt.Errorf("pid %d: %w", pid, ErrUnknownPID)
	}
	return c.reaped[pid], nil
}

// markReaped records the leader's exit and kills whatever is left of its
// group. A job ends with its leader; orphaned subprocesses do not outlive it.
func (c *OS) markReaped(pid int) {
	c.mu.Lock()
	first := !c.reaped[pid]
	c.reaped[pid] = true
	c.mu.Unlock()
	if !first {
		return
	}
	// A live member keeps the group id from being reused.
	if err := signalGroup(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		c.logger.Warn("kill orphaned group", "pid", pid, "error", err)
	}
}

// signalGroup sends sig to the process group led by pid.
func signalGroup(pid int, sig unix.Signal) error {
	return unix.Kill(-pid, sig)
}

// wait runs wait4 once (retrying EINTR). settled reports whether a state
// change was observed.
func (c *OS) wait(pid, options int) (st Status, settled bool, err error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, options, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.ECHILD) {
			c.markReaped(pid)
			return StatusExited, true, nil
		}
		if err != nil {
			return StatusRunning, false, fmt.Errorf("wait4 %d: %w", pid, err)
		}
		if wpid == 0 {
			return StatusRunning, false, nil
		}
		switch {
		case ws.Exited(), ws.Signaled():
			c.markReaped(pid)
			c.logger.Debug("reaped", "pid", pid, "exit_code", ws.ExitStatus(), "signaled", ws.Signaled())
			return StatusExited, true, nil
		case ws.Stopped():
			return StatusPaused, true, nil
		default:
			return StatusRunning, false, nil
		}
	}
}

// alive is the last-resort signal-0 probe.
func (c *OS) alive(pid int) (bool, error) {
	if err := unix.Kill(pid, 0); err != nil {
		if errors.Is(err, unix.ESRCH) {
			c.markReaped(pid)
			return false, nil
		}
		return true, fmt.Errorf("probe %d: %w", pid, err)
	}
	return true, nil
}
