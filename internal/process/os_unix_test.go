//go:build unix

package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeScript writes an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// waitExited probes pid until it exits or the deadline passes.
func waitExited(t *testing.T, c *OS, pid int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := c.Probe(pid)
		if err != nil {
			t.Fatalf("Probe: %v", err)
		}
		if st == StatusExited {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("pid %d did not exit", pid)
}

func TestOS_LaunchPausedThenRunsToCompletion(t *testing.T) {
	c := NewOS(DefaultOptions(), nil, newTestLogger())
	marker := filepath.Join(t.TempDir(), "ran")
	script := writeScript(t, "touch "+marker)

	pid, err := c.Launch(script)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	// Paused processes make no progress.
	time.Sleep(100 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Fatal("process ran before it was resumed")
	}
	if st, err := c.Probe(pid); err != nil || st == StatusExited {
		t.Fatalf("Probe after launch = (%v, %v), want alive", st, err)
	}

	if err := c.Resume(pid); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	waitExited(t, c, pid)

	if _, err := os.Stat(marker); err != nil {
		t.Errorf("marker not created: %v", err)
	}
	// Reaped pids are never signalled again.
	if st, err := c.Pause(pid); err != nil || st != StatusExited {
		t.Errorf("Pause after exit = (%v, %v), want (exited, nil)", st, err)
	}
	if err := c.Resume(pid); err != nil {
		t.Errorf("Resume after exit: %v", err)
	}
	if err := c.Kill(pid); err != nil {
		t.Errorf("Kill after exit: %v", err)
	}
}

func TestOS_PauseConfirmsStop(t *testing.T) {
	c := NewOS(DefaultOptions(), nil, newTestLogger())
	script := writeScript(t, "while :; do :; done")

	pid, err := c.Launch(script)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	t.Cleanup(func() { c.Kill(pid) })

	if err := c.Resume(pid); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	st, err := c.Pause(pid)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if st != StatusPaused {
		t.Errorf("Pause = %v, want paused", st)
	}

	// A second pause of a stopped process falls back to the liveness probe.
	st, err = c.Pause(pid)
	if err != nil || st != StatusPaused {
		t.Errorf("second Pause = (%v, %v), want (paused, nil)", st, err)
	}
}

func TestOS_PauseDetectsExit(t *testing.T) {
	c := NewOS(DefaultOptions(), nil, newTestLogger())
	script := writeScript(t, "exit 3")

	pid, err := c.Launch(script)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := c.Resume(pid); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	st, err := c.Pause(pid)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if st != StatusExited {
		t.Errorf("Pause after natural exit = %v, want exited", st)
	}
}

func TestOS_KillReapsPausedProcess(t *testing.T) {
	c := NewOS(DefaultOptions(), nil, newTestLogger())
	script := writeScript(t, "sleep 30")

	pid, err := c.Launch(script)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := c.Kill(pid); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if st, err := c.Probe(pid); err != nil || st != StatusExited {
		t.Errorf("Probe after Kill = (%v, %v), want (exited, nil)", st, err)
	}
}

func TestOS_LaunchFailure(t *testing.T) {
	c := NewOS(DefaultOptions(), nil, newTestLogger())
	if _, err := c.Launch(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Launch of missing executable should fail")
	}
}

func TestOS_UnknownPID(t *testing.T) {
	c := NewOS(DefaultOptions(), nil, newTestLogger())
	if err := c.Resume(os.Getpid()); !errors.Is(err, ErrUnknownPID) {
		t.Errorf("Resume(self) = %v, want ErrUnknownPID", err)
	}
}

// procState returns the one-letter state from /proc/<pid>/stat, or "" once
// the process is gone.
func procState(t *testing.T, pid int) string {
	t.Helper()
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return ""
	}
	s := string(data)
	i := strings.LastIndexByte(s, ')')
	if i < 0 || i+2 >= len(s) {
		t.Fatalf("unexpected stat line %q", s)
	}
	return s[i+2 : i+3]
}

// startWithChild launches a job that starts a background sleep, resumes it
// and returns the job pid and the child pid once the child is recorded.
func startWithChild(t *testing.T, c *OS, body string) (int, int) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("reads /proc")
	}
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	script := writeScript(t, "sleep 30 &\necho $! > "+pidFile+"\n"+body)

	pid, err := c.Launch(script)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	t.Cleanup(func() { c.Kill(pid) })
	if err := c.Resume(pid); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(pidFile)
		if err == nil && strings.HasSuffix(string(data), "\n") {
			child, err := strconv.Atoi(strings.TrimSpace(string(data)))
			if err != nil {
				t.Fatalf("child pid %q: %v", data, err)
			}
			return pid, child
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("child pid never written")
	return 0, 0
}

// waitGone waits until pid no longer runs. Zombies count as gone: the
// reparented child is reaped by init, not by this process.
func waitGone(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := procState(t, pid); st == "" || st == "Z" || st == "X" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("pid %d still running (state %s)", pid, procState(t, pid))
}

func TestOS_SignalsReachSubprocesses(t *testing.T) {
	c := NewOS(DefaultOptions(), nil, newTestLogger())
	pid, child := startWithChild(t, c, "wait")

	st, err := c.Pause(pid)
	if err != nil || st != StatusPaused {
		t.Fatalf("Pause = (%v, %v), want (paused, nil)", st, err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for procState(t, child) != "T" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := procState(t, child); got != "T" {
		t.Fatalf("child state while job paused = %q, want T", got)
	}

	if err := c.Resume(pid); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	deadline = time.Now().Add(5 * time.Second)
	for procState(t, child) == "T" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := procState(t, child); got == "T" {
		t.Fatal("child still stopped after resume")
	}

	if err := c.Kill(pid); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	waitGone(t, child)
}

func TestOS_ExitKillsOrphanedSubprocesses(t *testing.T) {
	c := NewOS(DefaultOptions(), nil, newTestLogger())
	pid, child := startWithChild(t, c, "exit 0")

	waitExited(t, c, pid)
	waitGone(t, child)
}
