//go:build unix

package scheduler

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/me/slicer/internal/jobtable"
	"github.com/me/slicer/internal/process"
	"github.com/me/slicer/pkg/model"
)

// TestIntegration_RealProcesses runs short shell scripts through the full
// loop with the OS controller: launch paused, time-slice, detect exit, and
// kill what is still running at shutdown.
func TestIntegration_RealProcesses(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	script := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}
	markerA := filepath.Join(dir, "a.done")
	markerB := filepath.Join(dir, "b.done")
	quickA := script("a.sh", "touch "+markerA)
	quickB := script("b.sh", "touch "+markerB)
	forever := script("forever.sh", "while :; do :; done")

	guard := jobtable.NewGuard(jobtable.New(8))
	procs := process.NewOS(process.DefaultOptions(), nil, logger)
	sched := NewLoop(guard, procs, Config{Concurrency: 2, SliceDuration: 10 * time.Millisecond}, logger)

	for _, p := range []string{quickA, quickB, forever} {
		if _, err := guard.Submit(p); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- sched.Start(context.Background()) }()

	finished := func() bool {
		snap := guard.Snapshot()
		if len(snap.Jobs) < 2 {
			return false
		}
		return snap.Jobs[0].State == model.JobStateDone && snap.Jobs[1].State == model.JobStateDone
	}
	deadline := time.Now().Add(10 * time.Second)
	for !finished() {
		if time.Now().After(deadline) {
			sched.Stop()
			t.Fatalf("quick jobs did not finish: %+v", guard.Snapshot().Jobs)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := sched.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Start returned %v", err)
	}

	for _, m := range []string{markerA, markerB} {
		if _, err := os.Stat(m); err != nil {
			t.Errorf("marker %s missing: %v", filepath.Base(m), err)
		}
	}

	snap := guard.Snapshot()
	if len(snap.Jobs) != 3 {
		t.Fatalf("len(Jobs) = %d, want 3", len(snap.Jobs))
	}
	for _, j := range snap.Jobs {
		if j.State != model.JobStateDone {
			t.Errorf("%s: State = %s, want DONE", filepath.Base(j.Name), j.State)
		}
		if j.CompletionSlice < j.SubmissionSlice {
			t.Errorf("%s: completion %d before submission %d", filepath.Base(j.Name), j.CompletionSlice, j.SubmissionSlice)
		}
	}
	if st, err := procs.Probe(snap.Jobs[2].PID); err != nil || st != process.StatusExited {
		t.Errorf("forever.sh after shutdown = (%v, %v), want exited", st, err)
	}
}
