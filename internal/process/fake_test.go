package process

import (
	"errors"
	"testing"
)

func TestFake_BudgetExhaustion(t *testing.T) {
	f := NewFake(2)
	pid, err := f.Launch("/job")
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	// Pausing a process that was never resumed does no work.
	if st, _ := f.Pause(pid); st != StatusPaused {
		t.Fatalf("Pause before resume = %v, want paused", st)
	}

	f.Resume(pid)
	if st, _ := f.Pause(pid); st != StatusPaused {
		t.Fatalf("Pause after 1 slice = %v, want paused", st)
	}
	f.Resume(pid)
	if st, _ := f.Pause(pid); st != StatusExited {
		t.Fatalf("Pause after 2 slices = %v, want exited", st)
	}
	if p, _ := f.Proc(pid); p.Ran != 2 || p.Killed {
		t.Errorf("proc = %+v, want Ran=2 not killed", p)
	}
}

func TestFake_ExitDuringPause(t *testing.T) {
	f := NewFake(10)
	pid, _ := f.Launch("/job")
	f.ExitDuringPause[pid] = true
	f.Resume(pid)

	if st, _ := f.Pause(pid); st != StatusExited {
		t.Fatalf("Pause = %v, want exited", st)
	}
	if st, _ := f.Probe(pid); st != StatusExited {
		t.Errorf("Probe = %v, want exited", st)
	}
}

func TestFake_LaunchFailureAndUnknownPID(t *testing.T) {
	f := NewFake(1)
	f.FailLaunch["/bad"] = true
	if _, err := f.Launch("/bad"); !errors.Is(err, ErrLaunchFailed) {
		t.Errorf("Launch(/bad) = %v, want ErrLaunchFailed", err)
	}
	if err := f.Kill(1); !errors.Is(err, ErrUnknownPID) {
		t.Errorf("Kill(1) = %v, want ErrUnknownPID", err)
	}
	if f.Launched() != 0 {
		t.Errorf("Launched() = %d, want 0", f.Launched())
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusPaused:  "paused",
		StatusRunning: "running",
		StatusExited:  "exited",
		Status(42):    "unknown",
	}
	for st, want := range tests {
		if got := st.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", st, got, want)
		}
	}
}
