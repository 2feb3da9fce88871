package model

import (
	"errors"
	"strings"
	"testing"
)

func TestJobState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    JobState
		terminal bool
	}{
		{JobStateReady, false},
		{JobStateRunning, false},
		{JobStateDone, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("JobState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestJobState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  JobState
		to    JobState
		valid bool
	}{
		// Valid transitions
		{JobStateReady, JobStateRunning, true},
		{JobStateReady, JobStateDone, true},
		{JobStateRunning, JobStateReady, true},
		{JobStateRunning, JobStateDone, true},

		// Invalid transitions
		{JobStateReady, JobStateReady, false},
		{JobStateRunning, JobStateRunning, false},
		{JobStateDone, JobStateReady, false},
		{JobStateDone, JobStateRunning, false},
		{JobStateDone, JobStateDone, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("JobState(%q).CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestNewJob_TruncatesName(t *testing.T) {
	long := "/" + strings.Repeat("x", MaxNameLen+10)
	j := NewJob(0, 42, long, 5)
	if len(j.Name) != MaxNameLen {
		t.Errorf("len(Name) = %d, want %d", len(j.Name), MaxNameLen)
	}
	if j.State != JobStateReady {
		t.Errorf("State = %q, want READY", j.State)
	}
	if j.SubmissionSlice != 5 || j.SlicesRan != 0 || j.SlicesWaited != 0 || j.Started {
		t.Errorf("unexpected counters on new job: %+v", j)
	}
}

func TestJob_MarkDoneOnce(t *testing.T) {
	j := NewJob(1, 100, "/bin/true", 2)
	if err := j.Transition(JobStateRunning); err != nil {
		t.Fatalf("Transition(RUNNING): %v", err)
	}
	if err := j.MarkDone(9); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if j.CompletionSlice != 9 {
		t.Errorf("CompletionSlice = %d, want 9", j.CompletionSlice)
	}

	err := j.MarkDone(12)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("second MarkDone error = %v, want InvalidTransitionError", err)
	}
	if j.CompletionSlice != 9 {
		t.Errorf("CompletionSlice changed to %d after rejected MarkDone", j.CompletionSlice)
	}
}
