package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/me/slicer/pkg/model"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name           string
		job            model.Job
		wantTurnaround int
		wantWait       int
	}{
		{
			name:           "done",
			job:            model.Job{State: model.JobStateDone, SubmissionSlice: 2, CompletionSlice: 9, SlicesRan: 4, SlicesWaited: 3},
			wantTurnaround: 7,
			wantWait:       3,
		},
		{
			name:           "done negative falls back",
			job:            model.Job{State: model.JobStateDone, SubmissionSlice: 9, CompletionSlice: 2, SlicesRan: 4},
			wantTurnaround: 4,
		},
		{
			name:           "done implausible falls back",
			job:            model.Job{State: model.JobStateDone, CompletionSlice: MaxPlausibleTurnaround + 1, SlicesRan: 5},
			wantTurnaround: 5,
		},
		{
			name:           "done at the limit",
			job:            model.Job{State: model.JobStateDone, CompletionSlice: MaxPlausibleTurnaround, SlicesRan: 5},
			wantTurnaround: MaxPlausibleTurnaround,
		},
		{
			name:           "not done uses slices ran",
			job:            model.Job{State: model.JobStateReady, SubmissionSlice: 1, SlicesRan: 2, SlicesWaited: 6},
			wantTurnaround: 2,
			wantWait:       6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Build([]model.Job{tt.job})
			if len(rows) != 1 {
				t.Fatalf("len(rows) = %d, want 1", len(rows))
			}
			if rows[0].Turnaround != tt.wantTurnaround {
				t.Errorf("Turnaround = %d, want %d", rows[0].Turnaround, tt.wantTurnaround)
			}
			if rows[0].Wait != tt.wantWait {
				t.Errorf("Wait = %d, want %d", rows[0].Wait, tt.wantWait)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Row{{Turnaround: 6, Wait: 2}, {Turnaround: 7, Wait: 3}})
	if s.Jobs != 2 || s.MeanTurnaround != 6.5 || s.MeanWait != 2.5 {
		t.Errorf("Summarize = %+v, want {2 6.5 2.5}", s)
	}
	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", s)
	}
}

func TestWrite(t *testing.T) {
	jobs := []model.Job{
		{Name: "/bin/a", PID: 101, State: model.JobStateDone, CompletionSlice: 6, SlicesRan: 3, SlicesWaited: 2},
		{Name: "/bin/b", PID: 102, State: model.JobStateDone, CompletionSlice: 7, SlicesRan: 3, SlicesWaited: 3},
	}
	var buf bytes.Buffer
	if err := Write(&buf, Build(jobs)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Execution Report:", "Turnaround Time", "Wait Time", "6 TSLICES", "mean turnaround 6.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "/bin/a") > strings.Index(out, "/bin/b") {
		t.Error("rows not in insertion order")
	}
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "(no jobs)") {
		t.Errorf("output = %q, want (no jobs)", buf.String())
	}
}
