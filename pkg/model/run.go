package model

import "time"

// Run records one scheduler invocation and the final state of its job table.
type Run struct {
	ID            string        `json:"id"`
	Concurrency   int           `json:"concurrency"`
	SliceDuration time.Duration `json:"slice_duration"`
	Capacity      int           `json:"capacity"`
	FinalSlice    int           `json:"final_slice"`
	// Dropped and LaunchFailed count submissions that never became jobs.
	Dropped      int        `json:"dropped"`
	LaunchFailed int        `json:"launch_failed"`
	JobCount     int        `json:"job_count"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Jobs         []Job      `json:"jobs,omitempty"`
}

// Finished reports whether the run has been closed out.
func (r *Run) Finished() bool { return r.FinishedAt != nil }
