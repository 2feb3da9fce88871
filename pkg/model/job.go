package model

import "strconv"

// MaxPathLen bounds an executable path accepted for admission.
const MaxPathLen = 255

// MaxNameLen bounds the display name stored on a Job.
const MaxNameLen = 255

// Job is one admitted unit of work: a suspended-or-running OS process plus
// its scheduling counters. All timing fields are measured in ticks.
type Job struct {
	Index           int      `json:"index"`
	PID             int      `json:"pid"`
	Name            string   `json:"name"`
	State           JobState `json:"state"`
	Started         bool     `json:"started"`
	SubmissionSlice int      `json:"submission_slice"`
	CompletionSlice int      `json:"completion_slice"`
	SlicesRan       int      `json:"slices_ran"`
	SlicesWaited    int      `json:"slices_waited"`
}

// NewJob returns a READY job admitted at tick slice.
func NewJob(index, pid int, path string, slice int) Job {
	name := path
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	return Job{
		Index:           index,
		PID:             pid,
		Name:            name,
		State:           JobStateReady,
		SubmissionSlice: slice,
	}
}

// Transition moves the job to next, rejecting moves the state machine forbids.
func (j *Job) Transition(next JobState) error {
	if !j.State.CanTransitionTo(next) {
		return &InvalidTransitionError{
			Entity: "job",
			ID:     strconv.Itoa(j.Index),
			From:   j.State.String(),
			To:     next.String(),
		}
	}
	j.State = next
	return nil
}

// MarkDone moves the job into DONE and stamps its completion tick.
// CompletionSlice is only ever written here, so a second call fails.
func (j *Job) MarkDone(slice int) error {
	if err := j.Transition(JobStateDone); err != nil {
		return err
	}
	j.CompletionSlice = slice
	return nil
}
