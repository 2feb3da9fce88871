package model

// JobState represents the lifecycle state of a Job.
type JobState string

const (
	JobStateReady   JobState = "READY"
	JobStateRunning JobState = "RUNNING"
	JobStateDone    JobState = "DONE"
)

// String returns the string representation of the job state.
func (s JobState) String() string {
	return string(s)
}

// IsTerminal returns true if the job is in a final state.
func (s JobState) IsTerminal() bool {
	return s == JobStateDone
}

// ValidJobTransitions defines the allowed state transitions for Jobs.
// READY -> DONE only happens when shutdown kills a queued job.
var ValidJobTransitions = map[JobState][]JobState{
	JobStateReady:   {JobStateRunning, JobStateDone},
	JobStateRunning: {JobStateReady, JobStateDone},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s JobState) CanTransitionTo(next JobState) bool {
	for _, allowed := range ValidJobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
