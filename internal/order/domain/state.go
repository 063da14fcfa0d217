package domain

import "time"

// JobState tracks the asynchronous outcome of a submitted job. Submission
// only answers "accepted", so this record is how the caller eventually
// learns whether the order went through.
type JobState string

const (
	JobStateQueued    JobState = "QUEUED"
	JobStateCompleted JobState = "COMPLETED"
	JobStateFailed    JobState = "FAILED"
)

// JobStatus is the queryable status record for one job.
type JobStatus struct {
	JobID     string    `json:"jobId"`
	State     JobState  `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewJobStatus(jobID string, state JobState, reason string) JobStatus {
	return JobStatus{JobID: jobID, State: state, Reason: reason, UpdatedAt: time.Now()}
}
