package models

import "time"

// JobStatus is the persisted lifecycle code of a job.
type JobStatus int16

const (
	JobStatusPending JobStatus = iota
	JobStatusProcessing
	JobStatusCompleted
	JobStatusFailed
)

var jobStatusNames = map[JobStatus]string{
	JobStatusPending:    "pending",
	JobStatusProcessing: "processing",
	JobStatusCompleted:  "completed",
	JobStatusFailed:     "failed",
}

// Name returns the canonical lowercase name of s. ok is false for codes
// outside the known range.
func (s JobStatus) Name() (name string, ok bool) {
	name, ok = jobStatusNames[s]
	return name, ok
}

// Terminal reports whether no further transitions can happen from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one persisted unit of deferred work. Clients submit a hook name via
// POST /api/v1/jobs and poll GET /api/v1/jobs/{id} until the job is completed
// or failed.
//
// Results is nil while the job is pending or processing. Once completed it
// holds the decoded handler value; once failed it holds a *JobError.
type Job struct {
	ID        int64     `db:"id"         json:"id"`
	Status    JobStatus `db:"status"     json:"status"`
	Hook      string    `db:"hook"       json:"hook"`
	Results   any       `db:"results"    json:"results,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Err returns the failure payload of a failed job, or nil.
func (j *Job) Err() *JobError {
	if e, ok := j.Results.(*JobError); ok {
		return e
	}
	return nil
}

// MaxHookLength is the width of the hook column.
const MaxHookLength = 255
