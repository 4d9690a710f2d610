package models

import (
	"errors"
	"fmt"
	"maps"
)

// Error codes carried by JobError. They are stable and machine-readable; the
// HTTP layer maps them to status codes.
const (
	CodeNotQueueable       = "not_queueable"
	CodeInvalidHook        = "invalid_hook"
	CodeInsertFailed       = "insert_failed"
	CodeUpdateFailed       = "update_failed"
	CodeFetchFailed        = "fetch_failed"
	CodeJobNotFound        = "job_not_found"
	CodeJobDeleteFailed    = "job_delete_failed"
	CodeJobNotPending      = "job_not_pending"
	CodeScheduleFailed     = "schedule_failed"
	CodeInvalidStatus      = "invalid_status"
	CodeJobExecutionFailed = "job_execution_failed"
	CodeJobFailed          = "job_failed"
)

// Sentinels for errors.Is. JobError.Is matches on Code only, so any JobError
// built with the same code satisfies errors.Is against these. Never mutate them.
var (
	ErrNotQueueable       = &JobError{Code: CodeNotQueueable}
	ErrInvalidHook        = &JobError{Code: CodeInvalidHook}
	ErrInsertFailed       = &JobError{Code: CodeInsertFailed}
	ErrUpdateFailed       = &JobError{Code: CodeUpdateFailed}
	ErrFetchFailed        = &JobError{Code: CodeFetchFailed}
	ErrJobNotFound        = &JobError{Code: CodeJobNotFound}
	ErrJobDeleteFailed    = &JobError{Code: CodeJobDeleteFailed}
	ErrJobNotPending      = &JobError{Code: CodeJobNotPending}
	ErrScheduleFailed     = &JobError{Code: CodeScheduleFailed}
	ErrInvalidStatus      = &JobError{Code: CodeInvalidStatus}
	ErrJobExecutionFailed = &JobError{Code: CodeJobExecutionFailed}
	ErrJobFailed          = &JobError{Code: CodeJobFailed}
)

// JobError is the structured error of the job lifecycle. It is returned to
// callers and is also the payload persisted as the results of a failed job.
//
// Data holds auxiliary context, e.g. a secondary write failure under "update".
// The wrapped cause is not serialized.
type JobError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`

	cause error
}

// NewJobError returns a JobError with the given code and message.
func NewJobError(code, message string) *JobError {
	return &JobError{Code: code, Message: message}
}

// WrapJobError returns a JobError that wraps cause.
func WrapJobError(code, message string, cause error) *JobError {
	return &JobError{Code: code, Message: message, cause: cause}
}

func (e *JobError) Error() string {
	if e.cause != nil && e.cause.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *JobError) Unwrap() error { return e.cause }

// Is matches any JobError with the same code.
func (e *JobError) Is(target error) bool {
	t, ok := target.(*JobError)
	return ok && t.Code == e.Code
}

// WithData attaches auxiliary context under key and returns e.
func (e *JobError) WithData(key string, value any) *JobError {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// AsJobError returns a copy of err as a *JobError that the caller may
// mutate. A JobError found by unwrapping keeps its code but takes the full
// text of err as its message. Other errors are wrapped with fallbackCode.
func AsJobError(err error, fallbackCode string) *JobError {
	if err == nil {
		return nil
	}
	var je *JobError
	if !errors.As(err, &je) {
		return WrapJobError(fallbackCode, err.Error(), err)
	}
	if je == err {
		return je.clone()
	}
	return &JobError{Code: je.Code, Message: err.Error(), Data: maps.Clone(je.Data), cause: err}
}

func (e *JobError) clone() *JobError {
	cp := *e
	cp.Data = maps.Clone(e.Data)
	return &cp
}
