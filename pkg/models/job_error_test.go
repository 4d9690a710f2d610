package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobError_IsMatchesCode(t *testing.T) {
	err := NewJobError(CodeJobNotFound, "the specified job could not be found")

	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.NotErrorIs(t, err, ErrFetchFailed)

	wrapped := fmt.Errorf("handler: %w", err)
	assert.ErrorIs(t, wrapped, ErrJobNotFound)
}

func TestJobError_Error(t *testing.T) {
	plain := NewJobError(CodeInvalidHook, "no listeners")
	assert.Equal(t, "invalid_hook: no listeners", plain.Error())

	cause := errors.New("connection refused")
	wrapped := WrapJobError(CodeInsertFailed, "failed to insert the job", cause)
	assert.Equal(t, "insert_failed: failed to insert the job: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	same := WrapJobError(CodeJobFailed, "boom", errors.New("boom"))
	assert.Equal(t, "job_failed: boom", same.Error())
}

func TestJobError_WithData(t *testing.T) {
	secondary := NewJobError(CodeUpdateFailed, "disk full")
	err := NewJobError(CodeJobExecutionFailed, "boom").
		WithData("update", secondary).
		WithData("result", 42)

	require.Len(t, err.Data, 2)
	assert.Same(t, secondary, err.Data["update"])
	assert.Equal(t, 42, err.Data["result"])
}

func TestAsJobError(t *testing.T) {
	assert.Nil(t, AsJobError(nil, CodeJobFailed))

	je := NewJobError(CodeNotQueueable, "nope").WithData("hook", "send_email")
	got := AsJobError(je, CodeJobFailed)
	assert.NotSame(t, je, got)
	assert.Equal(t, je.Code, got.Code)
	assert.Equal(t, "nope", got.Message)
	got.WithData("update", "disk full")
	assert.NotContains(t, je.Data, "update")

	wrapped := AsJobError(fmt.Errorf("ctx: %w", je), CodeJobFailed)
	assert.Equal(t, CodeNotQueueable, wrapped.Code)
	assert.Equal(t, "ctx: not_queueable: nope", wrapped.Message)
	assert.ErrorIs(t, wrapped, je)

	plain := errors.New("smtp timeout")
	got = AsJobError(plain, CodeJobFailed)
	assert.Equal(t, CodeJobFailed, got.Code)
	assert.Equal(t, "smtp timeout", got.Message)
	assert.ErrorIs(t, got, plain)
}

func TestSentinelsHaveDistinctCodes(t *testing.T) {
	sentinels := []*JobError{
		ErrNotQueueable, ErrInvalidHook, ErrInsertFailed, ErrUpdateFailed,
		ErrFetchFailed, ErrJobNotFound, ErrJobDeleteFailed, ErrJobNotPending,
		ErrScheduleFailed, ErrInvalidStatus, ErrJobExecutionFailed, ErrJobFailed,
	}
	seen := make(map[string]bool)
	for _, s := range sentinels {
		assert.False(t, seen[s.Code], "duplicate code %s", s.Code)
		seen[s.Code] = true
	}
}

func TestAsJobError_WrappedSentinelKeepsText(t *testing.T) {
	got := AsJobError(fmt.Errorf("smtp: %w", ErrJobFailed), CodeJobFailed)

	assert.Equal(t, CodeJobFailed, got.Code)
	assert.Equal(t, "smtp: job_failed: ", got.Message)
	assert.Nil(t, ErrJobFailed.Data)
}
