package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_Name(t *testing.T) {
	tests := []struct {
		status JobStatus
		name   string
		ok     bool
	}{
		{JobStatusPending, "pending", true},
		{JobStatusProcessing, "processing", true},
		{JobStatusCompleted, "completed", true},
		{JobStatusFailed, "failed", true},
		{JobStatus(4), "", false},
		{JobStatus(-1), "", false},
	}
	for _, tt := range tests {
		name, ok := tt.status.Name()
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.ok, ok)
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestJob_Err(t *testing.T) {
	failed := &Job{Status: JobStatusFailed, Results: NewJobError(CodeJobFailed, "x")}
	assert.Equal(t, CodeJobFailed, failed.Err().Code)

	done := &Job{Status: JobStatusCompleted, Results: "ok"}
	assert.Nil(t, done.Err())
}
