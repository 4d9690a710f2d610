package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hookqueue/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// JobStore is the job repository: plain CRUD over job rows, no business
// logic. Every failure is a *models.JobError carrying one of the insert_failed,
// update_failed, fetch_failed, job_not_found, job_delete_failed or
// job_not_pending codes.
type JobStore interface {
	// CreateJob inserts a pending job with no results and returns its id.
	CreateJob(ctx context.Context, hook string) (int64, error)
	// UpdateJob overwrites the status and results of an existing job.
	UpdateJob(ctx context.Context, id int64, status models.JobStatus, result any) error
	// CompleteJob marks the job completed with result.
	CompleteJob(ctx context.Context, id int64, result any) error
	// FailJob marks the job failed with jobErr as its results.
	FailJob(ctx context.Context, id int64, jobErr *models.JobError) error
	// ClaimJob moves a pending job to processing. It fails with
	// job_not_pending when the job is in any other state.
	ClaimJob(ctx context.Context, id int64) error
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	DeleteJob(ctx context.Context, id int64) error
}

// APIKeyStore persists API keys used by the auth middleware.
type APIKeyStore interface {
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	JobStore
	APIKeyStore
}
