package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/hookqueue/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, hook string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (status, hook, results) VALUES ($1, $2, NULL) RETURNING id`,
		models.JobStatusPending, hook,
	).Scan(&id)
	if err != nil {
		return 0, models.WrapJobError(models.CodeInsertFailed, "failed to insert the job", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id int64, status models.JobStatus, result any) error {
	encoded, err := encodeResult(result)
	if err != nil {
		return models.WrapJobError(models.CodeUpdateFailed, "failed to update the job status and result", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, results = $3, updated_at = NOW() WHERE id = $1`,
		id, status, encoded)
	if err != nil {
		return models.WrapJobError(models.CodeUpdateFailed, "failed to update the job status and result", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewJobError(models.CodeUpdateFailed, "failed to update the job status and result: no such job")
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id int64, result any) error {
	return s.UpdateJob(ctx, id, models.JobStatusCompleted, result)
}

func (s *PostgresStore) FailJob(ctx context.Context, id int64, jobErr *models.JobError) error {
	return s.UpdateJob(ctx, id, models.JobStatusFailed, jobErr)
}

func (s *PostgresStore) ClaimJob(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, models.JobStatusProcessing, models.JobStatusPending)
	if err != nil {
		return models.WrapJobError(models.CodeUpdateFailed, "failed to claim the job", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewJobError(models.CodeJobNotPending, "the job is not pending")
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	var (
		j   models.Job
		raw []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, hook, results, created_at, updated_at FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.Status, &j.Hook, &raw, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewJobError(models.CodeJobNotFound, "the specified job could not be found")
	}
	if err != nil {
		return nil, models.WrapJobError(models.CodeFetchFailed, "failed to fetch the job", err)
	}

	j.Results, err = decodeResult(raw)
	if err != nil {
		return nil, models.WrapJobError(models.CodeFetchFailed, "failed to decode the job results", err)
	}
	return &j, nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return models.WrapJobError(models.CodeJobDeleteFailed, "failed to delete the specified job", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewJobError(models.CodeJobDeleteFailed, "failed to delete the specified job")
	}
	return nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
