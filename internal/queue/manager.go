package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/hookqueue/internal/store"
	"github.com/kiranshivaraju/hookqueue/pkg/models"
)

// Hooks is the part of the handler registry the manager depends on.
type Hooks interface {
	IsQueueable(hook string) bool
	HasListener(hook string) bool
	Dispatch(ctx context.Context, hook string, input any) (any, error)
}

// Scheduler registers a one-shot future Execute for a job.
type Scheduler interface {
	Schedule(ctx context.Context, jobID int64, runAt time.Time) error
}

// Manager drives job state transitions. It is the only component that
// writes job rows.
type Manager struct {
	jobs  store.JobStore
	hooks Hooks
	sched Scheduler
	now   func() time.Time
}

// NewManager creates a Manager from its collaborators.
func NewManager(jobs store.JobStore, hooks Hooks, sched Scheduler) *Manager {
	return &Manager{jobs: jobs, hooks: hooks, sched: sched, now: time.Now}
}

// ValidateHook checks the allow-list first, then listener presence.
func (m *Manager) ValidateHook(hook string) error {
	if !m.hooks.IsQueueable(hook) {
		return models.NewJobError(models.CodeNotQueueable, "The provided hook is not queueable.")
	}
	if !m.hooks.HasListener(hook) {
		return models.NewJobError(models.CodeInvalidHook, "No listeners found for the provided hook.")
	}
	return nil
}

// Create persists a pending job for hook and schedules its execution.
//
// When scheduling fails the row stays pending and its id is returned
// together with a schedule_failed error.
func (m *Manager) Create(ctx context.Context, hook string) (int64, error) {
	if err := m.ValidateHook(hook); err != nil {
		return 0, err
	}

	id, err := m.jobs.CreateJob(ctx, hook)
	if err != nil {
		return 0, err
	}

	if err := m.sched.Schedule(ctx, id, m.now()); err != nil {
		slog.Error("job scheduling failed", "job_id", id, "hook", hook, "error", err)
		return id, models.WrapJobError(models.CodeScheduleFailed,
			"The job could not be scheduled.", err).WithData("event", err.Error())
	}

	slog.Info("job created", "job_id", id, "hook", hook)
	return id, nil
}

// Execute runs a pending job to a terminal state and returns the dispatch
// result. Only one caller can move a job out of pending; the others get
// job_not_pending.
func (m *Manager) Execute(ctx context.Context, id int64) (any, error) {
	job, err := m.jobs.GetJob(ctx, id)
	if err != nil {
		slog.Warn("job execute: lookup failed", "job_id", id, "error", err)
		return nil, err
	}

	if err := m.jobs.ClaimJob(ctx, id); err != nil {
		slog.Warn("job execute: claim failed", "job_id", id, "hook", job.Hook, "error", err)
		return nil, err
	}

	// Terminal writes must not be abandoned once the job is claimed.
	writeCtx := context.WithoutCancel(ctx)

	if err := m.ValidateHook(job.Hook); err != nil {
		jobErr := models.AsJobError(err, models.CodeInvalidHook)
		m.fail(writeCtx, job, jobErr)
		return nil, jobErr
	}

	result, err := m.hooks.Dispatch(ctx, job.Hook, nil)
	if err == nil {
		if e, ok := result.(error); ok {
			err, result = e, nil
		}
	}
	if err != nil {
		jobErr := models.AsJobError(err, models.CodeJobFailed)
		m.fail(writeCtx, job, jobErr)
		return nil, jobErr
	}

	if err := m.jobs.CompleteJob(writeCtx, id, result); err != nil {
		writeErr := models.AsJobError(err, models.CodeUpdateFailed).WithData("result", result)
		slog.Error("job completed but result not recorded",
			"job_id", id, "hook", job.Hook, "error", writeErr)
		return nil, writeErr
	}

	slog.Info("job completed", "job_id", id, "hook", job.Hook, "status", "completed")
	return result, nil
}

// fail records jobErr as the job's results. A failing write is attached to
// jobErr under "update" rather than replacing it.
func (m *Manager) fail(ctx context.Context, job *models.Job, jobErr *models.JobError) {
	if err := m.jobs.FailJob(ctx, job.ID, jobErr); err != nil {
		jobErr.WithData("update", models.AsJobError(err, models.CodeUpdateFailed))
		slog.Error("job failed and failure not recorded",
			"job_id", job.ID, "hook", job.Hook, "error", jobErr, "update_error", err)
		return
	}
	slog.Warn("job failed", "job_id", job.ID, "hook", job.Hook, "status", "failed", "error", jobErr)
}

// Status returns the canonical name of the job's status.
func (m *Manager) Status(ctx context.Context, id int64) (string, error) {
	job, err := m.jobs.GetJob(ctx, id)
	if err != nil {
		return "", err
	}
	name, ok := job.Status.Name()
	if !ok {
		return "", models.NewJobError(models.CodeInvalidStatus, "The job has an invalid status.")
	}
	return name, nil
}

// Delete removes an existing job.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if _, err := m.jobs.GetJob(ctx, id); err != nil {
		return err
	}
	if err := m.jobs.DeleteJob(ctx, id); err != nil {
		return err
	}
	slog.Info("job deleted", "job_id", id)
	return nil
}

// Find returns the job as stored.
func (m *Manager) Find(ctx context.Context, id int64) (*models.Job, error) {
	return m.jobs.GetJob(ctx, id)
}
