package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/hookqueue/internal/api/response"
	"github.com/kiranshivaraju/hookqueue/pkg/models"
)

// JobService defines the job operations the handlers depend on.
type JobService interface {
	Create(ctx context.Context, hook string) (int64, error)
	Status(ctx context.Context, id int64) (string, error)
	Find(ctx context.Context, id int64) (*models.Job, error)
	Delete(ctx context.Context, id int64) error
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewCreateJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Hook string `json:"hook"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		req.Hook = strings.TrimSpace(req.Hook)
		if req.Hook == "" {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid params",
				map[string][]string{"hook": {"hook is required"}})
			return
		}
		if len(req.Hook) > models.MaxHookLength {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid params",
				map[string][]string{"hook": {"hook must be at most 255 characters"}})
			return
		}

		id, err := svc.Create(r.Context(), req.Hook)
		if err != nil {
			var details any
			if errors.Is(err, models.ErrScheduleFailed) && id != 0 {
				details = map[string]int64{"id": id}
			}
			writeJobError(w, err, details)
			return
		}

		response.Created(w, map[string]int64{"id": id})
	}
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewJobStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobIDParam(w, r)
		if !ok {
			return
		}

		job, err := svc.Find(r.Context(), id)
		if err != nil {
			writeJobError(w, err, nil)
			return
		}
		status, err := svc.Status(r.Context(), id)
		if err != nil {
			writeJobError(w, err, nil)
			return
		}

		response.JSON(w, map[string]any{
			"id":     job.ID,
			"hook":   job.Hook,
			"status": status,
		})
	}
}

// NewJobResultsHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}/results.
func NewJobResultsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobIDParam(w, r)
		if !ok {
			return
		}

		job, err := svc.Find(r.Context(), id)
		if err != nil {
			writeJobError(w, err, nil)
			return
		}

		status, known := job.Status.Name()
		if !known {
			writeJobError(w, models.NewJobError(models.CodeInvalidStatus, "The job has an invalid status."), nil)
			return
		}
		if !job.Status.Terminal() {
			response.Error(w, http.StatusNotFound, "NO_RESULTS", "The job has not finished yet",
				map[string]string{"status": status})
			return
		}

		response.JSON(w, map[string]any{
			"status":  status,
			"results": job.Results,
		})
	}
}

// NewDeleteJobHandler returns an http.HandlerFunc for DELETE /api/v1/jobs/{jobID}.
func NewDeleteJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			writeJobError(w, err, nil)
			return
		}
		response.NoContent(w)
	}
}

func jobIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job ID", nil)
		return 0, false
	}
	return id, true
}

// writeJobError maps a job error code to an HTTP status. The API error code
// is the upper-cased job error code.
func writeJobError(w http.ResponseWriter, err error, details any) {
	var je *models.JobError
	if !errors.As(err, &je) {
		slog.Error("unexpected job error", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}
	response.JobError(w, je, details)
}
