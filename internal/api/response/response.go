package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/hookqueue/pkg/models"
)

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// JobStatus maps a job error code to its HTTP status. Codes that describe a
// storage or execution fault are server errors.
func JobStatus(code string) int {
	switch code {
	case models.CodeNotQueueable, models.CodeInvalidHook:
		return http.StatusUnprocessableEntity
	case models.CodeJobNotFound:
		return http.StatusNotFound
	case models.CodeJobNotPending:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// JobError writes je in the error envelope with its code upper-cased.
// je.Data stays server-side; only the caller's details are sent.
func JobError(w http.ResponseWriter, je *models.JobError, details any) {
	status := JobStatus(je.Code)
	if status >= http.StatusInternalServerError {
		slog.Error("job operation failed", "code", je.Code, "error", je)
	}
	Error(w, status, strings.ToUpper(je.Code), je.Message, details)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "status", status, "error", err)
	}
}
