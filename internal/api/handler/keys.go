package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/hookqueue/internal/api/response"
	"github.com/kiranshivaraju/hookqueue/internal/store"
	"github.com/kiranshivaraju/hookqueue/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	keyPrefix     = "hq_"
	keyRandomLen  = 24
	keyPrefixLen  = 8
	maxKeyNameLen = 255
)

var validScopes = map[string]bool{
	models.ScopeJobs:  true,
	models.ScopeAdmin: true,
}

// NewAPIKey generates a raw key and its stored form. The raw key is only
// ever shown once, to the caller that created it.
func NewAPIKey(name string, scopes []string) (*models.APIKey, string, error) {
	buf := make([]byte, keyRandomLen)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	raw := keyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash api key: %w", err)
	}

	now := time.Now().UTC()
	return &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:keyPrefixLen],
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, raw, nil
}

// ValidateScopes rejects unknown scopes and defaults an empty list to jobs.
func ValidateScopes(scopes []string) ([]string, error) {
	if len(scopes) == 0 {
		return []string{models.ScopeJobs}, nil
	}
	for _, s := range scopes {
		if !validScopes[s] {
			return nil, fmt.Errorf("unknown scope %q", s)
		}
	}
	return scopes, nil
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
func NewCreateKeyHandler(keys store.APIKeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string   `json:"name"`
			Scopes []string `json:"scopes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		fieldErrors := map[string][]string{}
		if req.Name == "" {
			fieldErrors["name"] = append(fieldErrors["name"], "name is required")
		} else if len(req.Name) > maxKeyNameLen {
			fieldErrors["name"] = append(fieldErrors["name"], "name must be at most 255 characters")
		}
		scopes, err := ValidateScopes(req.Scopes)
		if err != nil {
			fieldErrors["scopes"] = append(fieldErrors["scopes"], err.Error())
		}
		if len(fieldErrors) > 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid params", fieldErrors)
			return
		}

		key, raw, err := NewAPIKey(req.Name, scopes)
		if err != nil {
			slog.Error("api key generation failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key", nil)
			return
		}
		if err := keys.CreateAPIKey(r.Context(), key); err != nil {
			slog.Error("api key insert failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key", nil)
			return
		}

		slog.Info("api key created", "key_id", key.ID, "key_prefix", key.KeyPrefix, "scopes", key.Scopes)
		response.Created(w, map[string]any{
			"id":         key.ID,
			"name":       key.Name,
			"key":        raw,
			"key_prefix": key.KeyPrefix,
			"scopes":     key.Scopes,
			"created_at": key.CreatedAt,
		})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(keys store.APIKeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := keys.ListAPIKeys(r.Context())
		if err != nil {
			slog.Error("api key list failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys", nil)
			return
		}
		if list == nil {
			list = []*models.APIKey{}
		}
		response.JSON(w, list)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(keys store.APIKeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid key ID", nil)
			return
		}

		if err := keys.RevokeAPIKey(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found", nil)
				return
			}
			slog.Error("api key revoke failed", "key_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke API key", nil)
			return
		}

		slog.Info("api key revoked", "key_id", id)
		response.NoContent(w)
	}
}
