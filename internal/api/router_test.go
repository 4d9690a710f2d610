package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hookqueue/internal/api"
	mw "github.com/kiranshivaraju/hookqueue/internal/api/middleware"
	"github.com/kiranshivaraju/hookqueue/internal/cache"
	"github.com/kiranshivaraju/hookqueue/internal/store"
	"github.com/kiranshivaraju/hookqueue/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- stub key store; auth succeeds only for the configured key ---

type stubKeyStore struct {
	keys []*models.APIKey
}

func (s *stubKeyStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}
func (s *stubKeyStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *stubKeyStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error    { return nil }
func (s *stubKeyStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error)   { return nil, nil }
func (s *stubKeyStore) RevokeAPIKey(_ context.Context, _ uuid.UUID) error         { return nil }

// --- stub cache ---

type stubCache struct {
	keys []string
}

func (c *stubCache) Ping(_ context.Context) error { return nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.keys = append(c.keys, key)
	return 1, nil
}

// --- router tests ---

const jobsKey = "hq_jobs1_0123456789abcdef"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWithCache(t, &stubCache{})
}

func newTestRouterWithCache(t *testing.T, c *stubCache) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(jobsKey), bcrypt.MinCost)
	require.NoError(t, err)

	ks := &stubKeyStore{keys: []*models.APIKey{{
		ID:        uuid.New(),
		KeyHash:   string(hash),
		KeyPrefix: jobsKey[:8],
		Scopes:    []string{models.ScopeJobs},
	}}}

	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(ks),
		RateLimit: mw.NewRateLimit(c, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
		JobStatusHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/jobs"},
		{"GET", "/api/v1/jobs/1"},
		{"GET", "/api/v1/jobs/1/results"},
		{"DELETE", "/api/v1/jobs/1"},
		{"POST", "/api/v1/admin/keys"},
		{"GET", "/api/v1/admin/keys"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_JobsScope(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/jobs/1", nil)
	req.Header.Set("Authorization", "Bearer "+jobsKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Unwired handlers answer 501
	req = httptest.NewRequest("POST", "/api/v1/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+jobsKey)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_AdminScopeRequired(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer "+jobsKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_RateLimitChargedToRouteScope(t *testing.T) {
	c := &stubCache{}
	router := newTestRouterWithCache(t, c)

	req := httptest.NewRequest("GET", "/api/v1/jobs/1", nil)
	req.Header.Set("Authorization", "Bearer "+jobsKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jobs", w.Header().Get("X-RateLimit-Scope"))

	// Forbidden requests are rejected before any budget is charged
	req = httptest.NewRequest("GET", "/api/v1/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer "+jobsKey)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{cache.RateLimitKey(models.ScopeJobs, jobsKey[:8])}, c.keys)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Verify unused interfaces are satisfied
var _ store.APIKeyStore = (*stubKeyStore)(nil)
var _ cache.Cache = (*stubCache)(nil)
