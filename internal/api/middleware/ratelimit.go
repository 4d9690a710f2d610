package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/hookqueue/internal/api/response"
	"github.com/kiranshivaraju/hookqueue/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
)

// RateLimit counts requests per API key and scope in one-minute Redis
// counters. Job traffic and admin traffic on the same key have
// separate budgets.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// For returns middleware that charges requests to the budget of scope for
// the authenticated key. Requests without a key prefix pass through.
func (rl *RateLimit) For(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prefix, ok := GetKeyPrefix(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			key := cache.RateLimitKey(scope, prefix)
			count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateWindow)
			if err != nil {
				// fail open
				slog.Warn("rate limit check failed",
					"key_prefix", prefix, "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := max(rl.requestsPerMin-int(count), 0)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateWindow).Unix(), 10))
			h.Set("X-RateLimit-Scope", scope)

			if count > int64(rl.requestsPerMin) {
				h.Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
				slog.Info("rate limit exceeded",
					"key_prefix", prefix, "scope", scope, "count", count)
				response.Error(w, http.StatusTooManyRequests,
					"RATE_LIMIT_EXCEEDED", "Too many requests", map[string]any{"scope": scope})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
