package auth

import (
	"net/http"
	"strconv"

	"github.com/sha1n/mcp-symdex-server/internal/config"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
	"golang.org/x/time/rate"
)

// NewRateLimiter returns a middleware that rejects requests above the
// configured rate with 429. A single token bucket is shared by all clients.
// m may be nil.
func NewRateLimiter(settings config.RateLimitSettings, m *metrics.Metrics) Middleware {
	if !settings.Enabled {
		return passthrough
	}
	limiter := rate.NewLimiter(rate.Limit(settings.RPS), settings.Burst)
	retryAfter := "1"
	if settings.RPS > 0 && settings.RPS < 1 {
		retryAfter = strconv.Itoa(int(1/settings.RPS + 0.5))
	}

	return withExclusions(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				m.RateLimited()
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}
