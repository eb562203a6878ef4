package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/volcanion-systems/volcanion-tracking/internal/ratelimit"
	"github.com/volcanion-systems/volcanion-tracking/pkg/httputil"
)

// RateLimit enforces the per-partner quota on authenticated requests.
// Requests with no partner in context (exempt paths) are not counted.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			partnerID := GetPartnerID(r.Context())
			if partnerID == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), partnerID)
			if err != nil {
				slog.Warn("rate limit check failed, allowing request", "partner_id", partnerID, "error", err)
			}

			// A zero limit means no quota was applied, so no
			// quota headers either.
			if res.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
			}

			if !res.Allowed {
				w.Header().Set("Retry-After", "60")
				httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
