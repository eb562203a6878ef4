// Package ratelimit enforces per-partner request quotas over a fixed
// one-minute window backed by a shared counter store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/cache"
	"github.com/volcanion-systems/volcanion-tracking/internal/metrics"
)

// DefaultRequestsPerMinute is the quota applied when no explicit limit
// is configured.
const DefaultRequestsPerMinute = 1000

// Counter keys outlive their window by one minute so that clients
// reading X-RateLimit-Remaining right at the boundary still see a
// consistent value.
const windowTTL = 2 * time.Minute

// Result describes one admission decision. A zero Limit means the
// limiter imposed no quota on the request.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Time
}

// Limiter decides whether a request from a partner is admitted.
type Limiter interface {
	Allow(ctx context.Context, partnerID string) (Result, error)
}

// NoOp admits every request without touching the counter store. Used
// when rate limiting is disabled by configuration.
type NoOp struct{}

func (NoOp) Allow(ctx context.Context, partnerID string) (Result, error) {
	return Result{Allowed: true}, nil
}

// FixedWindow counts requests per partner in fixed one-minute windows.
// All instances sharing the same store share the same counters.
type FixedWindow struct {
	store cache.Store
	limit int64
	now   func() time.Time
}

func New(store cache.Store, requestsPerMinute int64) *FixedWindow {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &FixedWindow{
		store: store,
		limit: requestsPerMinute,
		now:   time.Now,
	}
}

// Allow records one request for the partner and reports whether it
// fits in the current window. The counter is incremented even for
// rejected requests, so a client hammering past its quota keeps
// getting rejected until the window rolls over.
func (l *FixedWindow) Allow(ctx context.Context, partnerID string) (Result, error) {
	now := l.now().UTC()
	key := windowKey(partnerID, now)
	reset := now.Truncate(time.Minute).Add(time.Minute)

	count, err := l.store.Increment(ctx, key, 1, windowTTL)
	if err != nil {
		// Fail open. A broken counter store must not take
		// ingestion down with it.
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit, Reset: reset}, err
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	allowed := count <= l.limit
	if !allowed {
		metrics.RateLimitHits.WithLabelValues(partnerID).Inc()
	}
	return Result{Allowed: allowed, Limit: l.limit, Remaining: remaining, Reset: reset}, nil
}

func windowKey(partnerID string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s", partnerID, now.Format("200601021504"))
}
