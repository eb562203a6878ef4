package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanion-systems/volcanion-tracking/internal/cache"
)

type failingStore struct {
	cache.Store
}

func (failingStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func newTestLimiter(limit int64) (*FixedWindow, *time.Time) {
	at := time.Date(2026, 8, 1, 12, 30, 15, 0, time.UTC)
	l := New(cache.NewMemoryStore(), limit)
	l.now = func() time.Time { return at }
	return l, &at
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(3), res.Limit)
		assert.Equal(t, int64(2-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
}

func TestLimiterWindowRollover(t *testing.T) {
	l, at := newTestLimiter(1)
	ctx := context.Background()

	res, err := l.Allow(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// The next minute is a fresh window.
	*at = at.Add(time.Minute)
	res, err = l.Allow(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiterPartnersCountedIndependently(t *testing.T) {
	l, _ := newTestLimiter(1)
	ctx := context.Background()

	res, err := l.Allow(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "p2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestLimiterResetIsNextMinuteBoundary(t *testing.T) {
	l, at := newTestLimiter(10)

	res, err := l.Allow(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, at.Truncate(time.Minute).Add(time.Minute), res.Reset)
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	l := New(failingStore{}, 5)

	res, err := l.Allow(context.Background(), "p1")
	assert.Error(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(5), res.Remaining)
}

func TestLimiterDefaultQuota(t *testing.T) {
	l := New(cache.NewMemoryStore(), 0)
	res, err := l.Allow(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultRequestsPerMinute), res.Limit)
}
