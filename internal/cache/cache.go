// Package cache provides the external key-value store used for the
// credential cache and the rate-limit counters. The store may be shared
// by multiple process instances, so every mutation relies on the
// backend's own atomicity rather than in-process locking.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is the operation surface the core needs from the external
// key-value store.
type Store interface {
	// Get returns the string value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes key with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Increment atomically adds delta to the integer at key and returns
	// the new value. When the increment creates the key, ttl is applied.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	// Close releases the underlying connection.
	Close() error
}
