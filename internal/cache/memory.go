package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests. It is
// NOT suitable for multi-instance deployments: its atomicity is a
// process-local mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) get(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.get(key)
	if !ok {
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	entry, ok := s.get(key)
	if ok {
		parsed, err := strconv.ParseInt(entry.value, 10, 64)
		if err == nil {
			current = parsed
		}
	}

	current += delta
	next := memoryEntry{value: strconv.FormatInt(current, 10)}
	if ok {
		next.expiresAt = entry.expiresAt
	} else if ttl > 0 {
		next.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = next
	return current, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
