package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client)
	t.Cleanup(func() { store.Close() })
	return mr, store
}

// stores under test share one behavioral contract
func testStores(t *testing.T) map[string]Store {
	t.Helper()

	_, rs := setupRedisStore(t)
	return map[string]Store{
		"redis":  rs,
		"memory": NewMemoryStore(),
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "absent"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(absent) error = %v, want ErrNotFound", err)
			}

			if err := store.Set(ctx, "k", "v", 0); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			val, err := store.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if val != "v" {
				t.Errorf("Get() = %q, want %q", val, "v")
			}

			if err := store.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
			}

			// Deleting an absent key is fine.
			if err := store.Delete(ctx, "k"); err != nil {
				t.Errorf("Delete(absent) error = %v, want nil", err)
			}
		})
	}
}

func TestStore_Increment(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for want := int64(1); want <= 3; want++ {
				got, err := store.Increment(ctx, "counter", 1, time.Minute)
				if err != nil {
					t.Fatalf("Increment() error = %v", err)
				}
				if got != want {
					t.Errorf("Increment() = %d, want %d", got, want)
				}
			}
		})
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "ephemeral", "v", 2*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := store.Increment(ctx, "counter", 1, 2*time.Minute); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	mr.FastForward(3 * time.Minute)

	if _, err := store.Get(ctx, "ephemeral"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after TTL error = %v, want ErrNotFound", err)
	}

	// Counter restarts from scratch once the window key expired.
	got, err := store.Increment(ctx, "counter", 1, 2*time.Minute)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if got != 1 {
		t.Errorf("Increment() after expiry = %d, want 1", got)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "ephemeral", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := store.Get(ctx, "ephemeral"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after TTL error = %v, want ErrNotFound", err)
	}
}
