package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/apikey"
	"github.com/volcanion-systems/volcanion-tracking/internal/cache"
	"github.com/volcanion-systems/volcanion-tracking/internal/metrics"
	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/pkg/httputil"
)

const (
	// APIKeyHeader carries the partner credential on ingestion calls.
	APIKeyHeader = "X-Api-Key"

	// DefaultCredentialTTL bounds how long a validated key is served
	// from cache before the store is consulted again.
	DefaultCredentialTTL = 10 * time.Minute

	credentialKeyPrefix = "apikey:"
	digestRefKeyPrefix  = "apikeyref:"
)

const partnerIDKey contextKey = "partner-id"

var errUnknownKey = errors.New("unknown api key")

// KeySource lists the credentials a presented key is checked against.
type KeySource interface {
	ListActiveAPIKeys(ctx context.Context) ([]*models.PartnerAPIKey, error)
}

// Authenticator resolves API keys to partner IDs. Validated keys are
// cached by digest so the hot path never runs PBKDF2.
type Authenticator struct {
	keys  KeySource
	store cache.Store
	ttl   time.Duration
}

func NewAuthenticator(keys KeySource, store cache.Store, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	return &Authenticator{keys: keys, store: store, ttl: ttl}
}

// Resolve maps a raw API key to its partner ID, or errUnknownKey.
func (a *Authenticator) Resolve(ctx context.Context, rawKey string) (string, error) {
	cacheKey := credentialKeyPrefix + apikey.CacheDigest(rawKey)

	if partnerID, err := a.store.Get(ctx, cacheKey); err == nil {
		metrics.AuthCacheHits.Inc()
		return partnerID, nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		slog.Warn("credential cache lookup failed", "error", err)
	}
	metrics.AuthCacheMisses.Inc()

	keys, err := a.keys.ListActiveAPIKeys(ctx)
	if err != nil {
		return "", err
	}
	for _, k := range keys {
		if apikey.Validate(rawKey, k.KeyHash) {
			if err := a.store.Set(ctx, cacheKey, k.PartnerID, a.ttl); err != nil {
				slog.Warn("credential cache write failed", "error", err)
			}
			// Reverse entry so revocation by key ID can find the
			// cached digest.
			if err := a.store.Set(ctx, digestRefKeyPrefix+k.ID, cacheKey, a.ttl); err != nil {
				slog.Warn("credential cache write failed", "error", err)
			}
			return k.PartnerID, nil
		}
	}
	return "", errUnknownKey
}

// Invalidate drops the cached credential for a key ID, if one exists.
// Called when a key is revoked so the revocation takes effect before
// the cache TTL would expire it.
func (a *Authenticator) Invalidate(ctx context.Context, keyID string) error {
	refKey := digestRefKeyPrefix + keyID
	cacheKey, err := a.store.Get(ctx, refKey)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := a.store.Delete(ctx, cacheKey); err != nil {
		return err
	}
	return a.store.Delete(ctx, refKey)
}

// Auth rejects requests without a valid API key. Paths under any of
// the exempt prefixes pass through unauthenticated.
func Auth(authenticator *Authenticator, exemptPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			rawKey := r.Header.Get(APIKeyHeader)
			if rawKey == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			partnerID, err := authenticator.Resolve(r.Context(), rawKey)
			if err != nil {
				if !errors.Is(err, errUnknownKey) {
					slog.Error("api key resolution failed", "error", err)
				}
				httputil.WriteError(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), partnerIDKey, partnerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPartnerID returns the authenticated partner ID, if any.
func GetPartnerID(ctx context.Context) string {
	if id, ok := ctx.Value(partnerIDKey).(string); ok {
		return id
	}
	return ""
}

// WithPartnerID stamps a partner ID onto the context. Used by tests
// and by handlers invoked outside the auth middleware.
func WithPartnerID(ctx context.Context, partnerID string) context.Context {
	return context.WithValue(ctx, partnerIDKey, partnerID)
}
