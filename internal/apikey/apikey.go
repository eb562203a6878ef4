// Package apikey implements generation and verification of partner API
// keys. Keys are random URL-safe strings; stored hashes are salted
// PBKDF2-SHA256 derivations so a leaked hash table is expensive to
// brute-force. All functions are stateless and safe for concurrent use.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLength  = 32
	saltSize   = 16
	hashSize   = 32
	iterations = 10000
)

// Generate produces a cryptographically random API key, URL-safe
// base64-encoded without padding.
func Generate() (string, error) {
	raw := make([]byte, keyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Hash derives a salted PBKDF2-SHA256 hash of the plaintext key. The
// random salt is embedded in the returned encoding (salt || hash,
// base64), so Validate needs no separate salt storage.
func Hash(plainKey string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	derived := pbkdf2.Key([]byte(plainKey), salt, iterations, hashSize, sha256.New)

	combined := make([]byte, 0, saltSize+hashSize)
	combined = append(combined, salt...)
	combined = append(combined, derived...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// Validate recomputes the derivation with the salt embedded in
// storedHash and compares in constant time. It returns false, never an
// error, for malformed stored hashes.
func Validate(plainKey, storedHash string) bool {
	combined, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil || len(combined) != saltSize+hashSize {
		return false
	}

	salt := combined[:saltSize]
	expected := combined[saltSize:]
	derived := pbkdf2.Key([]byte(plainKey), salt, iterations, hashSize, sha256.New)

	return subtle.ConstantTimeCompare(expected, derived) == 1
}

// CacheDigest computes the fast SHA-256 digest of a raw key used as the
// credential-cache lookup key. This is deliberately distinct from the
// slow stored hash: it only has to be deterministic, not brute-force
// resistant, because the cache maps digests of keys that have already
// passed Validate.
func CacheDigest(plainKey string) string {
	sum := sha256.Sum256([]byte(plainKey))
	return base64.StdEncoding.EncodeToString(sum[:])
}
