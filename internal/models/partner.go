package models

import "time"

// Entity status values. Stored as plain strings like the rest of the
// management tables.
const (
	StatusActive  = "Active"
	StatusRevoked = "Revoked"
)

// Partner is a tenant organization that owns sub-systems and API keys.
type Partner struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// IsActive reports whether the partner may ingest events.
func (p *Partner) IsActive() bool {
	return p.Status == StatusActive
}

// SubSystem is a named event source under a partner, identified by a
// human-readable code unique within the partner.
type SubSystem struct {
	ID        string    `json:"id"`
	PartnerID string    `json:"partner_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// IsActive reports whether the sub-system accepts events.
func (s *SubSystem) IsActive() bool {
	return s.Status == StatusActive
}

// PartnerAPIKey is a stored API key credential. Only the slow salted
// hash is persisted; the plaintext key is shown once at creation.
type PartnerAPIKey struct {
	ID        string     `json:"id"`
	PartnerID string     `json:"partner_id"`
	KeyHash   string     `json:"-"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsActive reports whether the key may authenticate requests: status
// Active and not past its optional expiry.
func (k *PartnerAPIKey) IsActive() bool {
	if k.Status != StatusActive {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.IsZero() && time.Now().After(*k.ExpiresAt) {
		return false
	}
	return true
}
