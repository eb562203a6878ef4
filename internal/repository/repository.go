package repository

import (
	"context"
	"errors"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

var (
	ErrPartnerNotFound   = errors.New("partner not found")
	ErrPartnerExists     = errors.New("partner already exists")
	ErrSubSystemNotFound = errors.New("sub-system not found")
	ErrSubSystemExists   = errors.New("sub-system already exists")
	ErrAPIKeyNotFound    = errors.New("api key not found")
)

// TypeCount is one event-type bucket of a report.
type TypeCount struct {
	EventType models.EventType
	Count     int64
}

// TimeBucket is one hourly bucket of a report time series.
type TimeBucket struct {
	Timestamp time.Time
	Count     int64
}

// SubSystemCount is one row of a partner's top sub-systems.
type SubSystemCount struct {
	SubSystemID   string
	SubSystemName string
	Count         int64
}

// Repository is the persistence surface the service depends on. The
// core pipeline only uses BulkInsertEvents and the sub-system/API-key
// lookups; the management and report methods serve the admin surface.
type Repository interface {
	// Partners
	CreatePartner(ctx context.Context, partner *models.Partner) error
	GetPartner(ctx context.Context, id string) (*models.Partner, error)
	ListPartners(ctx context.Context) ([]*models.Partner, error)
	UpdatePartner(ctx context.Context, partner *models.Partner) error

	// Sub-systems
	CreateSubSystem(ctx context.Context, subSystem *models.SubSystem) error
	// GetSubSystemByCode resolves a code within a partner. Revoked
	// sub-systems do not resolve; callers see ErrSubSystemNotFound.
	GetSubSystemByCode(ctx context.Context, partnerID, code string) (*models.SubSystem, error)
	GetSubSystem(ctx context.Context, id string) (*models.SubSystem, error)
	ListSubSystems(ctx context.Context, partnerID string) ([]*models.SubSystem, error)

	// API keys
	CreateAPIKey(ctx context.Context, key *models.PartnerAPIKey) error
	GetAPIKey(ctx context.Context, id string) (*models.PartnerAPIKey, error)
	ListActiveAPIKeys(ctx context.Context) ([]*models.PartnerAPIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error

	// Events
	BulkInsertEvents(ctx context.Context, events []*models.Event) error
	CountEventsBySubSystem(ctx context.Context, subSystemID string, start, end time.Time) (int64, error)
	CountEventsByPartner(ctx context.Context, partnerID string, start, end time.Time) (int64, error)
	EventTypeCounts(ctx context.Context, subSystemID string, start, end time.Time) ([]TypeCount, error)
	EventTimeSeriesBySubSystem(ctx context.Context, subSystemID string, start, end time.Time) ([]TimeBucket, error)
	EventTimeSeriesByPartner(ctx context.Context, partnerID string, start, end time.Time) ([]TimeBucket, error)
	TopSubSystems(ctx context.Context, partnerID string, start, end time.Time, limit int) ([]SubSystemCount, error)

	Close()
}
