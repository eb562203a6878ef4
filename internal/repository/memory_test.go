package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

func newPartner(code string) *models.Partner {
	return &models.Partner{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      "Partner " + code,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func newSubSystem(partnerID, code string) *models.SubSystem {
	return &models.SubSystem{
		ID:        uuid.NewString(),
		PartnerID: partnerID,
		Code:      code,
		Name:      "Sub " + code,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryRepositoryPartnerLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	p := newPartner("acme")
	require.NoError(t, repo.CreatePartner(ctx, p))

	dup := newPartner("acme")
	assert.ErrorIs(t, repo.CreatePartner(ctx, dup), ErrPartnerExists)

	got, err := repo.GetPartner(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Code)

	got.Name = "renamed"
	got.Status = models.StatusRevoked
	require.NoError(t, repo.UpdatePartner(ctx, got))

	again, err := repo.GetPartner(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", again.Name)
	assert.Equal(t, models.StatusRevoked, again.Status)

	_, err = repo.GetPartner(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrPartnerNotFound)
}

func TestMemoryRepositorySubSystemCodeScopedToPartner(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	p1 := newPartner("p1")
	p2 := newPartner("p2")
	require.NoError(t, repo.CreatePartner(ctx, p1))
	require.NoError(t, repo.CreatePartner(ctx, p2))

	// Same code under different partners is allowed.
	require.NoError(t, repo.CreateSubSystem(ctx, newSubSystem(p1.ID, "web")))
	require.NoError(t, repo.CreateSubSystem(ctx, newSubSystem(p2.ID, "web")))
	assert.ErrorIs(t, repo.CreateSubSystem(ctx, newSubSystem(p1.ID, "web")), ErrSubSystemExists)

	got, err := repo.GetSubSystemByCode(ctx, p1.ID, "web")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, got.PartnerID)

	_, err = repo.GetSubSystemByCode(ctx, p1.ID, "missing")
	assert.ErrorIs(t, err, ErrSubSystemNotFound)
}

func TestMemoryRepositoryRevokedSubSystemNotResolvedByCode(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	p := newPartner("acme")
	require.NoError(t, repo.CreatePartner(ctx, p))

	sub := newSubSystem(p.ID, "legacy")
	sub.Status = models.StatusRevoked
	require.NoError(t, repo.CreateSubSystem(ctx, sub))

	_, err := repo.GetSubSystemByCode(ctx, p.ID, "legacy")
	assert.ErrorIs(t, err, ErrSubSystemNotFound)

	// Direct lookup by ID still works so reports over historical data
	// keep functioning after a revocation.
	got, err := repo.GetSubSystem(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevoked, got.Status)
}

func TestMemoryRepositoryActiveAPIKeys(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	active := &models.PartnerAPIKey{
		ID:        uuid.NewString(),
		PartnerID: uuid.NewString(),
		KeyHash:   "hash-a",
		Status:    models.StatusActive,
	}
	revoked := &models.PartnerAPIKey{
		ID:        uuid.NewString(),
		PartnerID: uuid.NewString(),
		KeyHash:   "hash-b",
		Status:    models.StatusActive,
	}
	require.NoError(t, repo.CreateAPIKey(ctx, active))
	require.NoError(t, repo.CreateAPIKey(ctx, revoked))
	require.NoError(t, repo.RevokeAPIKey(ctx, revoked.ID))

	keys, err := repo.ListActiveAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, active.ID, keys[0].ID)
}

func TestMemoryRepositoryReportAggregation(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	partnerID := uuid.NewString()
	subA := uuid.NewString()
	subB := uuid.NewString()
	require.NoError(t, repo.CreateSubSystem(ctx, &models.SubSystem{
		ID: subA, PartnerID: partnerID, Code: "a", Name: "A", Status: models.StatusActive,
	}))
	require.NoError(t, repo.CreateSubSystem(ctx, &models.SubSystem{
		ID: subB, PartnerID: partnerID, Code: "b", Name: "B", Status: models.StatusActive,
	}))

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	events := []*models.Event{
		{ID: uuid.NewString(), PartnerID: partnerID, SubSystemID: subA, EventType: models.EventAPIRequest, EventTime: base},
		{ID: uuid.NewString(), PartnerID: partnerID, SubSystemID: subA, EventType: models.EventAPIRequest, EventTime: base.Add(10 * time.Minute)},
		{ID: uuid.NewString(), PartnerID: partnerID, SubSystemID: subA, EventType: models.EventPageView, EventTime: base.Add(time.Hour)},
		{ID: uuid.NewString(), PartnerID: partnerID, SubSystemID: subB, EventType: models.EventPageView, EventTime: base},
	}
	require.NoError(t, repo.BulkInsertEvents(ctx, events))

	start := base.Add(-time.Hour)
	end := base.Add(2 * time.Hour)

	total, err := repo.CountEventsByPartner(ctx, partnerID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	subTotal, err := repo.CountEventsBySubSystem(ctx, subA, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(3), subTotal)

	counts, err := repo.EventTypeCounts(ctx, subA, start, end)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.EventAPIRequest, counts[0].EventType)
	assert.Equal(t, int64(2), counts[0].Count)

	series, err := repo.EventTimeSeriesBySubSystem(ctx, subA, start, end)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, int64(2), series[0].Count)
	assert.Equal(t, int64(1), series[1].Count)

	top, err := repo.TopSubSystems(ctx, partnerID, start, end, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, subA, top[0].SubSystemID)
	assert.Equal(t, int64(3), top[0].Count)
}

func TestMemoryRepositoryWindowBoundsHalfOpen(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	partnerID := uuid.NewString()
	subID := uuid.NewString()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	require.NoError(t, repo.BulkInsertEvents(ctx, []*models.Event{
		{ID: uuid.NewString(), PartnerID: partnerID, SubSystemID: subID, EventType: models.EventAction, EventTime: start},
		{ID: uuid.NewString(), PartnerID: partnerID, SubSystemID: subID, EventType: models.EventAction, EventTime: end},
	}))

	count, err := repo.CountEventsBySubSystem(ctx, subID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
