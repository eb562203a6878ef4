package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/internal/queue"
	"github.com/volcanion-systems/volcanion-tracking/internal/repository"
	"github.com/volcanion-systems/volcanion-tracking/pkg/logging"
)

func testLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.DiscardHandler)}
}

func trackingFixture(t *testing.T, capacity int, policy queue.FullPolicy) (*TrackingService, *repository.MemoryRepository, *queue.Queue, string) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	partnerID := "partner-1"
	require.NoError(t, repo.CreateSubSystem(context.Background(), &models.SubSystem{
		ID:        "sub-1",
		PartnerID: partnerID,
		Code:      "checkout",
		Name:      "Checkout",
		Status:    models.StatusActive,
	}))

	q := queue.New(capacity, policy)
	return NewTrackingService(repo, q, testLogger()), repo, q, partnerID
}

func TestTrackEnqueuesStampedEvent(t *testing.T) {
	svc, _, q, partnerID := trackingFixture(t, 10, queue.Block)
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	svc.now = func() time.Time { return at }

	resp, err := svc.Track(context.Background(), partnerID, models.TrackEventRequest{
		SubSystemCode: "checkout",
		EventType:     "PAGE_VIEW",
		Metadata:      map[string]any{"path": "/cart"},
		ClientType:    "web",
	}, "203.0.113.9", "curl/8")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Queued", resp.Status)
	assert.Equal(t, time.UTC, resp.EventTime.Location())

	event, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, resp.ID, event.ID)
	assert.Equal(t, partnerID, event.PartnerID)
	assert.Equal(t, "sub-1", event.SubSystemID)
	assert.Equal(t, models.EventPageView, event.EventType)
	assert.Equal(t, at.UTC(), event.EventTime)
	assert.JSONEq(t, `{"path":"/cart"}`, event.Metadata)
	assert.Equal(t, "203.0.113.9", event.IP)
	assert.Equal(t, models.ClientWeb, event.ClientType)
}

func TestTrackEmptyMetadataDefaultsToObject(t *testing.T) {
	svc, _, q, partnerID := trackingFixture(t, 10, queue.Block)

	_, err := svc.Track(context.Background(), partnerID, models.TrackEventRequest{
		SubSystemCode: "checkout",
		EventType:     "ACTION",
	}, "", "")
	require.NoError(t, err)

	event, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "{}", event.Metadata)
}

func TestTrackUnknownSubSystem(t *testing.T) {
	svc, _, q, partnerID := trackingFixture(t, 10, queue.Block)

	_, err := svc.Track(context.Background(), partnerID, models.TrackEventRequest{
		SubSystemCode: "nope",
		EventType:     "ACTION",
	}, "", "")
	assert.ErrorIs(t, err, ErrUnknownSubSystem)
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestTrackRevokedSubSystemRejected(t *testing.T) {
	svc, repo, q, partnerID := trackingFixture(t, 10, queue.Block)
	require.NoError(t, repo.CreateSubSystem(context.Background(), &models.SubSystem{
		ID:        "sub-2",
		PartnerID: partnerID,
		Code:      "billing",
		Name:      "Billing",
		Status:    models.StatusRevoked,
	}))

	_, err := svc.Track(context.Background(), partnerID, models.TrackEventRequest{
		SubSystemCode: "billing",
		EventType:     "ACTION",
	}, "", "")
	assert.ErrorIs(t, err, ErrUnknownSubSystem)
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestTrackSubSystemCodeScopedToPartner(t *testing.T) {
	svc, _, _, _ := trackingFixture(t, 10, queue.Block)

	// Another partner cannot submit against this partner's code.
	_, err := svc.Track(context.Background(), "partner-2", models.TrackEventRequest{
		SubSystemCode: "checkout",
		EventType:     "ACTION",
	}, "", "")
	assert.ErrorIs(t, err, ErrUnknownSubSystem)
}

func TestTrackInvalidEventType(t *testing.T) {
	svc, _, _, partnerID := trackingFixture(t, 10, queue.Block)

	_, err := svc.Track(context.Background(), partnerID, models.TrackEventRequest{
		SubSystemCode: "checkout",
		EventType:     "NOT_A_TYPE",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidEventType)
}

func TestTrackSaturatedQueueSurfaces(t *testing.T) {
	svc, _, _, partnerID := trackingFixture(t, 1, queue.Reject)

	req := models.TrackEventRequest{SubSystemCode: "checkout", EventType: "ACTION"}
	_, err := svc.Track(context.Background(), partnerID, req, "", "")
	require.NoError(t, err)

	_, err = svc.Track(context.Background(), partnerID, req, "", "")
	assert.ErrorIs(t, err, queue.ErrSaturated)
}

func TestTrackBulkPartialFailure(t *testing.T) {
	svc, _, q, partnerID := trackingFixture(t, 10, queue.Block)

	responses := svc.TrackBulk(context.Background(), partnerID, []models.TrackEventRequest{
		{SubSystemCode: "checkout", EventType: "ACTION"},
		{SubSystemCode: "missing", EventType: "ACTION"},
	}, "", "")

	require.Len(t, responses, 2)
	assert.Equal(t, "Queued", responses[0].Status)
	assert.Contains(t, responses[1].Status, "Error: ")
	assert.Empty(t, responses[1].ID)

	_, ok := q.TryDequeue()
	assert.True(t, ok)
	_, ok = q.TryDequeue()
	assert.False(t, ok)
}
