// Package service holds the business logic between HTTP handlers and
// storage.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/internal/queue"
	"github.com/volcanion-systems/volcanion-tracking/internal/repository"
	"github.com/volcanion-systems/volcanion-tracking/pkg/logging"
)

var (
	ErrUnknownSubSystem = errors.New("unknown sub-system code")
	ErrInvalidEventType = errors.New("invalid event type")
)

// TrackingService accepts event submissions, stamps and validates
// them, and hands them to the ingest queue.
type TrackingService struct {
	repo   repository.Repository
	queue  *queue.Queue
	logger *logging.Logger
	now    func() time.Time
}

func NewTrackingService(repo repository.Repository, q *queue.Queue, logger *logging.Logger) *TrackingService {
	return &TrackingService{
		repo:   repo,
		queue:  q,
		logger: logger,
		now:    time.Now,
	}
}

// Track validates one submission and enqueues it. The returned
// response carries the server-assigned ID and UTC receipt time.
// queue.ErrSaturated passes through untouched so callers can map it to
// a backpressure status.
func (s *TrackingService) Track(ctx context.Context, partnerID string, req models.TrackEventRequest, ip, userAgent string) (*models.TrackEventResponse, error) {
	event, err := s.buildEvent(ctx, partnerID, req, ip, userAgent)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, event); err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "event queued",
		logging.EventID(event.ID),
		logging.SubSystem(req.SubSystemCode),
		logging.EventType(event.EventType.String()),
		logging.IP(ip),
	)
	return &models.TrackEventResponse{
		ID:        event.ID,
		EventTime: event.EventTime,
		Status:    "Queued",
	}, nil
}

// TrackBulk processes each entry independently. The result always has
// one entry per input, in order. A bad entry gets an "Error: ..."
// status and does not stop the rest of the batch.
func (s *TrackingService) TrackBulk(ctx context.Context, partnerID string, reqs []models.TrackEventRequest, ip, userAgent string) []models.TrackEventResponse {
	responses := make([]models.TrackEventResponse, 0, len(reqs))
	for _, req := range reqs {
		resp, err := s.Track(ctx, partnerID, req, ip, userAgent)
		if err != nil {
			responses = append(responses, models.TrackEventResponse{
				EventTime: s.now().UTC(),
				Status:    "Error: " + err.Error(),
			})
			continue
		}
		responses = append(responses, *resp)
	}
	return responses
}

func (s *TrackingService) buildEvent(ctx context.Context, partnerID string, req models.TrackEventRequest, ip, userAgent string) (*models.Event, error) {
	subSystem, err := s.repo.GetSubSystemByCode(ctx, partnerID, req.SubSystemCode)
	if err != nil {
		if errors.Is(err, repository.ErrSubSystemNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubSystem, req.SubSystemCode)
		}
		return nil, fmt.Errorf("resolve sub-system: %w", err)
	}

	eventType, err := models.ParseEventType(req.EventType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventType, req.EventType)
	}

	metadata := "{}"
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	return &models.Event{
		ID:          uuid.NewString(),
		PartnerID:   partnerID,
		SubSystemID: subSystem.ID,
		EventType:   eventType,
		EventTime:   s.now().UTC(),
		Metadata:    metadata,
		IP:          ip,
		UserAgent:   userAgent,
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		TraceID:     req.TraceID,
		ClientType:  models.ParseClientType(req.ClientType),
	}, nil
}
