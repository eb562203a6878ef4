// Package handlers implements the HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/volcanion-systems/volcanion-tracking/internal/metrics"
	"github.com/volcanion-systems/volcanion-tracking/internal/middleware"
	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/internal/queue"
	"github.com/volcanion-systems/volcanion-tracking/internal/service"
	"github.com/volcanion-systems/volcanion-tracking/pkg/httputil"
	"github.com/volcanion-systems/volcanion-tracking/pkg/logging"
)

const maxBulkEvents = 1000

// TrackingHandler serves the event submission endpoints.
type TrackingHandler struct {
	tracking *service.TrackingService
	logger   *logging.Logger
}

func NewTrackingHandler(tracking *service.TrackingService, logger *logging.Logger) *TrackingHandler {
	return &TrackingHandler{tracking: tracking, logger: logger}
}

// Track handles POST /api/v1/tracking. Accepted events are queued, not
// yet durable, so success is 202.
func (h *TrackingHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req models.TrackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.EventsTotal.WithLabelValues("track", "bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	partnerID := middleware.GetPartnerID(r.Context())
	resp, err := h.tracking.Track(r.Context(), partnerID, req, httputil.GetClientIP(r), r.UserAgent())
	if err != nil {
		h.writeTrackError(w, r, "track", err)
		return
	}

	metrics.EventsTotal.WithLabelValues("track", "queued").Inc()
	httputil.WriteSuccess(w, http.StatusAccepted, "event queued", resp)
}

// TrackBulk handles POST /api/v1/tracking/bulk. The response always
// carries one entry per submitted event; per-event failures are
// reported in-place instead of failing the batch.
func (h *TrackingHandler) TrackBulk(w http.ResponseWriter, r *http.Request) {
	var req models.BulkTrackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.EventsTotal.WithLabelValues("bulk", "bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Events) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "events must be non-empty")
		return
	}
	if len(req.Events) > maxBulkEvents {
		httputil.WriteError(w, http.StatusBadRequest, "too many events in one submission")
		return
	}

	partnerID := middleware.GetPartnerID(r.Context())
	responses := h.tracking.TrackBulk(r.Context(), partnerID, req.Events, httputil.GetClientIP(r), r.UserAgent())

	queued := 0
	for _, resp := range responses {
		if resp.Status == "Queued" {
			queued++
		}
	}
	metrics.EventsTotal.WithLabelValues("bulk", "queued").Add(float64(queued))
	metrics.EventsTotal.WithLabelValues("bulk", "failed").Add(float64(len(responses) - queued))

	httputil.WriteSuccess(w, http.StatusAccepted, "bulk submission processed", responses)
}

func (h *TrackingHandler) writeTrackError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownSubSystem), errors.Is(err, service.ErrInvalidEventType):
		metrics.EventsTotal.WithLabelValues(endpoint, "bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, queue.ErrSaturated):
		metrics.EventsTotal.WithLabelValues(endpoint, "saturated").Inc()
		httputil.WriteError(w, http.StatusServiceUnavailable, "ingestion queue is full, retry later")
	default:
		metrics.EventsTotal.WithLabelValues(endpoint, "error").Inc()
		h.logger.ErrorContext(r.Context(), "event submission failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
