package handlers

import (
	"net/http"

	"github.com/volcanion-systems/volcanion-tracking/internal/queue"
	"github.com/volcanion-systems/volcanion-tracking/pkg/httputil"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	queue *queue.Queue
	ready func() error
}

// NewHealthHandler builds the probe handler. ready is consulted on
// each readiness check and may be nil when there is nothing to probe.
func NewHealthHandler(q *queue.Queue, ready func() error) *HealthHandler {
	return &HealthHandler{queue: q, ready: ready}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, http.StatusOK, "ok", map[string]any{
		"queue_depth":    h.queue.Len(),
		"queue_capacity": h.queue.Cap(),
	})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			httputil.WriteError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	httputil.WriteSuccess(w, http.StatusOK, "ready", nil)
}
