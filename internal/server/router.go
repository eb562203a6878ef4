// Package server wires handlers and middleware into the HTTP service.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/volcanion-systems/volcanion-tracking/internal/handlers"
	"github.com/volcanion-systems/volcanion-tracking/internal/middleware"
	"github.com/volcanion-systems/volcanion-tracking/internal/ratelimit"
)

// Admin and probe surfaces are not API-key authenticated. The admin
// API is expected to be reachable only from inside the deployment.
var exemptPrefixes = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/api/v1/partners",
	"/api/v1/reports",
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Tracking *handlers.TrackingHandler
	Partners *handlers.PartnerHandler
	Reports  *handlers.ReportHandler
	Health   *handlers.HealthHandler
}

// NewRouter builds the full middleware chain and route table.
func NewRouter(h Handlers, authenticator *middleware.Authenticator, limiter ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health.Healthz)
	mux.HandleFunc("GET /readyz", h.Health.Readyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/tracking", h.Tracking.Track)
	mux.HandleFunc("POST /api/v1/tracking/bulk", h.Tracking.TrackBulk)

	mux.HandleFunc("POST /api/v1/partners", h.Partners.Create)
	mux.HandleFunc("GET /api/v1/partners", h.Partners.List)
	mux.HandleFunc("GET /api/v1/partners/{id}", h.Partners.Get)
	mux.HandleFunc("PUT /api/v1/partners/{id}", h.Partners.Update)
	mux.HandleFunc("POST /api/v1/partners/{id}/sub-systems", h.Partners.CreateSubSystem)
	mux.HandleFunc("GET /api/v1/partners/{id}/sub-systems", h.Partners.ListSubSystems)
	mux.HandleFunc("POST /api/v1/partners/{id}/api-keys", h.Partners.CreateAPIKey)
	mux.HandleFunc("DELETE /api/v1/partners/{id}/api-keys/{keyId}", h.Partners.RevokeAPIKey)

	mux.HandleFunc("GET /api/v1/reports/sub-systems/{id}", h.Reports.SubSystemReport)
	mux.HandleFunc("GET /api/v1/reports/partners/{id}", h.Reports.PartnerReport)

	var handler http.Handler = mux
	handler = middleware.RateLimit(limiter)(handler)
	handler = middleware.Auth(authenticator, exemptPrefixes)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
