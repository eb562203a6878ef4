package models

import "time"

// TrackEventRequest is the body of POST /api/v1/tracking and each entry
// of a bulk submission.
type TrackEventRequest struct {
	SubSystemCode string         `json:"subSystemCode"`
	EventType     string         `json:"eventType"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	UserID        string         `json:"userId,omitempty"`
	SessionID     string         `json:"sessionId,omitempty"`
	TraceID       string         `json:"traceId,omitempty"`
	ClientType    string         `json:"clientType,omitempty"`
}

// BulkTrackEventRequest is the body of POST /api/v1/tracking/bulk.
type BulkTrackEventRequest struct {
	Events []TrackEventRequest `json:"events"`
}

// TrackEventResponse acknowledges a single submission. Status is
// "Queued" on success or "Error: <message>" for per-item failures in a
// bulk submission.
type TrackEventResponse struct {
	ID        string    `json:"id"`
	EventTime time.Time `json:"eventTime"`
	Status    string    `json:"status"`
}

// CreatePartnerRequest creates a tenant.
type CreatePartnerRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// UpdatePartnerRequest updates mutable partner fields. Nil fields are
// left untouched.
type UpdatePartnerRequest struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty"`
}

// CreateSubSystemRequest registers an event source under a partner.
type CreateSubSystemRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CreateAPIKeyRequest mints a new API key for a partner.
type CreateAPIKeyRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// GeneratedAPIKeyResponse carries the plaintext key exactly once.
type GeneratedAPIKeyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	APIKey    string     `json:"apiKey"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// SubSystemReport is the aggregation result for one sub-system over a
// date range.
type SubSystemReport struct {
	SubSystemID   string           `json:"subSystemId"`
	SubSystemName string           `json:"subSystemName"`
	TotalEvents   int64            `json:"totalEvents"`
	EventsByType  map[string]int64 `json:"eventsByType"`
	TimeSeries    []TimeSeriesData `json:"timeSeries"`
}

// PartnerReport is the aggregation result for a whole partner.
type PartnerReport struct {
	PartnerID     string             `json:"partnerId"`
	PartnerName   string             `json:"partnerName"`
	TotalEvents   int64              `json:"totalEvents"`
	TopSubSystems []SubSystemSummary `json:"topSubSystems"`
	TimeSeries    []TimeSeriesData   `json:"timeSeries"`
}

// SubSystemSummary is one row of a partner report's top sub-systems.
type SubSystemSummary struct {
	SubSystemID   string `json:"subSystemId"`
	SubSystemName string `json:"subSystemName"`
	EventCount    int64  `json:"eventCount"`
}

// TimeSeriesData is one bucket of an hourly report time series.
type TimeSeriesData struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int64     `json:"count"`
}
