package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService   = "service"
	FieldPartnerID = "partner_id"
	FieldSubSystem = "sub_system"
	FieldEventID   = "event_id"
	FieldEventType = "event_type"
	FieldBatchSize = "batch_size"
	FieldIP        = "ip"
	FieldError     = "error"
	FieldKeyID     = "key_id"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// PartnerID returns a slog attribute for the partner (tenant) id.
func PartnerID(id string) slog.Attr {
	return slog.String(FieldPartnerID, id)
}

// SubSystem returns a slog attribute for a sub-system code.
func SubSystem(code string) slog.Attr {
	return slog.String(FieldSubSystem, code)
}

// EventID returns a slog attribute for an event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// EventType returns a slog attribute for an event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// BatchSize returns a slog attribute for a batch size.
func BatchSize(n int) slog.Attr {
	return slog.Int(FieldBatchSize, n)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// KeyID returns a slog attribute for an API key ID.
func KeyID(id string) slog.Attr {
	return slog.String(FieldKeyID, id)
}
