package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the standard response wrapper used by all API endpoints.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes a JSON response with the given status code and data.
// It properly checks for encoding errors and logs them.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// WriteSuccess writes an enveloped success response.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteError writes an enveloped JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{
		Success: false,
		Error:   message,
	})
}
