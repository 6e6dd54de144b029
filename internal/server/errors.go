// Package server exposes authgate over HTTP: the auth gate middleware, the
// login and logout endpoints, and the status routes.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error type and message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error types.
const (
	ErrTypeAuthentication = "authentication_error"
	ErrTypePermission     = "permission_error"
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeNotFound       = "not_found_error"
	ErrTypeRateLimit      = "rate_limit_error"
	ErrTypeNotSupported   = "not_supported_error"
	ErrTypeAPI            = "api_error"
)

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Type:  "error",
		Error: ErrorDetail{Type: errorType, Message: message},
	})
}

// WriteRateLimitError writes a 429 with a Retry-After of at least one second.
func WriteRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := max(int(retryAfter.Seconds()), 1)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	WriteError(w, http.StatusTooManyRequests, ErrTypeRateLimit,
		"Too many login attempts. Please retry after the specified time.")
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
