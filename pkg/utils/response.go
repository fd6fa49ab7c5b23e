// Package utils provides common utility functions for HTTP response handling,
// request ID management, retry logic, and client IP extraction. Responses
// follow the Ckryptbit envelope convention where every payload carries a
// success flag, optional data, and an optional operator-facing message.
package utils

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// requestIDKey is the context key for request ID
const requestIDKey contextKey = "request_id"

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if the context is nil or no request ID is present.
//
// Example:
//
//	requestID := utils.GetRequestID(r.Context())
//	if requestID != "" {
//	    log.Info().Str("request_id", requestID).Msg("Processing request")
//	}
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID adds a request ID to the context for distributed tracing.
// This is typically called by middleware to inject a unique identifier for each request.
//
// Example:
//
//	ctx := utils.WithRequestID(r.Context(), uuid.New().String())
//	r = r.WithContext(ctx)
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Envelope is the standard Ckryptbit response shape. The same shape is used
// by the upstream backend API and by the console's own surface, so operators
// and tooling see one wire format end to end.
type Envelope struct {
	Success   bool        `json:"success"`              // Operation outcome
	Data      interface{} `json:"data,omitempty"`       // Response payload
	Message   string      `json:"message,omitempty"`    // Operator-facing message
	RequestID string      `json:"request_id,omitempty"` // Request ID for distributed tracing
}

// RespondWithError sends an envelope with success=false and the given message.
// The request ID is automatically extracted from the request context.
//
// Example:
//
//	if session.User == nil {
//	    utils.RespondWithError(w, r, http.StatusUnauthorized, "Not authenticated")
//	    return
//	}
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	requestID := GetRequestID(r.Context())
	writeEnvelope(w, statusCode, Envelope{
		Success:   false,
		Message:   message,
		RequestID: requestID,
	}, requestID)
}

// RespondWithJSON sends a raw JSON response with the given status code and
// data, without the envelope wrapper. Used for endpoints with an externally
// fixed shape such as Prometheus metrics companions or health checks.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	requestID := GetRequestID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to encode JSON response")
	}
}

// RespondWithSuccess sends an envelope with success=true and the given data
// with HTTP 200 status. The request ID is automatically extracted from the
// request context.
//
// Example:
//
//	utils.RespondWithSuccess(w, r, session)
func RespondWithSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	requestID := GetRequestID(r.Context())
	writeEnvelope(w, http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		RequestID: requestID,
	}, requestID)
}

// RespondWithMessage sends an envelope carrying only a message and the given
// status code. The success flag follows the status code class.
//
// Example:
//
//	utils.RespondWithMessage(w, r, http.StatusOK, "Uplink purged")
func RespondWithMessage(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	requestID := GetRequestID(r.Context())
	writeEnvelope(w, statusCode, Envelope{
		Success:   statusCode < 400,
		Message:   message,
		RequestID: requestID,
	}, requestID)
}

func writeEnvelope(w http.ResponseWriter, statusCode int, env Envelope, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to encode response envelope")
	}
}
