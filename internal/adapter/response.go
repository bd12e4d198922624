// response.go provides a uniform JSON response envelope
// (success/data/error/meta/timestamp) and domain-error status mapping
// for the dispatch engine's error types.
package adapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dispatchsim/elevator-engine/internal/constants"
	"github.com/dispatchsim/elevator-engine/internal/domain"
)

// APIResponse is the standard response envelope for every REST endpoint.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *APIMeta    `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries structured error information.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta carries response metadata.
type APIMeta struct {
	RequestID string `json:"request_id,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeConflict   = "CONFLICT"
	ErrorCodeTransient  = "TRANSIENT"
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeInternal   = "INTERNAL_ERROR"
	ErrorCodeRateLimit  = "RATE_LIMIT_EXCEEDED"
)

// ResponseWriter wraps http.ResponseWriter with the standard envelope.
type ResponseWriter struct {
	http.ResponseWriter
	logger    *slog.Logger
	requestID string
	startTime time.Time
}

// NewResponseWriter creates a ResponseWriter bound to one request.
func NewResponseWriter(w http.ResponseWriter, logger *slog.Logger, requestID string) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, logger: logger, requestID: requestID, startTime: time.Now()}
}

// WriteJSON writes a successful, enveloped JSON response.
func (rw *ResponseWriter) WriteJSON(statusCode int, data interface{}) {
	resp := APIResponse{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
		Meta:      &APIMeta{RequestID: rw.requestID, Duration: time.Since(rw.startTime).String()},
	}
	rw.Header().Set("Content-Type", constants.ContentTypeJSON)
	rw.Header().Set("X-Request-ID", rw.requestID)
	rw.WriteHeader(statusCode)
	if err := json.NewEncoder(rw).Encode(resp); err != nil {
		rw.logger.Error("failed to encode json response", slog.String("error", err.Error()))
	}
}

// WriteError writes an enveloped error response.
func (rw *ResponseWriter) WriteError(statusCode int, code, message, details string) {
	resp := APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details, RequestID: rw.requestID},
		Timestamp: time.Now(),
		Meta:      &APIMeta{RequestID: rw.requestID, Duration: time.Since(rw.startTime).String()},
	}
	rw.Header().Set("Content-Type", constants.ContentTypeJSON)
	rw.WriteHeader(statusCode)
	if err := json.NewEncoder(rw).Encode(resp); err != nil {
		rw.logger.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// WriteDomainError maps a *domain.DomainError to the right HTTP status
// and writes it as an enveloped error.
func (rw *ResponseWriter) WriteDomainError(err error) {
	status := http.StatusInternalServerError
	code := ErrorCodeInternal
	message := "internal error"

	if de, ok := err.(*domain.DomainError); ok {
		message = de.Message
		switch de.Type {
		case domain.ErrTypeValidation:
			status, code = http.StatusBadRequest, ErrorCodeValidation
		case domain.ErrTypeConflict:
			status, code = http.StatusConflict, ErrorCodeConflict
		case domain.ErrTypeTransient:
			status, code = http.StatusServiceUnavailable, ErrorCodeTransient
		case domain.ErrTypeNotFound:
			status, code = http.StatusNotFound, ErrorCodeNotFound
		}
	}
	rw.WriteError(status, code, message, err.Error())
}
