// Package errors defines the structured HTTP error envelope rendered by
// the transport layer and its mapping from the async error taxonomy.
package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"muniflow/internal/async"
)

// APIError is the structured API error response
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// Predefined errors for common scenarios
var (
	ErrInvalidRequest    = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrNotFound          = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrOperationNotFound = New(http.StatusNotFound, "OPERATION_NOT_FOUND", "Operation not found")
	ErrAlreadyRunning    = New(http.StatusConflict, "ALREADY_RUNNING", "A load is already in flight")
	ErrTooManyRequests   = New(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
	ErrInternal          = New(http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
)

// FromOperationError maps an async operation error to its HTTP envelope
func FromOperationError(err error) *APIError {
	if err == nil {
		return nil
	}
	if async.IsDuplicate(err) {
		return ErrAlreadyRunning
	}
	if async.IsCancellation(err) {
		return New(http.StatusConflict, "OPERATION_CANCELLED", "Operation was cancelled")
	}
	var opErr *async.OperationError
	if errors.As(err, &opErr) && opErr.Type == async.ErrorTypeTerminal {
		return New(http.StatusBadGateway, "LOAD_FAILED", opErr.Error())
	}
	return ErrInternal
}
