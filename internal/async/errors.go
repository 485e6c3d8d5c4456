package async

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType classifies an operation error
type ErrorType string

const (
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeTransient    ErrorType = "transient"
	ErrorTypeTerminal     ErrorType = "terminal"
	ErrorTypeDuplicate    ErrorType = "duplicate"
	ErrorTypeClosed       ErrorType = "closed"
)

// OperationError is the error type produced by the executor and retry policy
type OperationError struct {
	Type     ErrorType `json:"type"`
	Op       string    `json:"op,omitempty"`
	Message  string    `json:"message"`
	Attempts int       `json:"attempts,omitempty"`
	Cause    error     `json:"-"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Op, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewCancellationError wraps a cancellation signal observed during op
func NewCancellationError(op string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Op:      op,
		Message: "operation was cancelled",
		Cause:   cause,
	}
}

// NewTerminalError marks retries as exhausted, recording the attempt count
func NewTerminalError(op string, attempts int, cause error) *OperationError {
	return &OperationError{
		Type:     ErrorTypeTerminal,
		Op:       op,
		Message:  fmt.Sprintf("operation failed after %d attempts", attempts),
		Attempts: attempts,
		Cause:    cause,
	}
}

// ErrDuplicateRequest is returned when a load is rejected because one is
// already in flight. It is a benign skip, not a failure: callers must do
// no work and mutate no state, and should treat it as a no-op.
var ErrDuplicateRequest = &OperationError{
	Type:    ErrorTypeDuplicate,
	Message: "a load is already in flight; request skipped",
}

// ErrExecutorClosed is returned by calls made after Close
var ErrExecutorClosed = &OperationError{
	Type:    ErrorTypeClosed,
	Message: "executor is closed",
}

// IsCancellation reports whether err represents a cancellation signal,
// either a context error or a wrapped cancellation
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type == ErrorTypeCancellation
	}
	return false
}

// IsRetryable reports whether err should be retried. Every non-cancellation
// failure is treated as transient; the retry bound decides when it becomes
// terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Type == ErrorTypeTerminal {
		return false
	}
	return !IsCancellation(err)
}

// IsDuplicate reports whether err is the duplicate-request skip
func IsDuplicate(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Type == ErrorTypeDuplicate
}
