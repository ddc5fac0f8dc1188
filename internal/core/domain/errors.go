package domain

import "fmt"

// Error codes used across the service layer. Provider-level failures
// (network, parse, config) are recoverable and collapse to empty results at
// the adapter; only these surface to HTTP responses.
const (
	ErrCodeInvalidLocation = "INVALID_LOCATION"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeNoData          = "NO_DATA"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ServiceError represents domain-specific errors that can occur during
// aggregation operations. It provides structured error information with an
// error code and an optional underlying cause.
type ServiceError struct {
	// Code identifies the type of error for programmatic handling
	Code string

	// Message provides a human-readable error description
	Message string

	// Cause wraps an underlying error if applicable
	Cause error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}
