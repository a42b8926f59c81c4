package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceErrorWithCause creates a service error that wraps another error
func NewServiceErrorWithCause(code, message string, cause error) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// IsServiceError checks if an error is a service error
func IsServiceError(err error) bool {
	var se ServiceError
	return errors.As(err, &se)
}

// GetServiceError extracts a ServiceError from an error
func GetServiceError(err error) (ServiceError, bool) {
	var se ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return ServiceError{}, false
}

// Common service error constructors
func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewBadRequestError(message string) error {
	return ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewForbiddenError(message string) error {
	return ServiceError{
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// Domain specific errors

func NewTemplateNotFoundError() error {
	return NewNotFoundError("Template")
}

func NewNotificationNotFoundError() error {
	return NewNotFoundError("Notification")
}

func NewBatchNotFoundError() error {
	return NewNotFoundError("Batch")
}

func NewPreferenceNotFoundError() error {
	return NewNotFoundError("Notification preference")
}

// NewProviderError records a channel adapter rejection. Provider errors are
// recorded as channel status, never propagated to the API caller.
func NewProviderError(channel string, cause error) error {
	return ServiceError{
		Code:       ErrCodeProvider,
		Message:    fmt.Sprintf("%s provider rejected the message", channel),
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
	}
}

// NewExpansionError marks a batch whose audience could not be resolved.
// Fatal to that batch only.
func NewExpansionError(reason string, cause error) error {
	return ServiceError{
		Code:       ErrCodeExpansion,
		Message:    fmt.Sprintf("Batch audience expansion failed: %s", reason),
		Cause:      cause,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewInvalidTransitionError rejects a batch status change the state machine
// does not allow.
func NewInvalidTransitionError(from, to string) error {
	return ServiceError{
		Code:       "INVALID_TRANSITION",
		Message:    fmt.Sprintf("Cannot transition batch from %s to %s", from, to),
		StatusCode: http.StatusConflict,
	}
}

// IsNotFound reports whether err carries a NOT_FOUND code.
func IsNotFound(err error) bool {
	se, ok := GetServiceError(err)
	return ok && se.Code == ErrCodeNotFound
}

// IsExpansionError reports whether err is fatal to batch expansion.
func IsExpansionError(err error) bool {
	se, ok := GetServiceError(err)
	return ok && se.Code == ErrCodeExpansion
}

// Error code constants
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeProvider   = "PROVIDER_ERROR"
	ErrCodeExpansion  = "EXPANSION_ERROR"
)
