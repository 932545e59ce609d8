package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an error for the dispatch pipeline.
type ErrorType string

const (
	// Auth errors are terminal: never retried, always converted into a
	// global redirect intent.
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"

	// Conflict marks an ETag precondition failure (HTTP 412). Retried with
	// the freshly read ETag up to a bounded count.
	ErrorTypeConflict ErrorType = "CONFLICT"

	// Network marks a transport-level failure (server unreachable). Sets the
	// global offline flag and still reaches request-specific handlers.
	ErrorTypeNetwork ErrorType = "NETWORK"

	// Timeout is surfaced with distinct wording (completion timeout,
	// indexing timeout) where it matters to the user.
	ErrorTypeTimeout ErrorType = "TIMEOUT"

	// Canceled marks user-initiated aborts. Never produces a toast.
	ErrorTypeCanceled ErrorType = "CANCELED"

	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// AppError carries a classified error through the effect pipelines. Raw
// transport errors never cross component boundaries; classification outcomes
// do.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return &AppError{
		Type:       ErrorTypeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflictError creates an ETag precondition failure
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		HTTPStatus: http.StatusPreconditionFailed,
	}
}

// NewNetworkError creates a transport-level failure
func NewNetworkError(err error) *AppError {
	return &AppError{
		Type:    ErrorTypeNetwork,
		Message: "server unreachable",
		Cause:   err,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    fmt.Sprintf("operation '%s' timed out", operation),
		HTTPStatus: http.StatusRequestTimeout,
	}
}

// NewCanceledError marks a user-initiated abort
func NewCanceledError(operation string) *AppError {
	return &AppError{
		Type:    ErrorTypeCanceled,
		Message: fmt.Sprintf("operation '%s' canceled", operation),
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// FromStatus classifies an HTTP response status code.
func FromStatus(status int, body string) *AppError {
	switch status {
	case http.StatusUnauthorized:
		return NewUnauthorizedError(body)
	case http.StatusForbidden:
		return NewForbiddenError(body)
	case http.StatusPreconditionFailed:
		return NewConflictError(body)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return NewTimeoutError(body)
	default:
		return &AppError{
			Type:       ErrorTypeInternal,
			Message:    fmt.Sprintf("request failed with status %d", status),
			Details:    map[string]interface{}{"body": body},
			HTTPStatus: status,
		}
	}
}

// Classify folds an arbitrary error into an AppError. Context cancellation is
// user-initiated, deadline expiry is a timeout, everything else that is not
// already classified becomes a network failure (the only unclassified errors
// reaching this point come from the transport).
func Classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) {
		return NewCanceledError("request")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("request")
	}
	return NewNetworkError(err)
}

// GetType extracts the classification from any error.
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsAuthError reports whether err must become a global redirect.
func IsAuthError(err error) bool {
	t := GetType(err)
	return t == ErrorTypeUnauthorized || t == ErrorTypeForbidden
}

// IsConflict reports whether err is an ETag precondition failure.
func IsConflict(err error) bool {
	return GetType(err) == ErrorTypeConflict
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	return GetType(err) == ErrorTypeNetwork
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool {
	return GetType(err) == ErrorTypeTimeout
}

// IsCanceled reports whether err is a user-initiated abort.
func IsCanceled(err error) bool {
	return GetType(err) == ErrorTypeCanceled || errors.Is(err, context.Canceled)
}
