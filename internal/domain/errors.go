package domain

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of domain error
type ErrorType string

const (
	// ValidationError represents validation failures
	ValidationError ErrorType = "VALIDATION_ERROR"
	// NotFoundError represents resource not found (including cache misses)
	NotFoundError ErrorType = "NOT_FOUND_ERROR"
	// NoCredentialError represents operations attempted without a stored access token
	NoCredentialError ErrorType = "NO_CREDENTIAL_ERROR"
	// UnavailableError represents transport failures, timeouts and remote 5xx responses
	UnavailableError ErrorType = "UNAVAILABLE_ERROR"
	// RejectedError represents remote 4xx responses and malformed payloads
	RejectedError ErrorType = "REJECTED_ERROR"
	// ExpiredError represents an expired device code or deadline
	ExpiredError ErrorType = "EXPIRED_ERROR"
	// InternalError represents internal system errors
	InternalError ErrorType = "INTERNAL_ERROR"
)

// DomainError represents a domain-specific error with additional context.
// Callers branch on Type, never on message text; the original cause travels
// along as a diagnostic through Unwrap.
type DomainError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *DomainError {
	return &DomainError{
		Type:    ValidationError,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{
		Type:    NotFoundError,
		Code:    code,
		Message: message,
	}
}

// NewNoCredentialError creates a new missing-credential error
func NewNoCredentialError(code, message string) *DomainError {
	return &DomainError{
		Type:    NoCredentialError,
		Code:    code,
		Message: message,
	}
}

// NewUnavailableError creates a new remote-unavailable error
func NewUnavailableError(code, message string, cause error) *DomainError {
	return &DomainError{
		Type:    UnavailableError,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewRejectedError creates a new remote-rejected error
func NewRejectedError(code, message string, cause error) *DomainError {
	return &DomainError{
		Type:    RejectedError,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewExpiredError creates a new expired error
func NewExpiredError(code, message string) *DomainError {
	return &DomainError{
		Type:    ExpiredError,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *DomainError {
	return &DomainError{
		Type:    InternalError,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// TypeOf returns the ErrorType of err, or InternalError when err carries no
// DomainError anywhere in its chain.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return InternalError
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return TypeOf(err) == NotFoundError }

// IsNoCredential reports whether err is a missing-credential error.
func IsNoCredential(err error) bool { return TypeOf(err) == NoCredentialError }

// IsUnavailable reports whether err is a remote-unavailable error.
func IsUnavailable(err error) bool { return TypeOf(err) == UnavailableError }

// IsRejected reports whether err is a remote-rejected error.
func IsRejected(err error) bool { return TypeOf(err) == RejectedError }

// IsExpired reports whether err is an expired error.
func IsExpired(err error) bool { return TypeOf(err) == ExpiredError }
