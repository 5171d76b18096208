package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes follow the format KV-<AREA>-<NNNN>, where the trailing number is the
// HTTP status followed by a discriminator digit.
type DomainError struct {
	Code    string // Error code (e.g., "KV-KEY-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison by code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Key errors (KEY).
var (
	// ErrKeyNotFound indicates the requested key does not exist.
	ErrKeyNotFound = NewDomainError("KV-KEY-4040", "key not found")

	// ErrKeyExists indicates a create-only write hit an existing key.
	ErrKeyExists = NewDomainError("KV-KEY-4090", "key already exists")
)

// Argument errors (ARG).
var (
	// ErrInvalidKey indicates the key failed validation.
	ErrInvalidKey = NewDomainError("KV-ARG-4001", "invalid key")

	// ErrInvalidValue indicates the value failed validation.
	ErrInvalidValue = NewDomainError("KV-ARG-4002", "invalid value")
)

// System errors (SYS).
var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("KV-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("KV-SYS-4290", "too many requests")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("KV-SYS-5000", "internal server error")

	// ErrBackendUnavailable indicates the storage backend could not serve the
	// request. Callers may retry; the in-memory backend never returns it.
	ErrBackendUnavailable = NewDomainError("KV-SYS-5030", "storage backend unavailable")
)
