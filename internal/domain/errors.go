// Package domain contains the core business entities for the sentiment dashboard.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials indicates authentication failed.
	// It never says whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrValidation indicates a required form field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ===========================================
	// Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the caller's role does not allow the operation.
	ErrAccessDenied = errors.New("access denied")

	// ErrSessionNotFound indicates the session token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ===========================================
	// Infrastructure Errors
	// ===========================================

	// ErrStoreUnavailable indicates the user store could not be reached.
	// It is retryable from the caller's point of view.
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

// NewValidationError creates a ValidationError for the given fields.
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(e.Fields, ", "))
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RequireFields returns a ValidationError naming every empty value.
// Values are given as name/value pairs.
func RequireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return NewValidationError(missing...)
	}
	return nil
}

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., username).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// Unavailable wraps an infrastructure failure as ErrStoreUnavailable
// while keeping the cause in the message.
func Unavailable(op string, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrStoreUnavailable) {
		return cause
	}
	return &DomainError{Err: ErrStoreUnavailable, Message: fmt.Sprintf("%s: %v", op, cause)}
}
