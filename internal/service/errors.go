// Package service provides the business logic of the sentiment dashboard.
package service

import (
	"errors"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
)

// Common service errors.
// The user and session errors alias the domain sentinels so callers can match
// either with errors.Is.
var (
	// User errors
	ErrUserNotFound       = domain.ErrUserNotFound
	ErrUserAlreadyExists  = domain.ErrUserAlreadyExists
	ErrInvalidCredentials = domain.ErrInvalidCredentials
	ErrValidation         = domain.ErrValidation
	ErrAccessDenied       = domain.ErrAccessDenied
	ErrUserBusy           = errors.New("another change to this user is in progress")
	ErrPasswordTooLong    = auth.ErrPasswordTooLong

	// Session errors
	ErrSessionNotFound = domain.ErrSessionNotFound

	// Prediction and report errors
	ErrModelUnavailable = errors.New("sentiment model unavailable")
	ErrInvalidDataset   = errors.New("invalid dataset")

	// General errors
	ErrStoreUnavailable = domain.ErrStoreUnavailable
	ErrInternalError    = errors.New("internal server error")
)
