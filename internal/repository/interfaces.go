// Package repository defines data access interfaces for the sentiment dashboard.
// These interfaces abstract the user store, allowing MongoDB, PostgreSQL and
// SQLite implementations (and in-memory fakes for testing) while keeping the
// service layer clean.
package repository

import (
	"context"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
// Username is the lookup key for every operation.
type UserRepository interface {
	// Create inserts a new user.
	// Returns domain.ErrUserAlreadyExists if the username is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByUsername retrieves a user by username.
	// Returns domain.ErrUserNotFound if no record matches.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update overwrites access control, name and password hash of the
	// record matching user.Username. The username itself is never changed.
	// Returns domain.ErrUserNotFound if no record matches.
	Update(ctx context.Context, user *domain.User) error

	// DeleteByUsername removes the matching record.
	// Returns false (and no error) when nothing matched.
	DeleteByUsername(ctx context.Context, username string) (bool, error)

	// ListDirectory returns every user without the password, ordered by username.
	ListDirectory(ctx context.Context) ([]domain.DirectoryEntry, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// =============================================================================
// Store lifecycle
// =============================================================================

// Store is a connected user store backend.
type Store interface {
	// Users returns the user repository of this backend.
	Users() UserRepository

	// EnsureSchema creates the collection index or table the backend needs,
	// including the unique constraint on username.
	EnsureSchema(ctx context.Context) error

	// Ping checks the connection.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}
