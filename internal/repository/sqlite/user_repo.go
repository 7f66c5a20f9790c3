package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

const userColumns = `username, access_control, name, password_hash, created_at, updated_at`

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username,
		string(user.AccessControl),
		user.Name,
		user.PasswordHash,
		user.CreatedAt.UTC().Format(time.RFC3339Nano),
		user.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDomainError(domain.ErrUserAlreadyExists, "username taken", user.Username)
		}
		return domain.Unavailable("create user", err)
	}
	return nil
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var (
		user                 domain.User
		access               string
		createdAt, updatedAt string
	)
	err := r.db.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	).Scan(&user.Username, &access, &user.Name, &user.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Unavailable("get user", err)
	}

	user.AccessControl = domain.AccessControl(access)
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &user, nil
}

// Update overwrites the mutable fields of the matching user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := r.db.db.ExecContext(ctx,
		`UPDATE users SET access_control = ?, name = ?, password_hash = ?, updated_at = ? WHERE username = ?`,
		string(user.AccessControl),
		user.Name,
		user.PasswordHash,
		user.UpdatedAt.Format(time.RFC3339Nano),
		user.Username,
	)
	if err != nil {
		return domain.Unavailable("update user", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return domain.Unavailable("update user", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// DeleteByUsername deletes the matching user.
func (r *userRepository) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	result, err := r.db.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return false, domain.Unavailable("delete user", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, domain.Unavailable("delete user", err)
	}
	return n > 0, nil
}

// ListDirectory returns every user without the password hash.
func (r *userRepository) ListDirectory(ctx context.Context) ([]domain.DirectoryEntry, error) {
	rows, err := r.db.db.QueryContext(ctx,
		`SELECT username, access_control, name FROM users ORDER BY username`)
	if err != nil {
		return nil, domain.Unavailable("list users", err)
	}
	defer rows.Close()

	entries := make([]domain.DirectoryEntry, 0)
	for rows.Next() {
		var e domain.DirectoryEntry
		var access string
		if err := rows.Scan(&e.Username, &access, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		e.AccessControl = domain.AccessControl(access)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list users", err)
	}
	return entries, nil
}

// ExistsByUsername checks if a user with the given username exists.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&count)
	if err != nil {
		return false, domain.Unavailable("check username", err)
	}
	return count > 0, nil
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
