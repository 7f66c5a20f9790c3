package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// userRepository implements repository.UserRepository for PostgreSQL.
type userRepository struct {
	q Querier
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (username, access_control, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.Username, string(user.AccessControl), user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
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
	var user domain.User
	var access string
	err := r.q.QueryRow(ctx, `
		SELECT username, access_control, name, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.Username, &access, &user.Name, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Unavailable("get user", err)
	}
	user.AccessControl = domain.AccessControl(access)
	return &user, nil
}

// Update overwrites the mutable fields of the matching user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	tag, err := r.q.Exec(ctx, `
		UPDATE users
		SET access_control = $2, name = $3, password_hash = $4, updated_at = $5
		WHERE username = $1
	`, user.Username, string(user.AccessControl), user.Name, user.PasswordHash, user.UpdatedAt)
	if err != nil {
		return domain.Unavailable("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// DeleteByUsername deletes the matching user.
func (r *userRepository) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return false, domain.Unavailable("delete user", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListDirectory returns every user without the password hash.
func (r *userRepository) ListDirectory(ctx context.Context) ([]domain.DirectoryEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT username, access_control, name FROM users ORDER BY username`)
	if err != nil {
		return nil, domain.Unavailable("list users", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DirectoryEntry, error) {
		var e domain.DirectoryEntry
		var access string
		if err := row.Scan(&e.Username, &access, &e.Name); err != nil {
			return e, err
		}
		e.AccessControl = domain.AccessControl(access)
		return e, nil
	})
	if err != nil {
		return nil, domain.Unavailable("list users", err)
	}
	if entries == nil {
		entries = []domain.DirectoryEntry{}
	}
	return entries, nil
}

// ExistsByUsername checks if a user with the given username exists.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, domain.Unavailable("check username", err)
	}
	return exists, nil
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
