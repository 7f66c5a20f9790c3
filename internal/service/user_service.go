package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/lock"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/metrics"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// userLockTTL bounds how long one user mutation may hold its lock.
const userLockTTL = 10 * time.Second

// SystemActor is the identity used by the admin CLI.
var SystemActor = domain.SessionUser{
	Username:      "system",
	AccessControl: domain.AccessAdmin,
	Name:          "System",
}

// DirectoryInvalidator drops cached copies of the user directory.
type DirectoryInvalidator interface {
	Invalidate(ctx context.Context) error
}

// UserService handles authentication and user management.
type UserService struct {
	userRepo  repository.UserRepository
	hasher    auth.PasswordHasher
	locker    lock.Locker
	directory DirectoryInvalidator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// UserServiceConfig bundles the collaborators of UserService.
type UserServiceConfig struct {
	UserRepo  repository.UserRepository
	Hasher    auth.PasswordHasher
	Locker    lock.Locker
	Directory DirectoryInvalidator
	Metrics   *metrics.Metrics
}

// NewUserService creates a new UserService.
func NewUserService(cfg UserServiceConfig, logger zerolog.Logger) *UserService {
	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &UserService{
		userRepo:  cfg.UserRepo,
		hasher:    cfg.Hasher,
		locker:    locker,
		directory: cfg.Directory,
		metrics:   cfg.Metrics,
		logger:    logger.With().Str("service", "user").Logger(),
	}
}

// =============================================================================
// Authentication
// =============================================================================

// Authenticate verifies user credentials and returns the user.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := domain.RequireFields("username", username, "password", password); err != nil {
		s.metrics.ObserveLogin("invalid_input")
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			s.logger.Debug().Str("username", username).Msg("user not found during authentication")
			s.metrics.ObserveLogin("invalid")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to look up user")
		s.metrics.ObserveLogin("error")
		return nil, domain.Unavailable("authenticate", err)
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		s.logger.Debug().Str("username", username).Msg("invalid password during authentication")
		s.metrics.ObserveLogin("invalid")
		return nil, ErrInvalidCredentials
	}

	s.logger.Info().
		Str("username", user.Username).
		Str("access_control", user.AccessControl.String()).
		Msg("user authenticated")
	s.metrics.ObserveLogin("success")

	return user, nil
}

// =============================================================================
// Admin operations
// =============================================================================

// authorize checks that actor may manage every user.
func authorize(actor domain.SessionUser) error {
	switch actor.AccessControl {
	case domain.AccessAdmin:
		return nil
	case domain.AccessUser:
		return fmt.Errorf("%w: %s cannot manage users", ErrAccessDenied, actor.Username)
	default:
		return fmt.Errorf("%w: unknown access control %q", ErrAccessDenied, actor.AccessControl)
	}
}

// AddUserInput contains the data needed to create a new user.
type AddUserInput struct {
	Username      string
	AccessControl string
	Name          string
	Password      string
}

// AddUserOutput contains the result of creating a user.
type AddUserOutput struct {
	User domain.DirectoryEntry
}

// AddUser creates a new user account.
func (s *UserService) AddUser(ctx context.Context, actor domain.SessionUser, input AddUserInput) (out *AddUserOutput, err error) {
	defer func() { s.metrics.ObserveMutation("add", resultLabel(err)) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	input.Username = strings.TrimSpace(input.Username)
	if err := domain.RequireFields(
		"username", input.Username,
		"access_control", input.AccessControl,
		"name", input.Name,
		"password", input.Password,
	); err != nil {
		return nil, err
	}
	access, err := domain.ParseAccessControl(input.AccessControl)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.withUserLock(ctx, input.Username, func(ctx context.Context) error {
		exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: username '%s'", ErrUserAlreadyExists, input.Username)
		}

		hash, err := s.hashPassword(input.Password)
		if err != nil {
			return err
		}

		user = domain.NewUser(input.Username, access, input.Name, hash)
		return s.userRepo.Create(ctx, user)
	})
	if err != nil {
		s.logFailure(err, "add", input.Username)
		return nil, err
	}

	s.invalidateDirectory(ctx)
	s.logger.Info().
		Str("actor", actor.Username).
		Str("username", user.Username).
		Str("access_control", user.AccessControl.String()).
		Msg("user created")

	return &AddUserOutput{User: user.DirectoryEntry()}, nil
}

// DeleteUserOutput contains the result of deleting a user.
type DeleteUserOutput struct {
	Username string

	// Deleted is false when no user matched; that is not an error.
	Deleted bool
}

// DeleteUser deletes a user account.
func (s *UserService) DeleteUser(ctx context.Context, actor domain.SessionUser, username string) (out *DeleteUserOutput, err error) {
	defer func() { s.metrics.ObserveMutation("delete", resultLabel(err)) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if err := domain.RequireFields("username", username); err != nil {
		return nil, err
	}

	var deleted bool
	err = s.withUserLock(ctx, username, func(ctx context.Context) error {
		var err error
		deleted, err = s.userRepo.DeleteByUsername(ctx, username)
		return err
	})
	if err != nil {
		s.logFailure(err, "delete", username)
		return nil, err
	}

	s.invalidateDirectory(ctx)
	s.logger.Info().
		Str("actor", actor.Username).
		Str("username", username).
		Bool("deleted", deleted).
		Msg("user delete processed")

	return &DeleteUserOutput{Username: username, Deleted: deleted}, nil
}

// EditUserInput contains the replacement values for an existing user.
// The username selects the record and never changes.
type EditUserInput struct {
	Username      string
	AccessControl string
	Name          string
	Password      string
}

// EditUserOutput contains the result of editing a user.
type EditUserOutput struct {
	User domain.DirectoryEntry
}

// EditUser overwrites the access control, name and password of a user.
func (s *UserService) EditUser(ctx context.Context, actor domain.SessionUser, input EditUserInput) (out *EditUserOutput, err error) {
	defer func() { s.metrics.ObserveMutation("edit", resultLabel(err)) }()

	if err := authorize(actor); err != nil {
		return nil, err
	}
	input.Username = strings.TrimSpace(input.Username)
	if err := domain.RequireFields(
		"username", input.Username,
		"access_control", input.AccessControl,
		"name", input.Name,
		"password", input.Password,
	); err != nil {
		return nil, err
	}
	access, err := domain.ParseAccessControl(input.AccessControl)
	if err != nil {
		return nil, err
	}

	user, err := s.overwrite(ctx, input.Username, access, input.Name, input.Password)
	if err != nil {
		s.logFailure(err, "edit", input.Username)
		return nil, err
	}

	s.invalidateDirectory(ctx)
	s.logger.Info().
		Str("actor", actor.Username).
		Str("username", user.Username).
		Str("access_control", user.AccessControl.String()).
		Msg("user updated")

	return &EditUserOutput{User: user.DirectoryEntry()}, nil
}

// =============================================================================
// Self-service
// =============================================================================

// EditProfileInput contains the new name and password of the caller.
type EditProfileInput struct {
	Name     string
	Password string
}

// EditProfileOutput contains the refreshed identity for the caller's session.
type EditProfileOutput struct {
	User domain.SessionUser
}

// EditOwnProfile updates the caller's own name and password.
// Regular users stay User; an admin keeps its own role.
func (s *UserService) EditOwnProfile(ctx context.Context, actor domain.SessionUser, input EditProfileInput) (out *EditProfileOutput, err error) {
	defer func() { s.metrics.ObserveMutation("edit_profile", resultLabel(err)) }()

	if !actor.Can().EditOwnProfile {
		return nil, fmt.Errorf("%w: %s cannot edit a profile", ErrAccessDenied, actor.Username)
	}
	if err := domain.RequireFields("name", input.Name, "password", input.Password); err != nil {
		return nil, err
	}

	access := domain.AccessUser
	if actor.AccessControl == domain.AccessAdmin {
		access = domain.AccessAdmin
	}

	user, err := s.overwrite(ctx, actor.Username, access, input.Name, input.Password)
	if err != nil {
		s.logFailure(err, "edit_profile", actor.Username)
		return nil, err
	}

	s.invalidateDirectory(ctx)
	s.logger.Info().Str("username", user.Username).Msg("profile updated")

	return &EditProfileOutput{User: user.SessionUser()}, nil
}

// =============================================================================
// CLI helpers
// =============================================================================

// SetPassword replaces the password of username and keeps its role and name.
func (s *UserService) SetPassword(ctx context.Context, actor domain.SessionUser, username, password string) (err error) {
	defer func() { s.metrics.ObserveMutation("set_password", resultLabel(err)) }()

	if err := authorize(actor); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if err := domain.RequireFields("username", username, "password", password); err != nil {
		return err
	}

	err = s.withUserLock(ctx, username, func(ctx context.Context) error {
		user, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		hash, err := s.hashPassword(password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		return s.userRepo.Update(ctx, user)
	})
	if err != nil {
		s.logFailure(err, "set_password", username)
		return err
	}

	s.logger.Info().Str("actor", actor.Username).Str("username", username).Msg("password updated")
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// overwrite replaces the mutable fields of username under its lock.
func (s *UserService) overwrite(ctx context.Context, username string, access domain.AccessControl, name, password string) (*domain.User, error) {
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:      username,
		AccessControl: access,
		Name:          name,
		PasswordHash:  hash,
	}
	err = s.withUserLock(ctx, username, func(ctx context.Context) error {
		return s.userRepo.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// hashPassword hashes password, reporting the bcrypt length limit separately
// from missing input.
func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "", fmt.Errorf("%w: limit is %d bytes", ErrPasswordTooLong, auth.MaxPasswordBytes)
	default:
		return "", fmt.Errorf("%w: hash password: %v", ErrInternalError, err)
	}
}

func (s *UserService) withUserLock(ctx context.Context, username string, fn func(ctx context.Context) error) error {
	err := lock.WithLock(ctx, s.locker, lock.Keys.User(username), userLockTTL, fn)
	if errors.Is(err, lock.ErrNotAcquired) {
		return fmt.Errorf("%w: %s", ErrUserBusy, username)
	}
	return err
}

func (s *UserService) invalidateDirectory(ctx context.Context) {
	if s.directory == nil {
		return
	}
	if err := s.directory.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to broadcast directory invalidation")
	}
}

func (s *UserService) logFailure(err error, op, username string) {
	event := s.logger.Warn()
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrInternalError) {
		event = s.logger.Error()
	}
	event.Err(err).Str("op", op).Str("username", username).Msg("user operation failed")
}

// resultLabel maps an operation error to a metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPasswordTooLong):
		return "invalid"
	case errors.Is(err, ErrAccessDenied):
		return "denied"
	case errors.Is(err, ErrUserAlreadyExists):
		return "exists"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
