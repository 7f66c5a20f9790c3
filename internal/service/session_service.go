package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/pkg/crypto"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// Authenticator verifies a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// UserLookup reads the current user record by username.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// SessionService manages per-client sessions held in a cache.
// The cache entry's TTL is the session's idle timeout.
type SessionService struct {
	cache   repository.Cache
	users   Authenticator
	records UserLookup
	ttl     time.Duration
	keys    repository.CacheKey
	now     func() time.Time
	logger  zerolog.Logger
}

// NewSessionService creates a new SessionService.
// records is consulted on every Get so role changes and deletions apply to
// sessions that are already open.
func NewSessionService(cache repository.Cache, users Authenticator, records UserLookup, ttl time.Duration, logger zerolog.Logger) *SessionService {
	return &SessionService{
		cache:   cache,
		users:   users,
		records: records,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With().Str("service", "session").Logger(),
	}
}

// LoginInput contains the submitted credentials.
type LoginInput struct {
	Username string
	Password string
}

// LoginOutput contains the newly created session.
type LoginOutput struct {
	Session *domain.Session
}

// Login authenticates the credentials and opens a new session.
// On failure no session is created.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	user, err := s.users.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		return nil, err
	}

	token, err := crypto.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.now().UTC()
	su := user.SessionUser()
	session := &domain.Session{
		Token:     token,
		User:      &su,
		CreatedAt: now,
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", su.Username).Msg("session opened")
	return &LoginOutput{Session: session}, nil
}

// Get returns the live session for token and slides its expiry forward.
// The user snapshot is re-read from the user store: a removed user loses the
// session and a changed role or name replaces the snapshot.
func (s *SessionService) Get(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.User != nil {
		user, err := s.records.GetByUsername(ctx, session.User.Username)
		switch {
		case errors.Is(err, ErrUserNotFound):
			s.logger.Info().Str("username", session.User.Username).Msg("closing session of removed user")
			if err := s.cache.Delete(ctx, s.keys.Session(token)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			return nil, ErrSessionNotFound
		case err != nil:
			return nil, err
		}

		if current := user.SessionUser(); current != *session.User {
			s.logger.Debug().Str("username", current.Username).Msg("refreshing session user")
			session.User = &current
			if err := s.save(ctx, session); err != nil {
				return nil, err
			}
			return session, nil
		}
	}

	if err := s.cache.Expire(ctx, s.keys.Session(token), s.ttl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return session, nil
}

// Logout deletes the session. Unknown tokens are ignored.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.cache.Delete(ctx, s.keys.Session(token)); err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.logger.Debug().Msg("session closed")
	return nil
}

// UpdateUser replaces the identity snapshot held by the session.
func (s *SessionService) UpdateUser(ctx context.Context, token string, user domain.SessionUser) error {
	return s.modify(ctx, token, func(session *domain.Session) {
		session.User = &user
	})
}

// SetFlash stores a notification for the next rendered page.
func (s *SessionService) SetFlash(ctx context.Context, token string, flash domain.Flash) error {
	return s.modify(ctx, token, func(session *domain.Session) {
		session.Flash = &flash
	})
}

// PopFlash returns the pending notification and clears it.
// Returns nil when there is none.
func (s *SessionService) PopFlash(ctx context.Context, token string) (*domain.Flash, error) {
	var flash *domain.Flash
	err := s.modify(ctx, token, func(session *domain.Session) {
		flash = session.Flash
		session.Flash = nil
	})
	return flash, err
}

func (s *SessionService) modify(ctx context.Context, token string, fn func(*domain.Session)) error {
	session, err := s.load(ctx, token)
	if err != nil {
		return err
	}
	fn(session)
	return s.save(ctx, session)
}

func (s *SessionService) load(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.cache.Get(ctx, s.keys.Session(token))
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupt session")
		_ = s.cache.Delete(ctx, s.keys.Session(token))
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionService) save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if err := s.cache.Set(ctx, s.keys.Session(session.Token), data, s.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return nil
}
