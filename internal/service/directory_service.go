package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/metrics"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// DirectoryService serves the user directory from a memoised snapshot.
// The snapshot is filled on the first List after an invalidation and kept
// until the next one.
type DirectoryService struct {
	userRepo repository.UserRepository
	notifier repository.Notifier
	channel  string
	origin   string
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	group singleflight.Group

	mu         sync.RWMutex
	snapshot   []domain.DirectoryEntry
	valid      bool
	generation uint64
}

// NewDirectoryService creates a new DirectoryService.
// notifier may be nil, in which case invalidations stay local to this process.
func NewDirectoryService(userRepo repository.UserRepository, notifier repository.Notifier, channel string, m *metrics.Metrics, logger zerolog.Logger) *DirectoryService {
	return &DirectoryService{
		userRepo: userRepo,
		notifier: notifier,
		channel:  channel,
		origin:   uuid.NewString(),
		metrics:  m,
		logger:   logger.With().Str("service", "directory").Logger(),
	}
}

// List returns every user without its password, ordered by username.
func (s *DirectoryService) List(ctx context.Context) ([]domain.DirectoryEntry, error) {
	s.mu.RLock()
	if s.valid {
		entries := cloneEntries(s.snapshot)
		s.mu.RUnlock()
		s.metrics.ObserveDirectory("hit")
		return entries, nil
	}
	gen := s.generation
	s.mu.RUnlock()

	s.metrics.ObserveDirectory("miss")

	// Keyed by generation so a caller arriving after an invalidation never
	// joins a read that started before it.
	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		s.mu.RLock()
		if s.valid && s.generation == gen {
			entries := s.snapshot
			s.mu.RUnlock()
			return entries, nil
		}
		s.mu.RUnlock()

		entries, err := s.userRepo.ListDirectory(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.generation == gen {
			s.snapshot = entries
			s.valid = true
		}
		s.mu.Unlock()

		return entries, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load user directory")
		return nil, domain.Unavailable("list directory", err)
	}

	return cloneEntries(v.([]domain.DirectoryEntry)), nil
}

// Invalidate drops the snapshot here and, when a notifier is configured,
// in every other process subscribed to the channel.
func (s *DirectoryService) Invalidate(ctx context.Context) error {
	s.invalidateLocal()

	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Publish(ctx, s.channel, s.origin); err != nil {
		return fmt.Errorf("publish directory invalidation: %w", err)
	}
	return nil
}

// Run applies invalidations published by other processes until ctx is done.
func (s *DirectoryService) Run(ctx context.Context) error {
	if s.notifier == nil {
		<-ctx.Done()
		return nil
	}

	s.logger.Info().Str("channel", s.channel).Msg("listening for directory invalidations")
	return s.notifier.Subscribe(ctx, s.channel, func(origin string) {
		if origin == s.origin {
			return
		}
		s.invalidateLocal()
		s.logger.Debug().Str("origin", origin).Msg("directory invalidated remotely")
	})
}

func (s *DirectoryService) invalidateLocal() {
	s.mu.Lock()
	s.generation++
	s.snapshot = nil
	s.valid = false
	s.mu.Unlock()

	s.metrics.ObserveDirectory("invalidate")
}

func cloneEntries(in []domain.DirectoryEntry) []domain.DirectoryEntry {
	out := make([]domain.DirectoryEntry, len(in))
	copy(out, in)
	return out
}

var _ DirectoryInvalidator = (*DirectoryService)(nil)
