package repository

import (
	"context"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the key/value operations used for session storage.
// Implemented in memory for single-node deployments and with Redis when
// several dashboard processes share state.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Expire sets or updates the TTL for a key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// =============================================================================
// Notifier Interface
// =============================================================================

// Notifier delivers small messages to every subscriber of a channel,
// including subscribers in other processes when backed by Redis.
type Notifier interface {
	// Publish sends payload to all current subscribers of channel.
	Publish(ctx context.Context, channel, payload string) error

	// Subscribe calls fn for every payload published on channel until ctx
	// is done. It blocks; run it in its own goroutine.
	Subscribe(ctx context.Context, channel string, fn func(payload string)) error
}

// =============================================================================
// Common Cache Keys
// =============================================================================

// CacheKey generates cache keys for common scenarios.
type CacheKey struct{}

// Session returns the cache key for a session token.
func (CacheKey) Session(token string) string {
	return "session:" + token
}
