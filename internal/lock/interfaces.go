// Package lock serialises mutations of a single user record.
// One dashboard process uses memory locks; several processes sharing a
// user store use Redis locks so their check-then-write sequences do not interleave.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired indicates the lock is held elsewhere and could not be taken in time.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker takes and releases named locks with a TTL.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns true if the lock was acquired, false if it's held by another process.
	// The lock will automatically expire after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases a lock.
	// Returns true if the lock was released, false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// User returns a lock key for mutations of one user record.
// Serialises the existence check and insert of concurrent adds, and
// concurrent edits of the same username.
func (lockKeys) User(username string) string {
	return "lock:user:" + username
}

// WithLock acquires key, runs fn and releases the lock.
// Returns ErrNotAcquired when the lock stays busy after the retries.
func WithLock(ctx context.Context, locker Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	acquired, err := locker.AcquireWithRetry(ctx, key, ttl, 20, 50*time.Millisecond)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrNotAcquired
	}
	defer func() {
		_, _ = locker.Release(context.WithoutCancel(ctx), key)
	}()
	return fn(ctx)
}
