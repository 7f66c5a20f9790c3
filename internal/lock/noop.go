package lock

import (
	"context"
	"time"
)

// NoOpLocker grants every lock. Used by the admin CLI, which runs one
// mutation per process.
type NoOpLocker struct{}

// NewNoOpLocker creates a new no-op locker.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

func (NoOpLocker) Acquire(ctx context.Context, _ string, _ time.Duration) (bool, error) {
	return true, ctx.Err()
}

func (NoOpLocker) AcquireWithRetry(ctx context.Context, _ string, _ time.Duration, _ int, _ time.Duration) (bool, error) {
	return true, ctx.Err()
}

func (NoOpLocker) Release(ctx context.Context, _ string) (bool, error) {
	return true, ctx.Err()
}

var _ Locker = NoOpLocker{}
