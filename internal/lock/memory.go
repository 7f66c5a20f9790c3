package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker with a mutex-guarded map.
// Locks only serialise callers inside one dashboard process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryLocker creates a new in-memory locker and starts its reaper.
func NewMemoryLocker() *MemoryLocker {
	m := &MemoryLocker{
		locks: make(map[string]time.Time),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Stop ends the background reaper.
func (m *MemoryLocker) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *MemoryLocker) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryLocker) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, expiresAt := range m.locks {
		if !now.Before(expiresAt) {
			delete(m.locks, key)
		}
	}
}

// heldLocked reports whether key is held and drops it if expired.
// Callers must hold m.mu.
func (m *MemoryLocker) heldLocked(key string) bool {
	expiresAt, ok := m.locks[key]
	if !ok {
		return false
	}
	if !m.now().Before(expiresAt) {
		delete(m.locks, key)
		return false
	}
	return true
}

// Acquire attempts to acquire a lock.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.heldLocked(key) {
		return false, nil
	}
	m.locks[key] = m.now().Add(ttl)
	return true, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := m.Acquire(ctx, key, ttl)
		if err != nil || acquired {
			return acquired, err
		}

		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// Release releases a lock.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.heldLocked(key)
	delete(m.locks, key)
	return held, nil
}

// Ensure MemoryLocker implements Locker.
var _ Locker = (*MemoryLocker)(nil)
