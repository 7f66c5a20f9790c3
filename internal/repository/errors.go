package repository

import "errors"

// Cache errors. User store errors live in domain so every backend
// reports the same sentinels.
var (
	// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable wraps transport failures of a shared cache or notifier.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
