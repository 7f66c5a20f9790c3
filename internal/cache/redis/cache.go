// Package redis provides Redis-backed cache and notifier implementations
// shared by every dashboard process.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// NewClient creates a Redis client from configuration and verifies it with PING.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("connected to Redis")
	return client, nil
}

// Cache implements repository.Cache on top of Redis strings.
type Cache struct {
	client goredis.UniversalClient
}

// NewCache creates a new Redis cache.
func NewCache(client goredis.UniversalClient) *Cache {
	return &Cache{client: client}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repository.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return val, nil
}

// Set stores a value with an optional TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes a value by key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return nil
}

// Expire sets or updates the TTL for a key.
// A zero ttl removes the expiry.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	var err error
	if ttl > 0 {
		err = c.client.Expire(ctx, key, ttl).Err()
	} else {
		err = c.client.Persist(ctx, key).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return nil
}

// Notifier implements repository.Notifier with Redis pub/sub.
type Notifier struct {
	client goredis.UniversalClient
	logger zerolog.Logger
}

// NewNotifier creates a new Redis notifier.
func NewNotifier(client goredis.UniversalClient, logger zerolog.Logger) *Notifier {
	return &Notifier{
		client: client,
		logger: logger.With().Str("component", "redis_notifier").Logger(),
	}
}

// Publish sends payload on channel.
func (n *Notifier) Publish(ctx context.Context, channel, payload string) error {
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrCacheUnavailable, err)
	}
	return nil
}

// Subscribe delivers messages on channel to fn until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, channel string, fn func(string)) error {
	sub := n.client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription confirmation so no publish is missed after return.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: subscribe %s: %v", repository.ErrCacheUnavailable, channel, err)
	}

	n.logger.Debug().Str("channel", channel).Msg("subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}

// Ensure implementations satisfy the repository interfaces.
var (
	_ repository.Cache    = (*Cache)(nil)
	_ repository.Notifier = (*Notifier)(nil)
)
