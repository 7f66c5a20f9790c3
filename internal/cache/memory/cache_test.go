package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

func TestCache_SetGetDelete(t *testing.T) {
	c := NewCache()
	defer c.Stop()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	value := []byte("hello")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'j'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache()
	defer c.Stop()
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(30 * time.Second)
	require.NoError(t, c.Expire(ctx, "k", time.Minute))

	now = now.Add(45 * time.Second)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err, "expire should have extended the ttl")

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	c.cleanup()
	require.Equal(t, 0, c.Len())
}

func TestNotifier_PublishSubscribe(t *testing.T) {
	n := NewNotifier()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	go func() {
		_ = n.Subscribe(ctx, "ch", func(p string) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return n.Subscribers("ch") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, n.Publish(context.Background(), "ch", "a"))
	require.NoError(t, n.Publish(context.Background(), "other", "b"))

	cancel()
	<-done
	require.Equal(t, 0, n.Subscribers("ch"))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"a"}, got)
}
