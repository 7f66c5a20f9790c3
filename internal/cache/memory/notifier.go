package memory

import (
	"context"
	"sync"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// Notifier implements repository.Notifier within a single process.
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(string)
}

// NewNotifier creates a new in-process notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[int]func(string))}
}

// Publish calls every subscriber of channel synchronously.
func (n *Notifier) Publish(ctx context.Context, channel, payload string) error {
	n.mu.RLock()
	fns := make([]func(string), 0, len(n.subs[channel]))
	for _, fn := range n.subs[channel] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(payload)
	}
	return ctx.Err()
}

// Subscribe registers fn until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, channel string, fn func(string)) error {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	if n.subs[channel] == nil {
		n.subs[channel] = make(map[int]func(string))
	}
	n.subs[channel][id] = fn
	n.mu.Unlock()

	<-ctx.Done()

	n.mu.Lock()
	delete(n.subs[channel], id)
	n.mu.Unlock()
	return nil
}

// Subscribers returns the number of active subscribers on channel.
func (n *Notifier) Subscribers(channel string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[channel])
}

// Ensure Notifier implements repository.Notifier.
var _ repository.Notifier = (*Notifier)(nil)
