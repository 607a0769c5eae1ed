package sqlitestore

import (
	"context"
	"sync"

	"github.com/nerrad567/onewire-sync/internal/store"
)

// subscription is one in-process watcher. Events are staged in an unbounded
// queue under the store's notify path (which must never block) and drained by
// a pump goroutine into the Events channel.
type subscription struct {
	s        *Store
	id       int64
	path     store.Path
	minDepth int
	maxDepth int

	events chan store.Event

	mu    sync.Mutex
	queue []store.Event
	wake  chan struct{}

	err error
}

func newSubscription(s *Store, id int64, path store.Path, minDepth, maxDepth int) *subscription {
	return &subscription{
		s:        s,
		id:       id,
		path:     path,
		minDepth: minDepth,
		maxDepth: maxDepth,
		events:   make(chan store.Event),
		wake:     make(chan struct{}, 1),
	}
}

// Events implements store.Subscription.
func (sub *subscription) Events() <-chan store.Event {
	return sub.events
}

// Err implements store.Subscription.
func (sub *subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// matches reports whether an event path falls inside this subscription's
// subtree and depth bounds.
func (sub *subscription) matches(path store.Path) bool {
	rel, ok := path.RelativeTo(sub.path)
	if !ok {
		return false
	}
	depth := len(rel)
	if depth < sub.minDepth {
		return false
	}
	return sub.maxDepth < 0 || depth <= sub.maxDepth
}

// enqueue stages an event for delivery. Never blocks.
func (sub *subscription) enqueue(ev store.Event) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, ev)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

// pump drains the queue into the Events channel until ctx is cancelled.
func (sub *subscription) pump(ctx context.Context) {
	defer func() {
		sub.s.unregister(sub.id)
		close(sub.events)
	}()

	for {
		sub.mu.Lock()
		var next *store.Event
		if len(sub.queue) > 0 {
			next = &sub.queue[0]
		}
		sub.mu.Unlock()

		if next == nil {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case sub.events <- *next:
			sub.mu.Lock()
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()
		}
	}
}
