package store

import "context"

// Version is an opaque optimistic-concurrency token. Every successful write
// to a path advances its version. The zero value means "no version": as an
// expected version it asserts the path does not currently exist.
type Version int64

// Entry is a value read from the store together with its current version.
type Entry struct {
	Path    Path
	Value   any
	Version Version
}

// Event is a single message delivered on a subscription.
//
// A nil Path marks a control message (subscription bookkeeping, heartbeats);
// consumers must skip those. A nil Value means the entry was deleted or has
// no value.
type Event struct {
	Path  Path
	Value any
}

// Subscription is a live stream of updates for a store path.
//
// The stream is bound to the context passed to Watch: cancelling that context
// ends the subscription and closes the Events channel. After the channel is
// closed, Err reports why the subscription ended (nil for plain cancellation).
type Subscription interface {
	// Events returns the channel update messages are delivered on.
	Events() <-chan Event

	// Err returns the error that terminated the subscription, if any.
	// Only valid after the Events channel has been closed.
	Err() error
}

// Client is the contract with the hierarchical, versioned store.
//
// Implementations must be safe for concurrent use. All blocking operations
// honour context cancellation.
type Client interface {
	// Get reads the value and current version at path.
	// Returns ErrNotFound if the path has no value.
	Get(ctx context.Context, path Path) (Entry, error)

	// Set writes value at path unconditionally and returns the new version.
	// Writing a value identical to the current one is a no-op (the version
	// does not advance and no event is delivered).
	Set(ctx context.Context, path Path, value any) (Version, error)

	// SetIfVersion writes value at path only if the current version equals
	// expected, returning the new version. An expected version of zero
	// asserts the path currently has no value. Returns ErrConflict when the
	// expectation does not hold.
	SetIfVersion(ctx context.Context, path Path, value any, expected Version) (Version, error)

	// Delete removes the value at path. Deleting an absent path is a no-op.
	Delete(ctx context.Context, path Path) error

	// Watch opens a subscription for path and its descendants.
	//
	// minDepth and maxDepth bound the delivered paths relative to the watch
	// root: an update at relative depth d is delivered when
	// minDepth <= d <= maxDepth. A negative maxDepth means unlimited. With
	// fetchInitial, current matching entries are delivered before live
	// updates.
	//
	// The subscription lives until ctx is cancelled.
	Watch(ctx context.Context, path Path, minDepth, maxDepth int, fetchInitial bool) (Subscription, error)
}
