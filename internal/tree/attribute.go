package tree

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/onewire-sync/internal/health"
	"github.com/nerrad567/onewire-sync/internal/onewire"
	"github.com/nerrad567/onewire-sync/internal/store"
)

// Attribute is one device attribute's sync configuration: an optional write
// path (store source watched and copied to the device) and an optional poll
// path (device readings merged into a store destination).
type Attribute struct {
	node     *Node
	key      store.Path // suffix below the node, also the device attribute
	value    any
	children map[string]*Attribute

	// Applied write-path configuration. Guarded by the root mutex, which
	// serializes all reconciliation.
	srcPath store.Path
	srcAttr []string

	// Active watcher registration. Watch tasks replace and clear it from
	// their own goroutines, so it has its own lock.
	watchMu sync.Mutex
	watch   *watchTask

	// Applied poll-path configuration and the destination cache. The poll
	// handler runs outside the root mutex, so these have their own lock.
	destMu      sync.Mutex
	destPath    store.Path
	destAttr    []string
	interval    float64
	destValue   any
	destVersion store.Version
	destValid   bool
}

func newAttribute(n *Node, key store.Path) *Attribute {
	return &Attribute{
		node:     n,
		key:      key,
		children: make(map[string]*Attribute),
	}
}

func (a *Attribute) childLocked(seg string) *Attribute {
	c, ok := a.children[seg]
	if !ok {
		c = newAttribute(a.node, a.key.Child(seg))
		a.children[seg] = c
	}
	return c
}

// Key returns the attribute's path suffix below its node.
func (a *Attribute) Key() store.Path { return a.key }

func (a *Attribute) root() *Root          { return a.node.family.root }
func (a *Attribute) client() store.Client { return a.root().client }
func (a *Attribute) sink() health.Sink    { return a.root().sink }

// reportPathBase is the attribute's path relative to the tree prefix.
func (a *Attribute) reportPathBase() store.Path {
	return a.node.relPath().Child(a.key...)
}

// reportPath tags a sink path with the operation ("write" or "read").
func (a *Attribute) reportPath(op string) store.Path {
	return a.reportPathBase().Child(op)
}

// setValueLocked stores the attribute configuration and reconciles it.
func (a *Attribute) setValueLocked(ctx context.Context, value any) {
	a.value = value
	if err := a.reconcileLocked(ctx, false); err != nil {
		a.root().reportError(ctx, a.reportPathBase(), err, nil)
	}
}

// syncLocked reconciles the subtree, children before self. Each attribute's
// failure is reported in isolation; the pass continues.
func (a *Attribute) syncLocked(ctx context.Context, force bool) {
	for _, key := range sortedKeys(a.children) {
		a.children[key].syncLocked(ctx, force)
	}
	if err := a.reconcileLocked(ctx, force); err != nil {
		a.root().reportError(ctx, a.reportPathBase(), err, nil)
	}
}

// reconcileLocked applies the attribute's effective configuration: restarts
// the watcher when the source changed, re-registers polling when the
// destination changed. force reapplies both unconditionally; it is set on
// presence transitions and full resyncs. A no-op while the device is absent
// or unreachable.
func (a *Attribute) reconcileLocked(ctx context.Context, force bool) error {
	dev := a.node.dev
	if dev == nil || !dev.Connected() {
		return nil
	}
	// The cache must not survive a reconcile, whatever the outcome.
	defer a.invalidateDestCache()

	cfg := store.MergeMaps(store.AsMap(a.value), a.node.merged)

	src := store.ToPath(cfg["src"])
	srcAttr := toStringList(cfg["src_attr"])
	if force || !src.Equal(a.srcPath) || !stringsEqual(srcAttr, a.srcAttr) {
		a.cancelWatch()
		a.srcPath, a.srcAttr = src, srcAttr
		if len(src) > 0 {
			if err := a.startWatchLocked(ctx, dev, src, srcAttr); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
		} else {
			a.sink().RecordWorking(ctx, Subsystem, a.reportPath("write"), "dropped")
		}
	}

	dest := store.ToPath(cfg["dest"])
	destAttr := toStringList(cfg["dest_attr"])
	interval := toSeconds(cfg["interval"])
	a.destMu.Lock()
	pollChanged := force || !dest.Equal(a.destPath) ||
		!stringsEqual(destAttr, a.destAttr) || interval != a.interval
	a.destMu.Unlock()
	if pollChanged {
		// Disable first so a failed re-enable never leaves the old
		// registration running against the new routing.
		if err := dev.SetPollingInterval(ctx, a.key, 0); err != nil {
			return fmt.Errorf("disable polling: %w", err)
		}
		a.destMu.Lock()
		a.destPath, a.destAttr, a.interval = dest, destAttr, interval
		a.destMu.Unlock()
		if len(dest) > 0 && interval > 0 {
			if err := dev.SetPollingInterval(ctx, a.key, interval); err != nil {
				return fmt.Errorf("enable polling: %w", err)
			}
		} else {
			a.sink().RecordWorking(ctx, Subsystem, a.reportPath("read"), "dropped")
		}
	}
	return nil
}

// startWatchLocked launches a watch task and blocks until it has its
// subscription established and itself registered, or until it fails.
// Startup failure propagates; the caller never hangs on a dead task.
func (a *Attribute) startWatchLocked(ctx context.Context, dev onewire.Device, src store.Path, srcAttr []string) error {
	wctx, cancel := context.WithCancel(a.root().taskContext())
	t := &watchTask{
		attr:    a,
		dev:     dev,
		src:     src.Child(),
		srcAttr: append([]string(nil), srcAttr...),
		ctx:     wctx,
		cancel:  cancel,
		started: make(chan error, 1),
	}
	go t.run()
	select {
	case err := <-t.started:
		if err != nil {
			cancel()
			return err
		}
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// cancelWatch cancels and deregisters the active watcher, if any.
func (a *Attribute) cancelWatch() {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.watch != nil {
		a.watch.cancel()
		a.watch = nil
	}
}

// adoptWatch registers t as the active watcher, cancelling any previous one.
func (a *Attribute) adoptWatch(t *watchTask) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.watch != nil && a.watch != t {
		a.watch.cancel()
	}
	a.watch = t
}

// clearWatch drops t's registration if it is still the active watcher.
func (a *Attribute) clearWatch(t *watchTask) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.watch == t {
		a.watch = nil
	}
}

// Watching reports whether a watch task is currently registered.
func (a *Attribute) Watching() bool {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	return a.watch != nil
}

// HandleReading takes one polled device reading and writes it to the
// configured destination. Without a nested destination attribute this is a
// plain idempotent set; with one, a merge-write that preserves sibling keys,
// retrying a version conflict exactly once. Outcomes are reported to the
// sink per read path.
func (a *Attribute) HandleReading(ctx context.Context, value any) error {
	a.destMu.Lock()
	dest := a.destPath.Child()
	destAttr := append([]string(nil), a.destAttr...)
	a.destMu.Unlock()
	if len(dest) == 0 {
		return nil
	}

	var err error
	if len(destAttr) == 0 {
		if _, serr := a.client().Set(ctx, dest, value); serr != nil {
			err = fmt.Errorf("store %s: %w", dest, serr)
		}
	} else {
		err = a.mergeWrite(ctx, dest, destAttr, value)
	}
	if err != nil {
		a.root().reportError(ctx, a.reportPath("read"), err, nil)
		return err
	}
	a.sink().RecordWorking(ctx, Subsystem, a.reportPath("read"), "")
	return nil
}

// mergeWrite sets destAttr inside the destination value to the polled
// reading, conditional on the version it based the merge on. The first
// attempt may use the cached destination snapshot; a conflict invalidates
// the cache and retries once with a fresh fetch.
func (a *Attribute) mergeWrite(ctx context.Context, dest store.Path, destAttr []string, value any) error {
	for attempt := 0; ; attempt++ {
		base, version, cached := a.cachedDest()
		if attempt > 0 || !cached {
			entry, err := a.client().Get(ctx, dest)
			switch {
			case errors.Is(err, store.ErrNotFound):
				base, version = nil, 0
			case err != nil:
				return fmt.Errorf("fetch %s: %w", dest, err)
			default:
				base, version = entry.Value, entry.Version
			}
		}
		merged := store.SetPath(base, destAttr, value)
		newVersion, err := a.client().SetIfVersion(ctx, dest, merged, version)
		if err == nil {
			a.setCachedDest(merged, newVersion)
			return nil
		}
		a.invalidateDestCache()
		if !errors.Is(err, store.ErrConflict) || attempt >= 1 {
			return fmt.Errorf("store %s: %w", dest, err)
		}
	}
}

func (a *Attribute) cachedDest() (any, store.Version, bool) {
	a.destMu.Lock()
	defer a.destMu.Unlock()
	return a.destValue, a.destVersion, a.destValid
}

func (a *Attribute) setCachedDest(value any, version store.Version) {
	a.destMu.Lock()
	a.destValue, a.destVersion, a.destValid = value, version, true
	a.destMu.Unlock()
}

func (a *Attribute) invalidateDestCache() {
	a.destMu.Lock()
	a.destValue, a.destVersion, a.destValid = nil, 0, false
	a.destMu.Unlock()
}

// appendStatus flattens this attribute and its children into the snapshot.
// Caller holds the root mutex.
func (a *Attribute) appendStatus(out *[]AttributeStatus) {
	a.destMu.Lock()
	st := AttributeStatus{
		Path:     a.key.String(),
		Source:   a.srcPath.String(),
		Dest:     a.destPath.String(),
		Interval: a.interval,
	}
	a.destMu.Unlock()
	st.Watching = a.Watching()
	*out = append(*out, st)
	for _, key := range sortedKeys(a.children) {
		a.children[key].appendStatus(out)
	}
}
