package tree

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/onewire-sync/internal/store"
	"github.com/nerrad567/onewire-sync/internal/store/sqlitestore"
)

// harness wires a real in-memory store to a tree root. Tests drive
// configuration by writing to the store and applying the matching event
// directly, which keeps ordering deterministic without a Run goroutine.
type harness struct {
	t      *testing.T
	ctx    context.Context
	client *sqlitestore.Store
	sink   *recordSink
	root   *Root
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	client, err := sqlitestore.Open(ctx, sqlitestore.Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sink := &recordSink{}
	root := NewRoot(client, sink, store.ParsePath("owfs"))
	root.mu.Lock()
	root.taskCtx = ctx
	root.mu.Unlock()

	t.Cleanup(func() {
		cancel()
		client.Close()
	})
	return &harness{t: t, ctx: ctx, client: client, sink: sink, root: root}
}

// set writes value to the store and applies the resulting event to the tree.
func (h *harness) set(path string, value any) {
	h.t.Helper()
	p := store.ParsePath(path)
	if _, err := h.client.Set(h.ctx, p, value); err != nil {
		h.t.Fatalf("Set %s: %v", path, err)
	}
	h.root.Apply(h.ctx, store.Event{Path: p, Value: value})
}

// del deletes the path and applies the deletion event.
func (h *harness) del(path string) {
	h.t.Helper()
	p := store.ParsePath(path)
	if err := h.client.Delete(h.ctx, p); err != nil {
		h.t.Fatalf("Delete %s: %v", path, err)
	}
	h.root.Apply(h.ctx, store.Event{Path: p, Value: nil})
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

// recordSink captures sink reports for assertions.
type recordSink struct {
	mu      sync.Mutex
	records []sinkRecord
}

type sinkRecord struct {
	state   string
	path    string
	comment string
	err     error
}

func (s *recordSink) RecordWorking(_ context.Context, _ string, path store.Path, comment string) {
	s.mu.Lock()
	s.records = append(s.records, sinkRecord{state: "working", path: path.String(), comment: comment})
	s.mu.Unlock()
}

func (s *recordSink) RecordError(_ context.Context, _ string, path store.Path, err error, _ map[string]any) {
	s.mu.Lock()
	s.records = append(s.records, sinkRecord{state: "error", path: path.String(), err: err})
	s.mu.Unlock()
}

// has reports whether a record with the given state and path was seen.
func (s *recordSink) has(state, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.state == state && r.path == path {
			return true
		}
	}
	return false
}

// hasComment reports whether a record carries the given comment at path.
func (s *recordSink) hasComment(path, comment string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.path == path && r.comment == comment {
			return true
		}
	}
	return false
}

// stubClient is a scripted store client for failure-path tests: conflict
// injection, watch startup failure and hand-delivered subscription events.
type stubClient struct {
	mu        sync.Mutex
	values    map[string]store.Entry
	getCalls  int
	setCalls  int
	conflicts int
	watchErr  error
	subs      []*stubSub
}

func newStubClient() *stubClient {
	return &stubClient{values: make(map[string]store.Entry)}
}

func (c *stubClient) Get(_ context.Context, path store.Path) (store.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	e, ok := c.values[path.String()]
	if !ok {
		return store.Entry{}, store.ErrNotFound
	}
	return e, nil
}

func (c *stubClient) Set(_ context.Context, path store.Path, value any) (store.Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.values[path.String()].Version + 1
	c.values[path.String()] = store.Entry{Path: path, Value: value, Version: v}
	return v, nil
}

func (c *stubClient) SetIfVersion(_ context.Context, path store.Path, value any, _ store.Version) (store.Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	if c.conflicts > 0 {
		c.conflicts--
		return 0, store.ErrConflict
	}
	v := c.values[path.String()].Version + 1
	c.values[path.String()] = store.Entry{Path: path, Value: value, Version: v}
	return v, nil
}

func (c *stubClient) Delete(_ context.Context, path store.Path) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, path.String())
	return nil
}

func (c *stubClient) Watch(_ context.Context, _ store.Path, _, _ int, _ bool) (store.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watchErr != nil {
		return nil, c.watchErr
	}
	sub := &stubSub{ch: make(chan store.Event, 16)}
	c.subs = append(c.subs, sub)
	return sub, nil
}

func (c *stubClient) counts() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getCalls, c.setCalls
}

func (c *stubClient) setConflicts(n int) {
	c.mu.Lock()
	c.conflicts = n
	c.mu.Unlock()
}

func (c *stubClient) stored(path string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[path].Value
}

func (c *stubClient) lastSub() *stubSub {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 {
		return nil
	}
	return c.subs[len(c.subs)-1]
}

type stubSub struct {
	ch chan store.Event
}

func (s *stubSub) Events() <-chan store.Event { return s.ch }
func (s *stubSub) Err() error                 { return nil }
func (s *stubSub) push(ev store.Event)        { s.ch <- ev }

var _ store.Client = (*stubClient)(nil)
