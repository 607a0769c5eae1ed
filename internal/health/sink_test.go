package health

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/onewire-sync/internal/store"
)

// fakeStore records Set calls and implements store.Client.
type fakeStore struct {
	mu     sync.Mutex
	sets   map[string]any
	setErr error
}

var _ store.Client = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{sets: make(map[string]any)}
}

func (f *fakeStore) Get(_ context.Context, _ store.Path) (store.Entry, error) {
	return store.Entry{}, store.ErrNotFound
}

func (f *fakeStore) Set(_ context.Context, path store.Path, value any) (store.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return 0, f.setErr
	}
	f.sets[path.String()] = value
	return 1, nil
}

func (f *fakeStore) SetIfVersion(_ context.Context, path store.Path, value any, _ store.Version) (store.Version, error) {
	return f.Set(context.Background(), path, value)
}

func (f *fakeStore) Delete(_ context.Context, _ store.Path) error { return nil }

func (f *fakeStore) Watch(_ context.Context, _ store.Path, _, _ int, _ bool) (store.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) record(path string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.sets[path]
	if !ok {
		return nil, false
	}
	rec, ok := v.(map[string]any)
	return rec, ok
}

func TestStoreSinkRecordWorking(t *testing.T) {
	client := newFakeStore()
	sink := NewStoreSink(client, store.Path{"errors"})

	sink.RecordWorking(context.Background(), "owfs", store.Path{"10", "aabbccddeeff", "temperature", "write"}, "")

	rec, ok := client.record("errors/owfs/10/aabbccddeeff/temperature/write")
	if !ok {
		t.Fatalf("no record written, got %v", client.sets)
	}
	if rec["state"] != StateWorking {
		t.Errorf("state = %v, want %q", rec["state"], StateWorking)
	}
	if _, has := rec["comment"]; has {
		t.Error("empty comment should be omitted")
	}
	if rec["updated"] == nil {
		t.Error("record missing updated timestamp")
	}
}

func TestStoreSinkRecordWorkingComment(t *testing.T) {
	client := newFakeStore()
	sink := NewStoreSink(client, store.Path{"errors"})

	sink.RecordWorking(context.Background(), "owfs", store.Path{"10", "aabbccddeeff", "temperature", "write"}, "dropped")

	rec, _ := client.record("errors/owfs/10/aabbccddeeff/temperature/write")
	if rec["comment"] != "dropped" {
		t.Errorf("comment = %v, want dropped", rec["comment"])
	}
}

func TestStoreSinkRecordError(t *testing.T) {
	client := newFakeStore()
	sink := NewStoreSink(client, store.Path{"errors"})

	sink.RecordError(context.Background(), "owfs", store.Path{"10", "aabbccddeeff", "temperature", "write"},
		errors.New("device gone"), map[string]any{"key": "temperature", "value": struct{ X int }{1}})

	rec, ok := client.record("errors/owfs/10/aabbccddeeff/temperature/write")
	if !ok {
		t.Fatal("no record written")
	}
	if rec["state"] != StateError {
		t.Errorf("state = %v, want %q", rec["state"], StateError)
	}
	if rec["comment"] != "device gone" {
		t.Errorf("comment = %v, want device gone", rec["comment"])
	}

	data, ok := rec["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want map", rec["data"])
	}
	if data["key"] != "temperature" {
		t.Errorf("data key = %v", data["key"])
	}
	if _, isString := data["value"].(string); !isString {
		t.Errorf("non-scalar data value not stringified: %T", data["value"])
	}
}

func TestStoreSinkWriteFailureLogged(t *testing.T) {
	client := newFakeStore()
	client.setErr = errors.New("store down")

	sink := NewStoreSink(client, store.Path{"errors"})
	logger := &captureLogger{}
	sink.SetLogger(logger)

	sink.RecordWorking(context.Background(), "owfs", store.Path{"x"}, "")

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Errorf("got %d warnings, want 1", len(logger.warns))
	}
}

func TestMultiSinkFanOut(t *testing.T) {
	a := newFakeStore()
	b := newFakeStore()
	multi := MultiSink{
		NewStoreSink(a, store.Path{"errors"}),
		NewStoreSink(b, store.Path{"mirror"}),
	}

	multi.RecordWorking(context.Background(), "owfs", store.Path{"x"}, "")
	multi.RecordError(context.Background(), "owfs", store.Path{"y"}, errors.New("boom"), nil)

	if _, ok := a.record("errors/owfs/x"); !ok {
		t.Error("first sink missed working report")
	}
	if _, ok := b.record("mirror/owfs/y"); !ok {
		t.Error("second sink missed error report")
	}
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	sink.RecordWorking(context.Background(), "owfs", store.Path{"x"}, "")
	sink.RecordError(context.Background(), "owfs", store.Path{"x"}, errors.New("boom"), nil)
}

// captureLogger implements Logger for testing.
type captureLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}
