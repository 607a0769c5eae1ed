package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/onewire-sync/internal/store"
)

// Record states persisted by the StoreSink.
const (
	StateWorking = "working"
	StateError   = "error"
)

// StoreSink persists one record per (subsystem, path) under an errors prefix
// in the store, so external tooling can surface per-path sync state.
//
// Records have the shape:
//
//	{"state": "working"|"error", "comment": "...", "data": {...}, "updated": RFC3339}
//
// Thread Safety: safe for concurrent use.
type StoreSink struct {
	client store.Client
	prefix store.Path

	// logger for write failures (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the minimal logging interface sinks and reporters accept.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var _ Sink = (*StoreSink)(nil)

// NewStoreSink creates a sink writing under prefix (e.g. ["errors"]).
func NewStoreSink(client store.Client, prefix store.Path) *StoreSink {
	return &StoreSink{client: client, prefix: prefix}
}

// SetLogger sets a logger for reporting write failures.
func (s *StoreSink) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// RecordWorking implements Sink.
func (s *StoreSink) RecordWorking(ctx context.Context, subsystem string, path store.Path, comment string) {
	record := map[string]any{
		"state":   StateWorking,
		"updated": time.Now().UTC().Format(time.RFC3339),
	}
	if comment != "" {
		record["comment"] = comment
	}
	s.write(ctx, subsystem, path, record)
}

// RecordError implements Sink.
func (s *StoreSink) RecordError(ctx context.Context, subsystem string, path store.Path, err error, data map[string]any) {
	record := map[string]any{
		"state":   StateError,
		"updated": time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		record["comment"] = err.Error()
	}
	if len(data) > 0 {
		record["data"] = sanitize(data)
	}
	s.write(ctx, subsystem, path, record)
}

// write stores the record, logging (not propagating) failures.
func (s *StoreSink) write(ctx context.Context, subsystem string, path store.Path, record map[string]any) {
	target := s.prefix.Child(subsystem).Child(path...)
	if _, err := s.client.Set(ctx, target, record); err != nil {
		s.loggerMu.RLock()
		logger := s.logger
		s.loggerMu.RUnlock()
		if logger != nil {
			logger.Warn("failed to persist sink record",
				"path", target.String(),
				"error", err,
			)
		}
	}
}

// sanitize makes diagnostic data JSON-encodable by stringifying anything
// that is not an obvious scalar or container.
func sanitize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch v.(type) {
		case nil, bool, string, float64, float32, int, int64, uint64, map[string]any, []any, []string:
			out[k] = v
		default:
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
