package health

import (
	"context"

	"github.com/nerrad567/onewire-sync/internal/store"
)

// Sink accepts per-path working/error reports from the sync engine.
//
// Calls are fire-and-forget: implementations deal with their own delivery
// and durability, and must never block the caller for long or panic.
type Sink interface {
	// RecordWorking reports that the path's operation succeeded (or was
	// intentionally left inactive, comment "dropped").
	RecordWorking(ctx context.Context, subsystem string, path store.Path, comment string)

	// RecordError reports a failure for the path. data carries optional
	// diagnostic detail.
	RecordError(ctx context.Context, subsystem string, path store.Path, err error, data map[string]any)
}

// MultiSink fans reports out to several sinks.
type MultiSink []Sink

var _ Sink = (MultiSink)(nil)

// RecordWorking implements Sink.
func (m MultiSink) RecordWorking(ctx context.Context, subsystem string, path store.Path, comment string) {
	for _, s := range m {
		s.RecordWorking(ctx, subsystem, path, comment)
	}
}

// RecordError implements Sink.
func (m MultiSink) RecordError(ctx context.Context, subsystem string, path store.Path, err error, data map[string]any) {
	for _, s := range m {
		s.RecordError(ctx, subsystem, path, err, data)
	}
}

// NopSink discards all reports.
type NopSink struct{}

var _ Sink = NopSink{}

// RecordWorking implements Sink.
func (NopSink) RecordWorking(context.Context, string, store.Path, string) {}

// RecordError implements Sink.
func (NopSink) RecordError(context.Context, string, store.Path, error, map[string]any) {}
