package sqlitestore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/onewire-sync/internal/store"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second
)

// schema holds the store's single table: one row per path, the value as
// JSON, and a monotonic per-path version counter.
const schema = `
CREATE TABLE IF NOT EXISTS entries (
	path    TEXT PRIMARY KEY,
	value   TEXT NOT NULL,
	version INTEGER NOT NULL
);
`

// Config contains store database configuration options.
type Config struct {
	// Path is the filesystem path to the SQLite database file, or
	// ":memory:" for an ephemeral store. The directory is created if it
	// doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Store is an embedded implementation of store.Client backed by SQLite.
//
// Versions are per-path monotonic counters starting at 1. Subscriptions are
// in-process: every mutation is fanned out to matching watchers in the order
// it was committed.
//
// Thread Safety: all methods are safe for concurrent use. SQLite is the
// single writer; the store's own mutex additionally serializes mutations so
// event order matches version order.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	subs    map[int64]*subscription
	nextSub int64
	closed  bool
}

var _ store.Client = (*Store)(nil)

// Open creates (or opens) the store database at cfg.Path.
//
// It configures WAL mode and busy timeout, verifies connectivity, and
// creates the schema if missing.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	inMemory := cfg.Path == ":memory:" || strings.HasPrefix(cfg.Path, "file::memory:")

	if !inMemory {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode && !inMemory {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	if inMemory {
		// Shared cache keeps the schema visible across pooled connections.
		connStr += "&mode=memory&cache=shared"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening store database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying store connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("creating store schema: %w", err)
	}

	if !inMemory {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // First run creates the file later
	}

	return &Store{
		db:   db,
		subs: make(map[int64]*subscription),
	}, nil
}

// Close shuts the store down. Open subscriptions end when their contexts are
// cancelled; Close does not wait for them.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing store database: %w", err)
	}
	return nil
}

// HealthCheck verifies the database is accessible and functioning.
func (s *Store) HealthCheck(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	return nil
}

// Get implements store.Client.
func (s *Store) Get(ctx context.Context, path store.Path) (store.Entry, error) {
	var (
		raw     string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT value, version FROM entries WHERE path = ?", path.String(),
	).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entry{}, fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	if err != nil {
		return store.Entry{}, fmt.Errorf("reading %s: %w", path, err)
	}

	value, err := decodeValue(raw)
	if err != nil {
		return store.Entry{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return store.Entry{Path: path, Value: value, Version: store.Version(version)}, nil
}

// Set implements store.Client. Writing a value identical to the current one
// leaves the version unchanged and delivers no event.
func (s *Store) Set(ctx context.Context, path store.Path, value any) (store.Version, error) {
	raw, err := encodeValue(value)
	if err != nil {
		return 0, fmt.Errorf("encoding %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, store.ErrClosed
	}

	current, curVersion, exists, err := s.read(ctx, path)
	if err != nil {
		return 0, err
	}
	if exists && bytes.Equal([]byte(current), []byte(raw)) {
		return curVersion, nil // idempotent
	}

	next := curVersion + 1
	if err := s.write(ctx, path, raw, next); err != nil {
		return 0, err
	}
	s.notify(path, mustDecode(raw))
	return next, nil
}

// SetIfVersion implements store.Client.
func (s *Store) SetIfVersion(ctx context.Context, path store.Path, value any, expected store.Version) (store.Version, error) {
	raw, err := encodeValue(value)
	if err != nil {
		return 0, fmt.Errorf("encoding %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, store.ErrClosed
	}

	_, curVersion, _, err := s.read(ctx, path)
	if err != nil {
		return 0, err
	}
	if curVersion != expected {
		return 0, fmt.Errorf("%w: %s at %d, expected %d", store.ErrConflict, path, curVersion, expected)
	}

	next := curVersion + 1
	if err := s.write(ctx, path, raw, next); err != nil {
		return 0, err
	}
	s.notify(path, mustDecode(raw))
	return next, nil
}

// Delete implements store.Client.
func (s *Store) Delete(ctx context.Context, path store.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path.String())
	if err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notify(path, nil)
	}
	return nil
}

// Watch implements store.Client.
func (s *Store) Watch(ctx context.Context, path store.Path, minDepth, maxDepth int, fetchInitial bool) (store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	s.nextSub++
	sub := newSubscription(s, s.nextSub, path, minDepth, maxDepth)
	s.subs[sub.id] = sub

	// Snapshot and registration happen under the same lock, so no live
	// update can slip between the initial fetch and the live stream.
	if fetchInitial {
		if err := s.fetchInitial(ctx, sub); err != nil {
			delete(s.subs, sub.id)
			return nil, err
		}
	}

	go sub.pump(ctx)
	return sub, nil
}

// fetchInitial queues all current entries matching the subscription.
// Caller holds s.mu.
func (s *Store) fetchInitial(ctx context.Context, sub *subscription) error {
	prefix := sub.path.String()
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = s.db.QueryContext(ctx, "SELECT path, value FROM entries ORDER BY path")
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT path, value FROM entries WHERE path = ? OR path LIKE ? ORDER BY path",
			prefix, prefix+"/%")
	}
	if err != nil {
		return fmt.Errorf("fetching initial entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	for rows.Next() {
		var p, raw string
		if err := rows.Scan(&p, &raw); err != nil {
			return fmt.Errorf("scanning initial entry: %w", err)
		}
		evPath := store.ParsePath(p)
		if !sub.matches(evPath) {
			continue
		}
		value, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("decoding initial entry %s: %w", p, err)
		}
		sub.enqueue(store.Event{Path: evPath, Value: value})
	}
	return rows.Err()
}

// read returns the raw JSON, version and existence of a path.
// Caller holds s.mu.
func (s *Store) read(ctx context.Context, path store.Path) (raw string, version store.Version, exists bool, err error) {
	var v int64
	err = s.db.QueryRowContext(ctx,
		"SELECT value, version FROM entries WHERE path = ?", path.String(),
	).Scan(&raw, &v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, store.Version(v), true, nil
}

// write upserts a path. Caller holds s.mu.
func (s *Store) write(ctx context.Context, path store.Path, raw string, version store.Version) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (path, value, version) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET value = excluded.value, version = excluded.version`,
		path.String(), raw, int64(version))
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// notify fans an event out to all matching subscriptions.
// Caller holds s.mu, which fixes the delivery order.
func (s *Store) notify(path store.Path, value any) {
	for _, sub := range s.subs {
		if sub.matches(path) {
			sub.enqueue(store.Event{Path: path, Value: value})
		}
	}
}

// unregister removes a finished subscription.
func (s *Store) unregister(id int64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

func encodeValue(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeValue(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// mustDecode round-trips a value we just encoded, so watchers observe the
// same shapes a Get would return (numbers as float64, maps as
// map[string]any).
func mustDecode(raw string) any {
	v, err := decodeValue(raw)
	if err != nil {
		// encodeValue succeeded moments ago; this cannot fail.
		panic(fmt.Sprintf("sqlitestore: re-decoding own value: %v", err))
	}
	return v
}
