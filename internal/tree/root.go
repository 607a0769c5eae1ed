package tree

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/onewire-sync/internal/health"
	"github.com/nerrad567/onewire-sync/internal/onewire"
	"github.com/nerrad567/onewire-sync/internal/store"
)

// Subsystem tags all reports this engine sends to the error sink.
const Subsystem = "owfs"

// ServerGroupName is the top-level segment holding gateway records.
const ServerGroupName = "server"

// ServerRecord describes one bus gateway entry. A record with an empty Host
// means the entry was deleted.
type ServerRecord struct {
	Name string
	Host string
	Port int
}

// Root is the entity tree for one store connection.
//
// All tree mutation funnels through the root mutex: store events (Apply),
// presence notifications (Node.WithDevice) and full sync passes are
// serialized against each other. Watch tasks run outside the mutex and touch
// only their own Attribute's registration and cache fields.
type Root struct {
	client store.Client
	sink   health.Sink
	prefix store.Path

	logMu  sync.RWMutex
	logger Logger

	mu          sync.Mutex
	families    map[byte]*Family
	groups      map[string]*serverGroup
	passthrough map[string]any
	taskCtx     context.Context
	onServer    func(ServerRecord)
}

// NewRoot creates the tree for the namespace below prefix.
func NewRoot(client store.Client, sink health.Sink, prefix store.Path) *Root {
	if sink == nil {
		sink = health.NopSink{}
	}
	return &Root{
		client:      client,
		sink:        sink,
		prefix:      prefix.Child(), // private copy
		families:    make(map[byte]*Family),
		groups:      make(map[string]*serverGroup),
		passthrough: make(map[string]any),
	}
}

// SetLogger sets a logger for engine diagnostics.
func (r *Root) SetLogger(logger Logger) {
	r.logMu.Lock()
	r.logger = logger
	r.logMu.Unlock()
}

// SetOnServerUpdate installs the callback invoked when a gateway record is
// written or deleted. The callback runs with the tree locked and must not
// call back into the Root.
func (r *Root) SetOnServerUpdate(fn func(ServerRecord)) {
	r.mu.Lock()
	r.onServer = fn
	r.mu.Unlock()
}

// Run watches the tree's store prefix and applies every update until ctx is
// cancelled or the subscription dies. Watch tasks started by reconciliation
// are parented to ctx.
func (r *Root) Run(ctx context.Context) error {
	r.mu.Lock()
	r.taskCtx = ctx
	r.mu.Unlock()

	sub, err := r.client.Watch(ctx, r.prefix, 0, -1, true)
	if err != nil {
		return fmt.Errorf("watch %s: %w", r.prefix, err)
	}
	r.logInfo("entity tree running", "prefix", r.prefix.String())

	for ev := range sub.Events() {
		if ev.Path == nil {
			continue
		}
		r.Apply(ctx, ev)
	}
	if err := sub.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("store subscription: %w", err)
	}
	return nil
}

// Apply routes one store event into the tree. Exported so the monitor and
// tests can drive the tree without a live subscription.
func (r *Root) Apply(ctx context.Context, ev store.Event) {
	rel, ok := ev.Path.RelativeTo(r.prefix)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(ctx, rel, ev.Value)
}

func (r *Root) applyLocked(ctx context.Context, rel store.Path, value any) {
	if len(rel) == 0 {
		return // the prefix's own entry carries no behavior
	}

	if code, ok := onewire.ParseFamily(rel[0]); ok {
		fam := r.familyLocked(code)
		if len(rel) == 1 {
			fam.setValueLocked(ctx, value)
			return
		}
		id, ok := onewire.ParseID(rel[1])
		if !ok {
			r.passthrough[rel.String()] = value
			return
		}
		node := fam.nodeLocked(id)
		if len(rel) == 2 {
			node.setValueLocked(ctx, value)
			return
		}
		node.attrLocked(rel[2:]).setValueLocked(ctx, value)
		return
	}

	// Non-hex top segment: a named collection. Only the gateway group has
	// behavior; everything else is mirrored and otherwise ignored.
	switch len(rel) {
	case 1:
		r.groupLocked(rel[0]).value = value
	case 2:
		r.setGroupEntryLocked(rel[0], rel[1], value)
	default:
		r.passthrough[rel.String()] = value
	}
}

func (r *Root) familyLocked(code byte) *Family {
	f, ok := r.families[code]
	if !ok {
		f = newFamily(r, code)
		r.families[code] = f
		r.logDebug("family created", "family", onewire.FormatFamily(code))
	}
	return f
}

// EnsureNode returns the Node for a device address, creating the Family and
// Node entities if the store has no configuration for them yet.
func (r *Root) EnsureNode(family byte, id uint64) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.familyLocked(family).nodeLocked(id)
}

// LookupNode returns the Node for a device address, or nil if none exists.
func (r *Root) LookupNode(family byte, id uint64) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[family]
	if !ok {
		return nil
	}
	return f.nodes[id]
}

// serverGroup mirrors one non-hex top-level subtree (gateway records and
// any other named collections).
type serverGroup struct {
	name    string
	value   any
	entries map[string]any
}

func (r *Root) groupLocked(name string) *serverGroup {
	g, ok := r.groups[name]
	if !ok {
		g = &serverGroup{name: name, entries: make(map[string]any)}
		r.groups[name] = g
	}
	return g
}

func (r *Root) setGroupEntryLocked(group, name string, value any) {
	g := r.groupLocked(group)
	if value == nil {
		delete(g.entries, name)
	} else {
		g.entries[name] = value
	}
	if group != ServerGroupName {
		return
	}
	rec := serverRecord(name, value)
	r.logInfo("gateway record updated", "name", rec.Name, "host", rec.Host, "port", rec.Port)
	if r.onServer != nil {
		r.onServer(rec)
	}
}

// serverRecord decodes a gateway entry value, shape {"server": {"host", "port"}}.
func serverRecord(name string, value any) ServerRecord {
	rec := ServerRecord{Name: name}
	if value == nil {
		return rec
	}
	m := store.AsMap(store.AsMap(value)["server"])
	rec.Host, _ = m["host"].(string)
	rec.Port = toInt(m["port"])
	if rec.Host != "" && rec.Port == 0 {
		rec.Port = onewire.DefaultPort
	}
	return rec
}

// Servers returns the current gateway records, sorted by name.
func (r *Root) Servers() []ServerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[ServerGroupName]
	if !ok {
		return nil
	}
	out := make([]ServerRecord, 0, len(g.entries))
	for name, value := range g.entries {
		out = append(out, serverRecord(name, value))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeviceCount returns the number of nodes with a connected device.
func (r *Root) DeviceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.families {
		for _, node := range f.nodes {
			if node.dev != nil && node.dev.Connected() {
				n++
			}
		}
	}
	return n
}

// NodeStatus is a point-in-time view of one Node, for the status API.
type NodeStatus struct {
	Address    string            `json:"address"`
	Kind       string            `json:"kind"`
	Present    bool              `json:"present"`
	Attributes []AttributeStatus `json:"attributes,omitempty"`
}

// AttributeStatus is a point-in-time view of one Attribute's sync state.
type AttributeStatus struct {
	Path     string  `json:"path"`
	Source   string  `json:"source,omitempty"`
	Dest     string  `json:"dest,omitempty"`
	Interval float64 `json:"interval,omitempty"`
	Watching bool    `json:"watching"`
}

// Snapshot returns the state of every node, sorted by address.
func (r *Root) Snapshot() []NodeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NodeStatus
	for _, f := range r.families {
		for _, node := range f.nodes {
			out = append(out, node.statusLocked())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// taskContext is the parent context for watch tasks.
func (r *Root) taskContext() context.Context {
	if r.taskCtx != nil {
		return r.taskCtx
	}
	return context.Background()
}

// reportError sends an attribute failure to the sink and the log.
func (r *Root) reportError(ctx context.Context, path store.Path, err error, data map[string]any) {
	r.sink.RecordError(ctx, Subsystem, path, err, data)
	r.logWarn("sync error", "path", path.String(), "error", err)
}

func (r *Root) logDebug(msg string, args ...any) {
	if l := r.log(); l != nil {
		l.Debug(msg, args...)
	}
}

func (r *Root) logInfo(msg string, args ...any) {
	if l := r.log(); l != nil {
		l.Info(msg, args...)
	}
}

func (r *Root) logWarn(msg string, args ...any) {
	if l := r.log(); l != nil {
		l.Warn(msg, args...)
	}
}

func (r *Root) log() Logger {
	r.logMu.RLock()
	defer r.logMu.RUnlock()
	return r.logger
}
