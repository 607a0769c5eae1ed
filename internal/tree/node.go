package tree

import (
	"context"
	"sort"

	"github.com/nerrad567/onewire-sync/internal/onewire"
	"github.com/nerrad567/onewire-sync/internal/store"
)

// Node is one physical device in the tree. It carries the device handle
// (nil while the device is not visible on any bus), its stored
// configuration, and the merged view of node over family configuration
// that attribute reconciliation reads.
type Node struct {
	family *Family
	id     uint64
	kind   string

	// defaults sit below family and node values in the merge order.
	// Subtype factories set them; nil for generic nodes.
	defaults map[string]any

	value  any
	merged map[string]any
	dev    onewire.Device
	attrs  map[string]*Attribute
}

// NewNode builds a generic node. It is the factory for unregistered
// family codes.
func NewNode(f *Family, id uint64) *Node {
	n := &Node{
		family: f,
		id:     id,
		kind:   "node",
		attrs:  make(map[string]*Attribute),
	}
	n.refreshMerged()
	return n
}

// NewTemperatureNode builds the node used for family 0x10 temperature
// sensors, carrying the conventional default for the temperature attribute.
func NewTemperatureNode(f *Family, id uint64) *Node {
	n := NewNode(f, id)
	n.kind = "temperature"
	n.defaults = map[string]any{"temperature": float64(30)}
	n.refreshMerged()
	return n
}

// Address returns the device address, "ff.iiiiiiiiiiii".
func (n *Node) Address() string {
	return onewire.FormatAddress(n.family.code, n.id)
}

// Kind returns the node's subtype name.
func (n *Node) Kind() string { return n.kind }

// StorePath returns the absolute store path of the node's configuration.
func (n *Node) StorePath() store.Path {
	return n.family.root.prefix.Child(onewire.FormatFamily(n.family.code), onewire.FormatID(n.id))
}

// relPath returns the node's path relative to the tree prefix, for sink
// reports.
func (n *Node) relPath() store.Path {
	return store.Path{onewire.FormatFamily(n.family.code), onewire.FormatID(n.id)}
}

// HasValue reports whether the node has stored configuration.
func (n *Node) HasValue() bool {
	r := n.family.root
	r.mu.Lock()
	defer r.mu.Unlock()
	return n.value != nil
}

// Device returns the current device handle, nil while not visible.
func (n *Node) Device() onewire.Device {
	r := n.family.root
	r.mu.Lock()
	defer r.mu.Unlock()
	return n.dev
}

// WithDevice installs or clears the device handle on a presence change and
// forces a full resynchronization of the node's attributes.
func (n *Node) WithDevice(ctx context.Context, dev onewire.Device) {
	r := n.family.root
	r.mu.Lock()
	defer r.mu.Unlock()
	n.dev = dev
	n.refreshMerged()
	n.syncLocked(ctx, true)
}

// setValueLocked stores the node configuration, recomputes the merged view
// and resynchronizes all attributes.
func (n *Node) setValueLocked(ctx context.Context, value any) {
	n.value = value
	n.refreshMerged()
	n.syncLocked(ctx, false)
}

// refreshMerged recomputes value-over-family-over-defaults.
func (n *Node) refreshMerged() {
	n.merged = store.MergeMaps(store.AsMap(n.value),
		store.MergeMaps(store.AsMap(n.family.value), n.defaults))
}

// Merged returns the node's current merged configuration.
// The returned map must not be mutated.
func (n *Node) Merged() map[string]any {
	r := n.family.root
	r.mu.Lock()
	defer r.mu.Unlock()
	return n.merged
}

// syncLocked reconciles every attribute, depth-first, children before the
// attribute itself. Failures are reported per attribute and do not stop
// the pass.
func (n *Node) syncLocked(ctx context.Context, force bool) {
	for _, key := range sortedKeys(n.attrs) {
		n.attrs[key].syncLocked(ctx, force)
	}
}

// attrLocked walks (and creates) the attribute at the given suffix.
func (n *Node) attrLocked(rel store.Path) *Attribute {
	a := n.childLocked(rel[0])
	for _, seg := range rel[1:] {
		a = a.childLocked(seg)
	}
	return a
}

func (n *Node) childLocked(seg string) *Attribute {
	a, ok := n.attrs[seg]
	if !ok {
		a = newAttribute(n, store.Path{seg})
		n.attrs[seg] = a
	}
	return a
}

// Attribute returns the existing attribute at the given suffix, or nil.
// Used by the monitor to route polled readings.
func (n *Node) Attribute(rel store.Path) *Attribute {
	r := n.family.root
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(rel) == 0 {
		return nil
	}
	a, ok := n.attrs[rel[0]]
	for _, seg := range rel[1:] {
		if !ok {
			return nil
		}
		a, ok = a.children[seg]
	}
	if !ok {
		return nil
	}
	return a
}

func (n *Node) statusLocked() NodeStatus {
	st := NodeStatus{
		Address: n.Address(),
		Kind:    n.kind,
		Present: n.dev != nil && n.dev.Connected(),
	}
	for _, key := range sortedKeys(n.attrs) {
		n.attrs[key].appendStatus(&st.Attributes)
	}
	return st
}

func sortedKeys(m map[string]*Attribute) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
