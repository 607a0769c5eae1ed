package tree

import (
	"context"

	"github.com/nerrad567/onewire-sync/internal/onewire"
)

// Family groups the Nodes sharing one device family code. Its stored value
// is the family-wide default configuration merged into every child Node.
type Family struct {
	root    *Root
	code    byte
	value   any
	nodes   map[uint64]*Node
	factory NodeFactory
}

// newFamily resolves the node factory once; later registry changes do not
// affect this family.
func newFamily(r *Root, code byte) *Family {
	return &Family{
		root:    r,
		code:    code,
		nodes:   make(map[uint64]*Node),
		factory: factoryFor(code),
	}
}

// Code returns the one-byte family code.
func (f *Family) Code() byte { return f.code }

// setValueLocked stores the family configuration and eagerly recomputes
// every child node's merged value. It does not trigger attribute syncs;
// node-level updates and presence changes do that.
func (f *Family) setValueLocked(_ context.Context, value any) {
	f.value = value
	for _, n := range f.nodes {
		n.refreshMerged()
	}
	f.root.logDebug("family value updated",
		"family", onewire.FormatFamily(f.code),
		"nodes", len(f.nodes),
	)
}

func (f *Family) nodeLocked(id uint64) *Node {
	n, ok := f.nodes[id]
	if !ok {
		n = f.factory(f, id)
		f.nodes[id] = n
		f.root.logDebug("node created", "device", n.Address(), "kind", n.kind)
	}
	return n
}
