package tree

// NodeFactory builds the Node used for devices of one family.
type NodeFactory func(f *Family, id uint64) *Node

// familyFactories maps family codes to node factories. Populated by
// RegisterFamily during init; read-only once the daemon runs. A Family
// resolves its factory once, at creation time.
var familyFactories = map[byte]NodeFactory{}

// RegisterFamily binds a node factory to a family code. Call from init
// functions only; later registrations do not affect existing Families.
func RegisterFamily(code byte, factory NodeFactory) {
	familyFactories[code] = factory
}

func factoryFor(code byte) NodeFactory {
	if f, ok := familyFactories[code]; ok {
		return f
	}
	return NewNode
}

func init() {
	RegisterFamily(0x10, NewTemperatureNode)
}
