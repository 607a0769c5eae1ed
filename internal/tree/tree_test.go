package tree

import (
	"testing"
)

func TestFamilyDispatch(t *testing.T) {
	h := newHarness(t)

	if kind := h.root.EnsureNode(0x10, 0xaabbccddeeff).Kind(); kind != "temperature" {
		t.Errorf("family 10 node kind = %q, want temperature", kind)
	}
	if kind := h.root.EnsureNode(0x28, 1).Kind(); kind != "node" {
		t.Errorf("family 28 node kind = %q, want node", kind)
	}

	// The default from the subtype is the lowest merge layer.
	merged := h.root.LookupNode(0x10, 0xaabbccddeeff).Merged()
	if got := merged["temperature"]; got != float64(30) {
		t.Errorf("temperature default = %v, want 30", got)
	}
}

func TestFamilySubtypeFixedAtCreation(t *testing.T) {
	h := newHarness(t)

	// Family 0x28 exists before the registration below.
	h.root.EnsureNode(0x28, 1)

	RegisterFamily(0x28, NewTemperatureNode)
	t.Cleanup(func() { delete(familyFactories, 0x28) })

	if kind := h.root.EnsureNode(0x28, 2).Kind(); kind != "node" {
		t.Errorf("node under pre-existing family = %q, want node", kind)
	}

	// A family created after registration picks the new factory. 0xf0 is
	// otherwise unregistered.
	RegisterFamily(0xf0, NewTemperatureNode)
	t.Cleanup(func() { delete(familyFactories, 0xf0) })
	if kind := h.root.EnsureNode(0xf0, 1).Kind(); kind != "temperature" {
		t.Errorf("node under new family = %q, want temperature", kind)
	}
}

func TestMergedValuePropagation(t *testing.T) {
	h := newHarness(t)

	h.set("owfs/10/aabbccddeeff", map[string]any{"interval": 5.0})
	h.set("owfs/10", map[string]any{"interval": 10.0, "scale": "C"})

	node := h.root.LookupNode(0x10, 0xaabbccddeeff)
	merged := node.Merged()
	if merged["interval"] != 5.0 {
		t.Errorf("interval = %v, want node's 5", merged["interval"])
	}
	if merged["scale"] != "C" {
		t.Errorf("scale = %v, want family's C", merged["scale"])
	}

	// Family updates propagate eagerly to existing nodes.
	h.set("owfs/10", map[string]any{"scale": "F"})
	if got := node.Merged()["scale"]; got != "F" {
		t.Errorf("scale after family update = %v, want F", got)
	}

	// A nil key in the node value clears the inherited key.
	h.set("owfs/10/aabbccddeeff", map[string]any{"scale": nil})
	if _, ok := node.Merged()["scale"]; ok {
		t.Error("scale still present after nil override")
	}
}

func TestClassificationPassthrough(t *testing.T) {
	h := newHarness(t)

	// Family segment with a malformed device id.
	h.set("owfs/10/not-a-device", map[string]any{"x": 1.0})
	// Deep path under a named collection.
	h.set("owfs/misc/a/b", map[string]any{"y": 2.0})

	h.root.mu.Lock()
	defer h.root.mu.Unlock()
	if _, ok := h.root.passthrough["10/not-a-device"]; !ok {
		t.Error("malformed device id not held as passthrough")
	}
	if _, ok := h.root.passthrough["misc/a/b"]; !ok {
		t.Error("deep collection path not held as passthrough")
	}
	if f := h.root.families[0x10]; f != nil && len(f.nodes) != 0 {
		t.Errorf("malformed id created %d nodes", len(f.nodes))
	}
}

func TestServerRecords(t *testing.T) {
	h := newHarness(t)

	var updates []ServerRecord
	h.root.SetOnServerUpdate(func(rec ServerRecord) { updates = append(updates, rec) })

	h.set("owfs/server/prime", map[string]any{
		"server": map[string]any{"host": "gw1", "port": 4305.0},
	})
	h.set("owfs/server/spare", map[string]any{
		"server": map[string]any{"host": "gw2"},
	})

	servers := h.root.Servers()
	if len(servers) != 2 {
		t.Fatalf("Servers() returned %d records, want 2", len(servers))
	}
	if servers[0] != (ServerRecord{Name: "prime", Host: "gw1", Port: 4305}) {
		t.Errorf("prime = %+v", servers[0])
	}
	if servers[1] != (ServerRecord{Name: "spare", Host: "gw2", Port: 4304}) {
		t.Errorf("spare = %+v, want default port 4304", servers[1])
	}

	h.del("owfs/server/spare")
	if got := len(h.root.Servers()); got != 1 {
		t.Errorf("servers after delete = %d, want 1", got)
	}

	if len(updates) != 3 {
		t.Fatalf("callback invoked %d times, want 3", len(updates))
	}
	if last := updates[2]; last.Name != "spare" || last.Host != "" {
		t.Errorf("deletion callback = %+v, want empty host for spare", last)
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)

	h.set("owfs/10/aabbccddeeff/temperature", map[string]any{"interval": 30.0})
	h.set("owfs/28/000000000001", map[string]any{})

	nodes := h.root.Snapshot()
	if len(nodes) != 2 {
		t.Fatalf("snapshot has %d nodes, want 2", len(nodes))
	}
	if nodes[0].Address != "10.aabbccddeeff" || nodes[1].Address != "28.000000000001" {
		t.Errorf("snapshot order = %s, %s", nodes[0].Address, nodes[1].Address)
	}
	if nodes[0].Present {
		t.Error("node reported present without a device")
	}
	attrs := nodes[0].Attributes
	if len(attrs) != 1 || attrs[0].Path != "temperature" {
		t.Fatalf("attributes = %+v", attrs)
	}
}
