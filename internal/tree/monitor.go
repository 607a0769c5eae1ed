package tree

import (
	"context"
	"fmt"

	"github.com/nerrad567/onewire-sync/internal/onewire"
)

// TelemetryRecorder receives numeric polled readings for time-series
// recording. Implementations must not block.
type TelemetryRecorder interface {
	RecordReading(address, attribute string, value float64)
}

// Monitor consumes the bus backend's event stream: presence events become
// device handoffs on tree nodes, polled readings are routed to the owning
// attribute's poll handler, and gateway records from the tree are pushed
// to the backend.
type Monitor struct {
	root      *Root
	backend   onewire.Backend
	telemetry TelemetryRecorder
	logger    Logger
}

// NewMonitor wires a backend to the tree. telemetry may be nil.
func NewMonitor(root *Root, backend onewire.Backend, telemetry TelemetryRecorder) *Monitor {
	return &Monitor{root: root, backend: backend, telemetry: telemetry}
}

// SetLogger sets a logger for monitor diagnostics.
func (m *Monitor) SetLogger(logger Logger) { m.logger = logger }

// Run registers the tree's current gateways, installs the gateway-update
// callback and processes backend events until ctx is cancelled or the
// backend closes its stream.
func (m *Monitor) Run(ctx context.Context) error {
	m.root.SetOnServerUpdate(func(rec ServerRecord) {
		if rec.Host == "" {
			return // gateway removal is handled by the backend's own bus-down path
		}
		if err := m.backend.AddServer(ctx, rec.Name, rec.Host, rec.Port); err != nil {
			m.logWarn("gateway registration failed", "name", rec.Name, "error", err)
		}
	})
	for _, rec := range m.root.Servers() {
		if rec.Host == "" {
			continue
		}
		if err := m.backend.AddServer(ctx, rec.Name, rec.Host, rec.Port); err != nil {
			return fmt.Errorf("register gateway %s: %w", rec.Name, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-m.backend.Events():
			if !ok {
				return nil
			}
			m.handle(ctx, ev)
		}
	}
}

func (m *Monitor) handle(ctx context.Context, ev onewire.Event) {
	switch e := ev.(type) {
	case onewire.DeviceLocated:
		m.located(ctx, e.Device)
	case onewire.DeviceNotFound:
		m.logInfo("device lost", "device", e.Device.Address())
		if node := m.root.LookupNode(e.Device.Family(), e.Device.ID()); node != nil {
			node.WithDevice(ctx, nil)
		}
	case onewire.DeviceValue:
		m.reading(ctx, e)
	case onewire.BusDown:
		m.logWarn("bus unreachable", "server", e.Server)
	}
}

// located installs the device handle, seeding an empty configuration entry
// for devices the store has never seen so the namespace mirrors the bus.
func (m *Monitor) located(ctx context.Context, dev onewire.Device) {
	m.logInfo("device located", "device", dev.Address())
	node := m.root.EnsureNode(dev.Family(), dev.ID())
	if !node.HasValue() {
		if _, err := m.root.client.Set(ctx, node.StorePath(), map[string]any{}); err != nil {
			m.logWarn("failed to seed device entry", "device", dev.Address(), "error", err)
		}
	}
	node.WithDevice(ctx, dev)
}

func (m *Monitor) reading(ctx context.Context, e onewire.DeviceValue) {
	dev := e.Device
	node := m.root.LookupNode(dev.Family(), dev.ID())
	if node == nil {
		return
	}
	attr := node.Attribute(e.Attr)
	if attr == nil {
		return
	}
	// HandleReading reports its own failures to the sink.
	_ = attr.HandleReading(ctx, e.Value)
	if m.telemetry != nil {
		if f, ok := toFloat64(e.Value); ok {
			m.telemetry.RecordReading(dev.Address(), e.Attr.String(), f)
		}
	}
}

func (m *Monitor) logInfo(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Monitor) logWarn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
