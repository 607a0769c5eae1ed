package onewire

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/onewire-sync/internal/store"
)

// Simulator is an in-memory Backend used by tests and by standalone runs
// without bus hardware. Devices are scripted: tests create them, flip their
// presence, and inject polled readings.
//
// Thread Safety: all methods are safe for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	devices map[string]*SimDevice
	servers map[string]string // name -> host:port
	events  chan Event
	closed  bool
}

var _ Backend = (*Simulator)(nil)

// NewSimulator creates an empty simulated backend.
func NewSimulator() *Simulator {
	return &Simulator{
		devices: make(map[string]*SimDevice),
		servers: make(map[string]string),
		events:  make(chan Event, 64),
	}
}

// Events implements Backend.
func (s *Simulator) Events() <-chan Event {
	return s.events
}

// AddServer implements Backend. The simulator just records the gateway.
func (s *Simulator) AddServer(_ context.Context, name, host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("simulator closed")
	}
	s.servers[name] = fmt.Sprintf("%s:%d", host, port)
	return nil
}

// Servers returns the registered gateways, keyed by name.
func (s *Simulator) Servers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.servers))
	for k, v := range s.servers {
		out[k] = v
	}
	return out
}

// Close implements Backend.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

// AddDevice creates a simulated device. It starts disconnected; call
// Locate to make it visible.
func (s *Simulator) AddDevice(family byte, id uint64) *SimDevice {
	d := &SimDevice{
		sim:       s,
		family:    family,
		id:        id,
		values:    make(map[string]any),
		intervals: make(map[string]float64),
	}
	s.mu.Lock()
	s.devices[d.Address()] = d
	s.mu.Unlock()
	return d
}

// emit delivers an event, dropping it if the backend is closed.
func (s *Simulator) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// SimDevice is a scripted device on the simulated backend.
type SimDevice struct {
	sim    *Simulator
	family byte
	id     uint64

	mu        sync.Mutex
	connected bool
	values    map[string]any
	writes    []SimWrite
	intervals map[string]float64
}

// SimWrite records one Write call for test assertions.
type SimWrite struct {
	Attr  store.Path
	Value any
}

var _ Device = (*SimDevice)(nil)

// Family implements Device.
func (d *SimDevice) Family() byte { return d.family }

// ID implements Device.
func (d *SimDevice) ID() uint64 { return d.id }

// Address implements Device.
func (d *SimDevice) Address() string { return FormatAddress(d.family, d.id) }

// Connected implements Device.
func (d *SimDevice) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Read implements Device.
func (d *SimDevice) Read(_ context.Context, attr store.Path) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, fmt.Errorf("device %s: %w", d.Address(), ErrNoSuchDevice)
	}
	v, ok := d.values[attr.String()]
	if !ok {
		return nil, fmt.Errorf("device %s attribute %s: %w", d.Address(), attr, ErrNoSuchAttribute)
	}
	return v, nil
}

// Write implements Device.
func (d *SimDevice) Write(_ context.Context, attr store.Path, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return fmt.Errorf("device %s: %w", d.Address(), ErrNoSuchDevice)
	}
	d.values[attr.String()] = value
	d.writes = append(d.writes, SimWrite{Attr: attr, Value: value})
	return nil
}

// SetPollingInterval implements Device.
func (d *SimDevice) SetPollingInterval(_ context.Context, attr store.Path, seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seconds <= 0 {
		delete(d.intervals, attr.String())
		return nil
	}
	d.intervals[attr.String()] = seconds
	return nil
}

// Locate marks the device visible and emits DeviceLocated.
func (d *SimDevice) Locate() {
	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()
	d.sim.emit(DeviceLocated{Device: d})
}

// Remove marks the device invisible and emits DeviceNotFound.
func (d *SimDevice) Remove() {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	d.sim.emit(DeviceNotFound{Device: d})
}

// SetValue scripts the value returned by Read for an attribute.
func (d *SimDevice) SetValue(attr store.Path, value any) {
	d.mu.Lock()
	d.values[attr.String()] = value
	d.mu.Unlock()
}

// EmitReading injects a polled reading, as the real backend's poller would.
func (d *SimDevice) EmitReading(attr store.Path, value any) {
	d.SetValue(attr, value)
	d.sim.emit(DeviceValue{Device: d, Attr: attr, Value: value})
}

// Writes returns a copy of all recorded Write calls.
func (d *SimDevice) Writes() []SimWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]SimWrite, len(d.writes))
	copy(out, d.writes)
	return out
}

// PollingInterval returns the currently requested interval for an attribute,
// zero when polling is disabled.
func (d *SimDevice) PollingInterval(attr store.Path) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.intervals[attr.String()]
}
