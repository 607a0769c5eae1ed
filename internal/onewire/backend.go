package onewire

import (
	"context"

	"github.com/nerrad567/onewire-sync/internal/store"
)

// Device is a single 1-Wire slave visible through a bus gateway.
//
// A Device handle stays valid across presence changes; Connected reports
// whether the device is currently reachable on a live bus.
type Device interface {
	// Family returns the one-byte device family code.
	Family() byte

	// ID returns the 48-bit device serial within its family.
	ID() uint64

	// Address returns the conventional "ff.iiiiiiiiiiii" rendering.
	Address() string

	// Connected reports whether the device is visible on a reachable bus.
	Connected() bool

	// Read reads one device attribute (e.g. ["temperature"]).
	Read(ctx context.Context, attr store.Path) (any, error)

	// Write writes one device attribute.
	Write(ctx context.Context, attr store.Path, value any) error

	// SetPollingInterval asks the backend to poll the attribute every
	// seconds seconds, delivering readings as DeviceValue events.
	// Zero disables polling for that attribute.
	SetPollingInterval(ctx context.Context, attr store.Path, seconds float64) error
}

// Backend is the contract with the physical bus driver.
//
// The backend owns device discovery and polling; this daemon only consumes
// its event stream and issues reads/writes through Device handles.
type Backend interface {
	// Events returns the backend's event stream. The channel is closed
	// when the backend shuts down.
	Events() <-chan Event

	// AddServer registers a bus gateway (owserver instance) to scan.
	AddServer(ctx context.Context, name, host string, port int) error

	// Close shuts the backend down and closes the event stream.
	Close() error
}

// Event is a notification from the bus driver. Concrete types:
// DeviceLocated, DeviceNotFound, DeviceValue, BusDown.
type Event interface {
	isEvent()
}

// DeviceLocated reports that a device became visible on a bus.
type DeviceLocated struct {
	Device Device
}

// DeviceNotFound reports that a device disappeared from all buses.
type DeviceNotFound struct {
	Device Device
}

// DeviceValue delivers a polled attribute reading.
type DeviceValue struct {
	Device Device
	Attr   store.Path
	Value  any
}

// BusDown reports that a whole gateway became unreachable. Per-device
// DeviceNotFound events follow for each device that was on it.
type BusDown struct {
	Server string
}

func (DeviceLocated) isEvent()  {}
func (DeviceNotFound) isEvent() {}
func (DeviceValue) isEvent()    {}
func (BusDown) isEvent()        {}
