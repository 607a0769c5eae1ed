package onewire

import "errors"

// Sentinel errors reported by device handles. Backends wrap these with
// device context; callers classify with errors.Is.
var (
	// ErrNoSuchDevice means the device is not visible on any reachable bus.
	ErrNoSuchDevice = errors.New("no such device")

	// ErrNoSuchAttribute means the device exists but has no such attribute.
	ErrNoSuchAttribute = errors.New("no such attribute")
)

// DefaultPort is the conventional owserver TCP port.
const DefaultPort = 4304
