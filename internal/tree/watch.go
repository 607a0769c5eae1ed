package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/onewire-sync/internal/onewire"
	"github.com/nerrad567/onewire-sync/internal/store"
)

// errAttributeMissing marks a watched value that does not contain the
// configured nested attribute. Fatal to the watch task.
var errAttributeMissing = errors.New("attribute missing in watched value")

// errDeviceMissing marks a write attempted while the node has no device.
var errDeviceMissing = errors.New("device missing")

// watchTask is one store-to-device watcher. It subscribes to the source
// path and writes every update to the device attribute. Exactly one task
// is registered per attribute; a successor cancels its predecessor via the
// registration handoff in adoptWatch.
type watchTask struct {
	attr    *Attribute
	dev     onewire.Device
	src     store.Path
	srcAttr []string

	ctx     context.Context
	cancel  context.CancelFunc
	started chan error // one-shot startup handshake
}

func (t *watchTask) run() {
	a := t.attr
	defer t.cancel()

	sub, err := a.client().Watch(t.ctx, t.src, 0, 0, true)
	if err != nil {
		t.started <- fmt.Errorf("subscribe %s: %w", t.src, err)
		return
	}

	// Registration before the handshake: the reconciling caller must
	// observe a fully installed watcher when its call returns.
	a.adoptWatch(t)
	defer a.clearWatch(t)
	t.started <- nil

	for ev := range sub.Events() {
		if ev.Path == nil {
			continue
		}
		// A cancelled task must not write, even with updates in flight.
		if t.ctx.Err() != nil {
			return
		}
		if terminal := t.apply(ev); terminal {
			return
		}
	}
	if err := sub.Err(); err != nil && !errors.Is(err, context.Canceled) {
		a.root().reportError(t.ctx, a.reportPath("write"), fmt.Errorf("subscription lost: %w", err), nil)
	}
}

// apply writes one update to the device. Returns true when the task must
// terminate: the configured nested attribute is missing from the value, or
// the device is gone. Transport failures are reported and the task keeps
// watching.
func (t *watchTask) apply(ev store.Event) bool {
	a := t.attr
	value := ev.Value

	if len(t.srcAttr) > 0 {
		v, key, err := store.GetPath(value, t.srcAttr)
		if err != nil {
			a.root().reportError(t.ctx, a.reportPath("write"),
				fmt.Errorf("%w: %v", errAttributeMissing, err),
				map[string]any{"key": key, "value": value})
			return true
		}
		value = v
	} else if value == nil {
		// Source entry deleted and nothing to extract; nothing to write.
		return false
	}

	if a.node.Device() == nil {
		a.root().reportError(t.ctx, a.reportPath("write"), errDeviceMissing, nil)
		return true
	}

	if err := t.dev.Write(t.ctx, a.key, value); err != nil {
		a.root().reportError(t.ctx, a.reportPath("write"), fmt.Errorf("device write: %w", err), nil)
		return errors.Is(err, onewire.ErrNoSuchDevice) || errors.Is(err, onewire.ErrNoSuchAttribute)
	}
	a.sink().RecordWorking(t.ctx, Subsystem, a.reportPath("write"), "")
	return false
}
