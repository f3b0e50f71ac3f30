// Package device implements the capability-based device hierarchy: a Base
// carrying identity and the set-once engine reference, Signals owned by a
// Probe, and stimulators converting control values to neuron drive.
// Capabilities are plain interface assertions (sim.Recorder,
// sim.Stimulator, viz.Plottable), not attribute probing.
package device

import (
	"errors"

	"neurorig/internal/sim"
)

var (
	// ErrAlreadyBound reports a signal attached to a second probe.
	ErrAlreadyBound = errors.New("signal already bound to a probe")
	// ErrSizeMismatch reports per-target arrays of unequal length; it
	// indicates a targeting bug, not recoverable input.
	ErrSizeMismatch = errors.New("per-target arrays have mismatched lengths")
)

// Base carries the identity and engine back-reference common to all
// devices. The engine reference is set exactly once at injection.
type Base struct {
	name   string
	engine *sim.Engine
}

func NewBase(name string) Base {
	return Base{name: name}
}

func (b *Base) Name() string { return b.name }

// InitForEngine records the owning engine. Re-injecting into the same
// engine is a no-op; a different engine is an error.
func (b *Base) InitForEngine(e *sim.Engine) error {
	if b.engine != nil && b.engine != e {
		return sim.ErrAlreadyInjected
	}
	b.engine = e
	return nil
}

// Engine returns the engine the device was injected into, or nil.
func (b *Base) Engine() *sim.Engine { return b.engine }
