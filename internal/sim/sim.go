// Package sim hosts the boundary between sensing/stimulation devices and
// the discrete-event engine that advances neuron state. The engine here is
// a minimal synchronous reference: it owns populations, injects devices,
// and drives periodic callbacks on each step. Device semantics live in the
// device and scope packages.
package sim

import (
	"context"
	"errors"
	"fmt"

	"neurorig/internal/geom"
)

// ErrAlreadyInjected reports a device injected into a second engine. The
// engine reference on a device is set exactly once.
var ErrAlreadyInjected = errors.New("device already injected into an engine")

// Population is a homogeneous group of simulated neurons exposing
// per-neuron 3-D coordinates in micrometers.
type Population interface {
	Name() string
	N() int
	Coords() geom.Coords
}

// Device is the minimal contract a device must satisfy to be injected.
// Richer capabilities (Recorder, Stimulator) are detected structurally.
type Device interface {
	Name() string
	InitForEngine(e *Engine) error
	ConnectToPopulation(pop Population) error
	Reset()
}

// Recorder is a device that produces an observable reading.
type Recorder interface {
	Device
	GetState() (any, error)
}

// Stimulator is a device that converts a control value into neuron drive.
type Stimulator interface {
	Device
	Update(ctrl float64) error
}

// Callback runs on configured engine steps; a returned error halts the run.
type Callback func(step int) error

type tickHook struct {
	every int
	fn    Callback
}

// Engine steps populations and devices through a cooperative, synchronous
// loop. All device work happens to completion inside one step; connect
// calls during an active run are unsupported.
type Engine struct {
	pops        []Population
	popsByName  map[string]Population
	devices     map[string]Device
	recorders   []Recorder
	stimulators []Stimulator
	hooks       []tickHook
	step        int
}

func New() *Engine {
	return &Engine{
		popsByName: make(map[string]Population),
		devices:    make(map[string]Device),
	}
}

func (e *Engine) AddPopulation(pop Population) error {
	if _, ok := e.popsByName[pop.Name()]; ok {
		return fmt.Errorf("population %q already added", pop.Name())
	}
	e.pops = append(e.pops, pop)
	e.popsByName[pop.Name()] = pop
	return nil
}

func (e *Engine) Population(name string) (Population, bool) {
	pop, ok := e.popsByName[name]
	return pop, ok
}

func (e *Engine) Populations() []Population {
	return append([]Population(nil), e.pops...)
}

// Inject registers a device with the engine and connects it to the given
// populations. The device records the engine reference exactly once;
// injecting the same device into a second engine fails.
func (e *Engine) Inject(dev Device, pops ...Population) error {
	if existing, ok := e.devices[dev.Name()]; ok && existing != dev {
		return fmt.Errorf("device name %q already in use", dev.Name())
	}
	if err := dev.InitForEngine(e); err != nil {
		return fmt.Errorf("inject %s: %w", dev.Name(), err)
	}
	for _, pop := range pops {
		if err := dev.ConnectToPopulation(pop); err != nil {
			return fmt.Errorf("connect %s to %s: %w", dev.Name(), pop.Name(), err)
		}
	}
	if _, ok := e.devices[dev.Name()]; ok {
		return nil
	}
	e.devices[dev.Name()] = dev
	if rec, ok := dev.(Recorder); ok {
		e.recorders = append(e.recorders, rec)
	}
	if stim, ok := dev.(Stimulator); ok {
		e.stimulators = append(e.stimulators, stim)
	}
	return nil
}

func (e *Engine) Recorders() []Recorder {
	return append([]Recorder(nil), e.recorders...)
}

func (e *Engine) Stimulators() []Stimulator {
	return append([]Stimulator(nil), e.stimulators...)
}

// OnTick registers fn to run every n steps (n < 1 behaves as every step).
func (e *Engine) OnTick(every int, fn Callback) {
	if every < 1 {
		every = 1
	}
	e.hooks = append(e.hooks, tickHook{every: every, fn: fn})
}

// Step advances the engine one tick, firing due callbacks in registration
// order. A callback error halts the step and propagates.
func (e *Engine) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.step++
	for _, h := range e.hooks {
		if e.step%h.every != 0 {
			continue
		}
		if err := h.fn(e.step); err != nil {
			return fmt.Errorf("step %d: %w", e.step, err)
		}
	}
	return nil
}

// Run advances the engine the given number of steps.
func (e *Engine) Run(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		if err := e.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GetState reads every injected recorder, keyed by device name.
func (e *Engine) GetState() (map[string]any, error) {
	out := make(map[string]any, len(e.recorders))
	for _, rec := range e.recorders {
		state, err := rec.GetState()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rec.Name(), err)
		}
		out[rec.Name()] = state
	}
	return out, nil
}

// Reset returns all devices to a neutral state and rewinds the step count.
func (e *Engine) Reset() {
	for _, dev := range e.devices {
		dev.Reset()
	}
	e.step = 0
}

func (e *Engine) StepCount() int { return e.step }
