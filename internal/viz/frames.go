package viz

import (
	"neurorig/internal/sim"
)

// Frame is one snapshot of recorder readings, keyed by device name.
type Frame struct {
	Step   int            `json:"step"`
	Values map[string]any `json:"values"`
}

// FrameRecorder captures per-device readings on engine ticks so a renderer
// can replay a run. It is itself a device so the engine owns its lifecycle.
type FrameRecorder struct {
	name    string
	every   int
	engine  *sim.Engine
	devices []sim.Recorder
	frames  []Frame
}

func NewFrameRecorder(name string) *FrameRecorder {
	return &FrameRecorder{name: name}
}

func (r *FrameRecorder) Name() string { return r.name }

// RecordEvery sets the capture cadence in steps; values below 1 capture
// every step. Has no effect after injection.
func (r *FrameRecorder) RecordEvery(n int) { r.every = n }

// InitForEngine hooks the recorder into the engine's tick loop. When no
// devices were chosen explicitly it snapshots every injected recorder.
func (r *FrameRecorder) InitForEngine(e *sim.Engine) error {
	if r.engine != nil && r.engine != e {
		return sim.ErrAlreadyInjected
	}
	if r.engine == e {
		return nil
	}
	r.engine = e
	e.OnTick(r.every, r.snapshot)
	return nil
}

func (r *FrameRecorder) ConnectToPopulation(sim.Population) error { return nil }

// Watch restricts snapshots to the given recorders instead of all of them.
func (r *FrameRecorder) Watch(devices ...sim.Recorder) {
	r.devices = append(r.devices, devices...)
}

func (r *FrameRecorder) snapshot(step int) error {
	devices := r.devices
	if len(devices) == 0 && r.engine != nil {
		devices = r.engine.Recorders()
	}
	values := make(map[string]any, len(devices))
	for _, dev := range devices {
		if dev.Name() == r.name {
			continue
		}
		state, err := dev.GetState()
		if err != nil {
			return err
		}
		values[dev.Name()] = state
	}
	r.frames = append(r.frames, Frame{Step: step, Values: values})
	return nil
}

func (r *FrameRecorder) Frames() []Frame {
	return append([]Frame(nil), r.frames...)
}

// GetState returns the captured frames, satisfying the recorder capability.
func (r *FrameRecorder) GetState() (any, error) { return r.Frames(), nil }

func (r *FrameRecorder) Reset() { r.frames = nil }
