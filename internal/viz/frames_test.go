package viz

import (
	"context"
	"errors"
	"testing"

	"neurorig/internal/sim"
)

type countingRecorder struct {
	name  string
	reads int
	err   error
}

func (r *countingRecorder) Name() string                          { return r.name }
func (r *countingRecorder) InitForEngine(*sim.Engine) error       { return nil }
func (r *countingRecorder) ConnectToPopulation(sim.Population) error { return nil }
func (r *countingRecorder) Reset()                                { r.reads = 0 }

func (r *countingRecorder) GetState() (any, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.reads++
	return r.reads, nil
}

func TestFrameRecorderCapturesAllRecorders(t *testing.T) {
	ctx := context.Background()
	eng := sim.New()

	probe := &countingRecorder{name: "probe0"}
	scope := &countingRecorder{name: "scope0"}
	frames := NewFrameRecorder("frames")
	for _, dev := range []sim.Device{probe, scope, frames} {
		if err := eng.Inject(dev); err != nil {
			t.Fatalf("inject %s: %v", dev.Name(), err)
		}
	}

	if err := eng.Run(ctx, 3); err != nil {
		t.Fatalf("run: %v", err)
	}

	captured := frames.Frames()
	if len(captured) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(captured))
	}
	if captured[0].Step != 1 || captured[2].Step != 3 {
		t.Fatalf("unexpected frame steps: %+v", captured)
	}
	for _, f := range captured {
		if _, ok := f.Values["frames"]; ok {
			t.Fatal("frame recorder captured its own state")
		}
		if len(f.Values) != 2 {
			t.Fatalf("expected 2 device readings per frame, got %d", len(f.Values))
		}
	}
	if captured[1].Values["probe0"] != 2 {
		t.Fatalf("unexpected probe reading in second frame: %v", captured[1].Values["probe0"])
	}
}

func TestFrameRecorderCadence(t *testing.T) {
	ctx := context.Background()
	eng := sim.New()

	probe := &countingRecorder{name: "probe0"}
	frames := NewFrameRecorder("frames")
	frames.RecordEvery(3)
	for _, dev := range []sim.Device{probe, frames} {
		if err := eng.Inject(dev); err != nil {
			t.Fatalf("inject %s: %v", dev.Name(), err)
		}
	}

	if err := eng.Run(ctx, 7); err != nil {
		t.Fatalf("run: %v", err)
	}

	captured := frames.Frames()
	if len(captured) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(captured))
	}
	if captured[0].Step != 3 || captured[1].Step != 6 {
		t.Fatalf("unexpected frame steps: %+v", captured)
	}
}

func TestFrameRecorderWatchRestrictsDevices(t *testing.T) {
	ctx := context.Background()
	eng := sim.New()

	probe := &countingRecorder{name: "probe0"}
	scope := &countingRecorder{name: "scope0"}
	frames := NewFrameRecorder("frames")
	frames.Watch(scope)
	for _, dev := range []sim.Device{probe, scope, frames} {
		if err := eng.Inject(dev); err != nil {
			t.Fatalf("inject %s: %v", dev.Name(), err)
		}
	}

	if err := eng.Run(ctx, 2); err != nil {
		t.Fatalf("run: %v", err)
	}

	captured := frames.Frames()
	if len(captured) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(captured))
	}
	if _, ok := captured[0].Values["probe0"]; ok {
		t.Fatal("unwatched device captured")
	}
	if _, ok := captured[0].Values["scope0"]; !ok {
		t.Fatal("watched device missing from frame")
	}
	if probe.reads != 0 {
		t.Fatalf("unwatched device was read %d times", probe.reads)
	}
}

func TestFrameRecorderPropagatesReadError(t *testing.T) {
	ctx := context.Background()
	eng := sim.New()

	broken := errors.New("sensor offline")
	probe := &countingRecorder{name: "probe0", err: broken}
	frames := NewFrameRecorder("frames")
	for _, dev := range []sim.Device{probe, frames} {
		if err := eng.Inject(dev); err != nil {
			t.Fatalf("inject %s: %v", dev.Name(), err)
		}
	}

	err := eng.Run(ctx, 1)
	if !errors.Is(err, broken) {
		t.Fatalf("expected read error, got: %v", err)
	}
}

func TestFrameRecorderRejectsSecondEngine(t *testing.T) {
	frames := NewFrameRecorder("frames")
	if err := sim.New().Inject(frames); err != nil {
		t.Fatalf("first inject: %v", err)
	}
	err := sim.New().Inject(frames)
	if !errors.Is(err, sim.ErrAlreadyInjected) {
		t.Fatalf("expected ErrAlreadyInjected, got: %v", err)
	}
}

func TestFrameRecorderResetClearsFrames(t *testing.T) {
	ctx := context.Background()
	eng := sim.New()

	probe := &countingRecorder{name: "probe0"}
	frames := NewFrameRecorder("frames")
	for _, dev := range []sim.Device{probe, frames} {
		if err := eng.Inject(dev); err != nil {
			t.Fatalf("inject %s: %v", dev.Name(), err)
		}
	}
	if err := eng.Run(ctx, 2); err != nil {
		t.Fatalf("run: %v", err)
	}

	eng.Reset()
	if got := frames.Frames(); len(got) != 0 {
		t.Fatalf("expected no frames after reset, got %d", len(got))
	}
}
