package device

import (
	"testing"

	"neurorig/internal/geom"
	"neurorig/internal/sim"
)

func TestStateVariableSetterDrivesPopulation(t *testing.T) {
	pop := sim.NewGroup("exc", geom.Coords{{}, {X: 10}, {X: 20}})
	stim := NewStateVariableSetter("fiber", "drive", UniformDrive{Gain: 2})
	if err := stim.ConnectToPopulation(pop); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := stim.Update(1.5); err != nil {
		t.Fatalf("update: %v", err)
	}
	if stim.Value() != 1.5 {
		t.Fatalf("value snapshot: got %f, want 1.5", stim.Value())
	}
	drive := pop.StateVariable("drive")
	for i, v := range drive {
		if v != 3 {
			t.Fatalf("neuron %d drive: got %f, want 3", i, v)
		}
	}

	stim.Reset()
	if stim.Value() != 0 {
		t.Fatalf("value after reset: got %f", stim.Value())
	}
	for i, v := range pop.StateVariable("drive") {
		if v != 0 {
			t.Fatalf("neuron %d drive after reset: got %f", i, v)
		}
	}
}

func TestStateVariableSetterNeedsSettablePopulation(t *testing.T) {
	stim := NewStateVariableSetter("fiber", "drive", UniformDrive{Gain: 1})
	if err := stim.ConnectToPopulation(bareGroup{}); err == nil {
		t.Fatal("expected error for population without state variables")
	}
}

func TestStateVariableSetterSizeMismatch(t *testing.T) {
	pop := sim.NewGroup("exc", geom.Coords{{}, {X: 10}})
	bad := DriveModelFunc(func(p sim.Population, ctrl float64) ([]float64, error) {
		return []float64{ctrl}, nil
	})
	stim := NewStateVariableSetter("fiber", "drive", bad)
	if err := stim.ConnectToPopulation(pop); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := stim.Update(1); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

type bareGroup struct{}

func (bareGroup) Name() string        { return "bare" }
func (bareGroup) N() int              { return 1 }
func (bareGroup) Coords() geom.Coords { return geom.Coords{{}} }
