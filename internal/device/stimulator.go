package device

import (
	"fmt"

	"neurorig/internal/sim"
)

// DriveModel converts a device control value into per-neuron drive for a
// population. The optics/chemistry numerics behind it are external; only
// this boundary is defined here.
type DriveModel interface {
	DrivePerNeuron(pop sim.Population, ctrl float64) ([]float64, error)
}

// DriveModelFunc adapts a function to the DriveModel interface.
type DriveModelFunc func(pop sim.Population, ctrl float64) ([]float64, error)

func (f DriveModelFunc) DrivePerNeuron(pop sim.Population, ctrl float64) ([]float64, error) {
	return f(pop, ctrl)
}

// UniformDrive drives every neuron with the control value scaled by Gain.
type UniformDrive struct {
	Gain float64
}

func (m UniformDrive) DrivePerNeuron(pop sim.Population, ctrl float64) ([]float64, error) {
	out := make([]float64, pop.N())
	for i := range out {
		out[i] = m.Gain * ctrl
	}
	return out, nil
}

// StateVariableSetter is a stimulator that writes a named state variable on
// its connected populations each time it receives a control value.
type StateVariableSetter struct {
	Base
	variable string
	model    DriveModel
	pops     []sim.Population
	value    float64
}

var _ sim.Stimulator = (*StateVariableSetter)(nil)

func NewStateVariableSetter(name, variable string, model DriveModel) *StateVariableSetter {
	return &StateVariableSetter{Base: NewBase(name), variable: variable, model: model}
}

// ConnectToPopulation requires the population to expose mutable state
// variables (as sim.Group does).
func (s *StateVariableSetter) ConnectToPopulation(pop sim.Population) error {
	if _, ok := pop.(settable); !ok {
		return fmt.Errorf("population %q does not expose settable state variables", pop.Name())
	}
	s.pops = append(s.pops, pop)
	return nil
}

type settable interface {
	SetStateVariable(name string, idx []int, values []float64) error
}

// Update applies the control value to every connected population through
// the drive model.
func (s *StateVariableSetter) Update(ctrl float64) error {
	s.value = ctrl
	for _, pop := range s.pops {
		drive, err := s.model.DrivePerNeuron(pop, ctrl)
		if err != nil {
			return fmt.Errorf("stimulator %q: %w", s.Name(), err)
		}
		if len(drive) != pop.N() {
			return fmt.Errorf("stimulator %q: %w: %d drive values for %d neurons",
				s.Name(), ErrSizeMismatch, len(drive), pop.N())
		}
		idx := make([]int, pop.N())
		for i := range idx {
			idx[i] = i
		}
		if err := pop.(settable).SetStateVariable(s.variable, idx, drive); err != nil {
			return fmt.Errorf("stimulator %q: %w", s.Name(), err)
		}
	}
	return nil
}

// Value reports the last control value, the snapshot a renderer reads.
func (s *StateVariableSetter) Value() float64 { return s.value }

// Reset returns the stimulator to zero drive.
func (s *StateVariableSetter) Reset() {
	s.value = 0
	_ = s.Update(0)
}
