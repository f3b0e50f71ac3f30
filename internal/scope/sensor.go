package scope

import (
	"fmt"

	"neurorig/internal/sim"
)

// Sensor is the external per-neuron value source a scope reads through:
// some photophysical model that turns neuron state into signal magnitude.
// Only this boundary is defined here.
type Sensor interface {
	Name() string
	Mode() SensingMode
	// SigmaNoise is the baseline noise standard deviation for a neuron in
	// perfect focus.
	SigmaNoise() float64
	// SpikeAmplitude is the expected signal magnitude of one spike, used
	// for SNR cutoffs. ok is false when the sensor model defines none.
	SpikeAmplitude() (amp float64, ok bool)
	// Values returns the true per-neuron signal for a population, one
	// value per neuron in population order.
	Values(pop sim.Population) ([]float64, error)
}

// StaticSensor serves values from an in-memory table keyed by population
// name. Tests and reference experiments update the table between steps.
type StaticSensor struct {
	name   string
	mode   SensingMode
	sigma  float64
	amp    float64
	values map[string][]float64
}

func NewStaticSensor(name string, mode SensingMode, sigma, spikeAmplitude float64) *StaticSensor {
	return &StaticSensor{
		name:   name,
		mode:   mode,
		sigma:  sigma,
		amp:    spikeAmplitude,
		values: make(map[string][]float64),
	}
}

func (s *StaticSensor) Name() string        { return s.name }
func (s *StaticSensor) Mode() SensingMode   { return s.mode }
func (s *StaticSensor) SigmaNoise() float64 { return s.sigma }

func (s *StaticSensor) SpikeAmplitude() (float64, bool) {
	return s.amp, s.amp > 0
}

// SetValues installs the true per-neuron signal vector for a population.
func (s *StaticSensor) SetValues(pop sim.Population, values []float64) error {
	if len(values) != pop.N() {
		return fmt.Errorf("sensor %q: %d values for %d neurons in %q",
			s.name, len(values), pop.N(), pop.Name())
	}
	s.values[pop.Name()] = append([]float64(nil), values...)
	return nil
}

func (s *StaticSensor) Values(pop sim.Population) ([]float64, error) {
	v, ok := s.values[pop.Name()]
	if !ok {
		return nil, fmt.Errorf("sensor %q has no values for population %q", s.name, pop.Name())
	}
	return v, nil
}

// StateVariableSensor reads a named per-neuron state variable directly
// from the population, closing the loop with stimulators that write one.
type StateVariableSensor struct {
	name     string
	variable string
	mode     SensingMode
	sigma    float64
	amp      float64
}

func NewStateVariableSensor(name, variable string, mode SensingMode, sigma, spikeAmplitude float64) *StateVariableSensor {
	return &StateVariableSensor{name: name, variable: variable, mode: mode, sigma: sigma, amp: spikeAmplitude}
}

func (s *StateVariableSensor) Name() string        { return s.name }
func (s *StateVariableSensor) Mode() SensingMode   { return s.mode }
func (s *StateVariableSensor) SigmaNoise() float64 { return s.sigma }

func (s *StateVariableSensor) SpikeAmplitude() (float64, bool) {
	return s.amp, s.amp > 0
}

func (s *StateVariableSensor) Values(pop sim.Population) ([]float64, error) {
	vars, ok := pop.(interface{ StateVariable(name string) []float64 })
	if !ok {
		return nil, fmt.Errorf("population %q does not expose state variables", pop.Name())
	}
	return vars.StateVariable(s.variable), nil
}
