package device

import (
	"fmt"
	"math/rand"
	"time"

	"neurorig/internal/geom"
	"neurorig/internal/sim"
	"neurorig/internal/units"
	"neurorig/internal/viz"
)

// Signal is one recordable channel owned by exactly one Probe. Its name
// keys the probe's aggregated state mapping.
type Signal interface {
	Name() string
	InitForProbe(p *Probe) error
	ConnectToPopulation(pop sim.Population) error
	GetState() (any, error)
	Reset()
}

// BaseSignal supplies identity and single-probe binding; concrete signals
// embed it.
type BaseSignal struct {
	name  string
	probe *Probe
}

func NewBaseSignal(name string) BaseSignal {
	return BaseSignal{name: name}
}

func (s *BaseSignal) Name() string { return s.name }

// InitForProbe records the owning probe. Binding to a second probe fails;
// rebinding to the same probe is a no-op.
func (s *BaseSignal) InitForProbe(p *Probe) error {
	if s.probe != nil && s.probe != p {
		return fmt.Errorf("%w: signal %q is owned by probe %q", ErrAlreadyBound, s.name, s.probe.Name())
	}
	s.probe = p
	return nil
}

// Probe returns the owning probe, or nil before binding.
func (s *BaseSignal) Probe() *Probe { return s.probe }

// Probe records named signals across an array of contacts sharing one
// coordinate frame.
type Probe struct {
	Base
	contacts geom.Coords
	signals  []Signal
}

var (
	_ sim.Recorder  = (*Probe)(nil)
	_ viz.Plottable = (*Probe)(nil)
)

// NewProbe builds a probe over the given contact coordinates. The probe
// takes exclusive ownership of the signals; a construction error leaves no
// usable partial state.
func NewProbe(name string, contacts geom.Coords, signals ...Signal) (*Probe, error) {
	if contacts.Len() == 0 {
		return nil, fmt.Errorf("probe %q requires at least one contact", name)
	}
	p := &Probe{Base: NewBase(name), contacts: contacts}
	if err := p.AddSignals(signals...); err != nil {
		return nil, err
	}
	return p, nil
}

// AddSignals attaches signals to the probe for recording.
func (p *Probe) AddSignals(signals ...Signal) error {
	for _, sig := range signals {
		if err := sig.InitForProbe(p); err != nil {
			return fmt.Errorf("probe %q: %w", p.Name(), err)
		}
		p.signals = append(p.signals, sig)
	}
	return nil
}

// Contacts returns the probe's contact coordinates; callers must treat the
// set as immutable.
func (p *Probe) Contacts() geom.Coords { return p.contacts }

// NumContacts is the physical contact count.
func (p *Probe) NumContacts() int { return p.contacts.Len() }

// ConnectToPopulation configures every signal to record from pop.
func (p *Probe) ConnectToPopulation(pop sim.Population) error {
	for _, sig := range p.signals {
		if err := sig.ConnectToPopulation(pop); err != nil {
			return fmt.Errorf("signal %q: %w", sig.Name(), err)
		}
	}
	return nil
}

// GetState reads every signal, keyed by signal name.
func (p *Probe) GetState() (any, error) {
	state := make(map[string]any, len(p.signals))
	for _, sig := range p.signals {
		v, err := sig.GetState()
		if err != nil {
			return nil, fmt.Errorf("signal %q: %w", sig.Name(), err)
		}
		state[sig.Name()] = v
	}
	return state, nil
}

// Reset returns every signal to a neutral state.
func (p *Probe) Reset() {
	for _, sig := range p.signals {
		sig.Reset()
	}
}

// Glyphs renders the contact array as point markers.
func (p *Probe) Glyphs(displayUnit units.Length) viz.Glyphs {
	return viz.Glyphs{
		Label:   p.Name(),
		Markers: viz.ScaleAll(p.contacts, displayUnit),
	}
}

// NoiseFloor is a diagnostic signal reporting the per-contact electrode
// noise floor: independent zero-mean Gaussian samples drawn fresh on every
// read. It stands in for electrophysiology models that are out of scope
// while exercising the full signal lifecycle.
type NoiseFloor struct {
	BaseSignal
	sigma     float64
	rng       *rand.Rand
	connected int
}

var _ Signal = (*NoiseFloor)(nil)

// NewNoiseFloor builds the signal with the given standard deviation. A nil
// rng falls back to time-seeded process randomness; pass a seeded generator
// for reproducible runs.
func NewNoiseFloor(name string, sigma float64, rng *rand.Rand) *NoiseFloor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &NoiseFloor{BaseSignal: NewBaseSignal(name), sigma: sigma, rng: rng}
}

func (s *NoiseFloor) ConnectToPopulation(sim.Population) error {
	s.connected++
	return nil
}

// GetState returns one sample per probe contact, or an empty vector before
// any population is connected.
func (s *NoiseFloor) GetState() (any, error) {
	if s.connected == 0 || s.Probe() == nil {
		return []float64{}, nil
	}
	out := make([]float64, s.Probe().NumContacts())
	for i := range out {
		out[i] = s.rng.NormFloat64() * s.sigma
	}
	return out, nil
}

func (s *NoiseFloor) Reset() { s.connected = 0 }
