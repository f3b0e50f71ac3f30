package scope

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"goki.dev/mat32/v2"

	"neurorig/internal/device"
	"neurorig/internal/geom"
	"neurorig/internal/sim"
	"neurorig/internal/units"
	"neurorig/internal/viz"
)

const (
	DefaultTargetRadius = 10 * units.Micrometer
	DefaultSNRCutoff    = 1.0
)

// injection is the per-population targeting record: three position-aligned
// arrays plus the owning population. Appended once per connect, never
// mutated, concatenated at read time.
type injection struct {
	pop     sim.Population
	indices []int
	sigma   []float64
	coords  geom.Coords
}

// Config sets up a Scope. Zero values fall back to conventional defaults:
// direction straight down, 10 um target radius, SNR cutoff of 1.
type Config struct {
	FOVWidth   units.Length
	FocusDepth units.Length // zero means connects default to explicit-target mode
	Location   mat32.Vec3
	Direction  mat32.Vec3
	// TargetRadius is the soma radius used for visibility.
	TargetRadius units.Length
	SNRCutoff    float64
	// Rand supplies noise draws; nil uses time-seeded process randomness.
	// Pass a seeded generator for reproducible runs.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Scope is a targeting recorder: an imaging device that records, per
// connected population, which neurons it can see and with how much noise,
// and aggregates their true signal into one noisy observable vector.
type Scope struct {
	device.Base
	sensor       Sensor
	fovWidth     units.Length
	focusDepth   units.Length
	location     mat32.Vec3
	direction    mat32.Vec3
	targetRadius units.Length
	snrCutoff    float64
	rng          *rand.Rand
	logger       *slog.Logger

	injections []injection
}

var (
	_ sim.Recorder  = (*Scope)(nil)
	_ viz.Plottable = (*Scope)(nil)
)

// NewScope builds a scope reading through the given sensor. Construction
// validates the sensing mode and field of view up front; errors leave no
// usable device.
func NewScope(name string, sensor Sensor, cfg Config) (*Scope, error) {
	if sensor == nil {
		return nil, fmt.Errorf("scope %q requires a sensor", name)
	}
	if _, err := ParseSensingMode(string(sensor.Mode())); err != nil {
		return nil, fmt.Errorf("scope %q: %w", name, err)
	}
	if cfg.FOVWidth <= 0 {
		return nil, fmt.Errorf("scope %q requires a positive field-of-view width", name)
	}
	dir := cfg.Direction
	if (dir == mat32.Vec3{}) {
		dir = mat32.Vec3{Z: 1}
	}
	dir = dir.DivScalar(dir.Length())
	radius := cfg.TargetRadius
	if radius == 0 {
		radius = DefaultTargetRadius
	}
	cutoff := cfg.SNRCutoff
	if cutoff == 0 {
		cutoff = DefaultSNRCutoff
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scope{
		Base:         device.NewBase(name),
		sensor:       sensor,
		fovWidth:     cfg.FOVWidth,
		focusDepth:   cfg.FocusDepth,
		location:     cfg.Location,
		direction:    dir,
		targetRadius: radius,
		snrCutoff:    cutoff,
		rng:          rng,
		logger:       logger,
	}, nil
}

// ConnectOpts adjusts a single connect call. Targets/SigmaNoise select the
// explicit pass-through mode and cannot be combined with focal geometry.
type ConnectOpts struct {
	FocusDepth   units.Length // overrides the scope's focus depth
	TargetRadius units.Length // overrides the scope's target radius
	BaseSigma    float64      // overrides the sensor's baseline sigma
	Targets      []int
	SigmaNoise   []float64
}

// ConnectToPopulation connects with the scope's defaults.
func (s *Scope) ConnectToPopulation(pop sim.Population) error {
	return s.Connect(pop, ConnectOpts{})
}

// Connect records a targeting injection for pop. With a focus depth the
// target list comes from plane-targeting geometry and the noise level from
// the per-neuron focus factor; otherwise the caller's explicit target
// indices are stored as given, with sigma broadcast to match.
func (s *Scope) Connect(pop sim.Population, opts ConnectOpts) error {
	focusDepth := opts.FocusDepth
	if focusDepth == 0 {
		focusDepth = s.focusDepth
	}

	var inj injection
	var err error
	if focusDepth > 0 {
		if len(opts.Targets) > 0 || len(opts.SigmaNoise) > 0 {
			return fmt.Errorf("scope %q: explicit targets cannot be combined with focal geometry", s.Name())
		}
		inj, err = s.targetByGeometry(pop, focusDepth, opts)
	} else {
		inj, err = s.targetExplicit(pop, opts)
	}
	if err != nil {
		return err
	}
	if len(inj.indices) != len(inj.sigma) || len(inj.indices) != inj.coords.Len() {
		return fmt.Errorf("scope %q: %w: %d indices, %d sigma, %d coords",
			s.Name(), device.ErrSizeMismatch, len(inj.indices), len(inj.sigma), inj.coords.Len())
	}
	s.injections = append(s.injections, inj)
	return nil
}

func (s *Scope) targetByGeometry(pop sim.Population, focusDepth units.Length, opts ConnectOpts) (injection, error) {
	radius := opts.TargetRadius
	if radius == 0 {
		radius = s.targetRadius
	}
	targets, err := TargetNeuronsInPlane(pop.Coords(), focusDepth, s.fovWidth,
		s.location, s.direction, radius, s.sensor.Mode())
	if err != nil {
		return injection{}, fmt.Errorf("scope %q: %w", s.Name(), err)
	}

	baseSigma := opts.BaseSigma
	if baseSigma == 0 {
		baseSigma = s.sensor.SigmaNoise()
	}
	sigma := make([]float64, targets.Len())
	for i, factor := range targets.NoiseFactor {
		sigma[i] = factor * baseSigma
	}

	indices := targets.Indices
	coords := targets.PlaneCoords
	if amp, ok := s.sensor.SpikeAmplitude(); ok {
		keptIdx := indices[:0:0]
		keptSigma := sigma[:0:0]
		keptCoords := coords[:0:0]
		for i := range indices {
			if amp/sigma[i] > s.snrCutoff {
				keptIdx = append(keptIdx, indices[i])
				keptSigma = append(keptSigma, sigma[i])
				keptCoords = append(keptCoords, coords[i])
			}
		}
		indices, sigma, coords = keptIdx, keptSigma, keptCoords
	} else {
		s.logger.Warn("SNR cutoff skipped: sensor defines no spike amplitude",
			"scope", s.Name(), "sensor", s.sensor.Name())
	}
	return injection{pop: pop, indices: indices, sigma: sigma, coords: coords}, nil
}

func (s *Scope) targetExplicit(pop sim.Population, opts ConnectOpts) (injection, error) {
	indices := opts.Targets
	if indices == nil {
		indices = make([]int, pop.N())
		for i := range indices {
			indices[i] = i
		}
	} else {
		indices = append([]int(nil), indices...)
	}

	var sigma []float64
	switch len(opts.SigmaNoise) {
	case 0:
		sigma = broadcast(s.sensor.SigmaNoise(), len(indices))
	case 1:
		sigma = broadcast(opts.SigmaNoise[0], len(indices))
	case len(indices):
		sigma = append([]float64(nil), opts.SigmaNoise...)
	default:
		return injection{}, fmt.Errorf("scope %q: %w: %d sigma values for %d targets",
			s.Name(), device.ErrSizeMismatch, len(opts.SigmaNoise), len(indices))
	}

	popCoords := pop.Coords()
	coords := make(geom.Coords, len(indices))
	for i, j := range indices {
		if j < 0 || j >= pop.N() {
			return injection{}, fmt.Errorf("scope %q: target index %d out of range [0,%d)", s.Name(), j, pop.N())
		}
		coords[i] = popCoords[j]
	}
	return injection{pop: pop, indices: indices, sigma: sigma, coords: coords}, nil
}

func broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Read pulls the true signal for every recorded target and adds freshly
// drawn zero-mean Gaussian noise at the stored standard deviations. Output
// length and order follow the injection records in connection order.
// Before any connect it returns an empty vector.
func (s *Scope) Read() ([]float64, error) {
	out := make([]float64, 0, s.NumTargets())
	for _, inj := range s.injections {
		values, err := s.sensor.Values(inj.pop)
		if err != nil {
			return nil, fmt.Errorf("scope %q: %w", s.Name(), err)
		}
		if len(values) != inj.pop.N() {
			return nil, fmt.Errorf("scope %q: %w: sensor returned %d values for %d neurons",
				s.Name(), device.ErrSizeMismatch, len(values), inj.pop.N())
		}
		for k, j := range inj.indices {
			out = append(out, values[j]+s.rng.NormFloat64()*inj.sigma[k])
		}
	}
	return out, nil
}

// GetState satisfies the recorder capability.
func (s *Scope) GetState() (any, error) { return s.Read() }

// Reset drops all targeting records, returning the scope to its
// pre-connect state.
func (s *Scope) Reset() { s.injections = nil }

// NumTargets is the total target count across all injection records.
func (s *Scope) NumTargets() int {
	n := 0
	for _, inj := range s.injections {
		n += len(inj.indices)
	}
	return n
}

// Sigma concatenates per-target noise levels in record order.
func (s *Scope) Sigma() []float64 {
	out := make([]float64, 0, s.NumTargets())
	for _, inj := range s.injections {
		out = append(out, inj.sigma...)
	}
	return out
}

// TargetCoords concatenates the original coordinates of all targets, for
// visualization.
func (s *Scope) TargetCoords() geom.Coords {
	out := make(geom.Coords, 0, s.NumTargets())
	for _, inj := range s.injections {
		popCoords := inj.pop.Coords()
		for _, j := range inj.indices {
			out = append(out, popCoords[j])
		}
	}
	return out
}

// Glyphs renders the scope as a direction arrow, its field-of-view
// footprint on the focal plane, and one marker per target.
func (s *Scope) Glyphs(displayUnit units.Length) viz.Glyphs {
	g := viz.Glyphs{
		Label:   s.Name(),
		Targets: viz.ScaleAll(s.TargetCoords(), displayUnit),
		Arrow: &viz.Arrow{
			Origin:    viz.Scale(s.location, displayUnit),
			Direction: s.direction,
		},
	}
	if s.focusDepth > 0 {
		center := s.location.Add(s.direction.MulScalar(s.focusDepth.Microns()))
		g.Footprint = &viz.Disc{
			Center: viz.Scale(center, displayUnit),
			Normal: s.direction,
			Radius: s.fovWidth.In(displayUnit) / 2,
		}
	}
	return g
}
