// Package config provides YAML experiment file loading for neurorig.
// An experiment file declares the neuron populations, the recording and
// stimulation devices, and the run settings; loading resolves unit
// strings like "1.2mm" into canonical micrometers.
package config

import (
	"fmt"
	"os"

	"goki.dev/mat32/v2"
	"gopkg.in/yaml.v3"

	"neurorig/internal/geom"
	"neurorig/internal/units"
)

// Experiment is the root of an experiment file.
type Experiment struct {
	// Name labels the run in storage.
	Name string `yaml:"name"`

	// Seed drives population placement and measurement noise. Zero means
	// seed from the clock.
	Seed int64 `yaml:"seed"`

	// Steps is the number of engine ticks to run.
	Steps int `yaml:"steps"`

	// RecordEvery thins frame capture; 0 or 1 captures every step.
	RecordEvery int `yaml:"record_every"`

	Populations []PopulationConfig `yaml:"populations"`
	Probes      []ProbeConfig      `yaml:"probes"`
	Scopes      []ScopeConfig      `yaml:"scopes"`
	Stimulators []StimulatorConfig `yaml:"stimulators"`
}

// PopulationConfig places N neurons uniformly in an axis-aligned box.
// Corner and Size are micron triplets.
type PopulationConfig struct {
	Name   string     `yaml:"name"`
	N      int        `yaml:"n"`
	Corner [3]float32 `yaml:"corner"`
	Size   [3]float32 `yaml:"size"`
}

// ArrayConfig describes one electrode array geometry. Kind selects the
// generator; Length and the kind-specific spacings are unit strings.
type ArrayConfig struct {
	Kind      string     `yaml:"kind"` // linear, tetrode, poly2 or poly3
	Length    string     `yaml:"length"`
	Channels  int        `yaml:"channels"`
	Start     [3]float32 `yaml:"start"`
	Direction [3]float32 `yaml:"direction"`

	// TetrodeWidth applies to tetrode arrays; empty uses the default.
	TetrodeWidth string `yaml:"tetrode_width,omitempty"`

	// IntercolSpace applies to poly2 and poly3 arrays.
	IntercolSpace string `yaml:"intercol_space,omitempty"`

	// Shanks > 1 tiles the array; ShankPitch is the offset between
	// adjacent shanks, a micron triplet.
	Shanks     int        `yaml:"shanks,omitempty"`
	ShankPitch [3]float32 `yaml:"shank_pitch,omitempty"`
}

// ProbeConfig is one recording probe: an array plus the populations it
// listens to and the per-contact noise floor.
type ProbeConfig struct {
	Name        string      `yaml:"name"`
	Array       ArrayConfig `yaml:"array"`
	NoiseSigma  float64     `yaml:"noise_sigma"`
	Populations []string    `yaml:"populations"`
}

// SensorConfig describes the indicator a scope images through.
type SensorConfig struct {
	Name string `yaml:"name"`

	// Kind is "state_variable" (read a population variable) or "static".
	Kind string `yaml:"kind"`

	// Variable names the population state variable for state_variable
	// sensors.
	Variable string `yaml:"variable,omitempty"`

	// Mode is the sensing mode, "volume" or "surface".
	Mode string `yaml:"mode"`

	SigmaNoise float64 `yaml:"sigma_noise"`

	// SpikeAmplitude of 0 means the sensor defines no amplitude and the
	// SNR cutoff cannot be applied.
	SpikeAmplitude float64 `yaml:"spike_amplitude,omitempty"`
}

// ScopeConfig is one imaging scope. Scalar lengths are unit strings;
// Location is a micron triplet.
type ScopeConfig struct {
	Name         string       `yaml:"name"`
	Sensor       SensorConfig `yaml:"sensor"`
	FOVWidth     string       `yaml:"fov_width"`
	FocusDepth   string       `yaml:"focus_depth"`
	Location     [3]float32   `yaml:"location"`
	Direction    [3]float32   `yaml:"direction"`
	TargetRadius string       `yaml:"target_radius,omitempty"`
	SNRCutoff    float64      `yaml:"snr_cutoff,omitempty"`
	Populations  []string     `yaml:"populations"`
}

// StimulatorConfig is one drive device writing a population state
// variable.
type StimulatorConfig struct {
	Name        string   `yaml:"name"`
	Variable    string   `yaml:"variable"`
	Gain        float64  `yaml:"gain"`
	Populations []string `yaml:"populations"`
}

// Default returns an Experiment with run settings filled in.
func Default() *Experiment {
	return &Experiment{
		Name:        "experiment",
		Steps:       100,
		RecordEvery: 1,
	}
}

// LoadFromFile loads an experiment from a YAML file on top of defaults.
func LoadFromFile(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment file: %w", err)
	}
	return Parse(data)
}

// Parse decodes experiment YAML on top of defaults and validates it.
func Parse(data []byte) (*Experiment, error) {
	exp := Default()
	if err := yaml.Unmarshal(data, exp); err != nil {
		return nil, fmt.Errorf("parsing experiment file: %w", err)
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

// Validate checks cross-field consistency: run settings, device name
// uniqueness, and that every device references a declared population.
func (e *Experiment) Validate() error {
	if e.Steps < 1 {
		return fmt.Errorf("steps must be positive, got %d", e.Steps)
	}
	if e.RecordEvery < 0 {
		return fmt.Errorf("record_every must be non-negative, got %d", e.RecordEvery)
	}

	pops := make(map[string]bool, len(e.Populations))
	for _, p := range e.Populations {
		if p.Name == "" {
			return fmt.Errorf("population with %d neurons has no name", p.N)
		}
		if pops[p.Name] {
			return fmt.Errorf("duplicate population name: %s", p.Name)
		}
		if p.N < 1 {
			return fmt.Errorf("population %s must have at least one neuron", p.Name)
		}
		pops[p.Name] = true
	}

	devices := make(map[string]bool)
	checkDevice := func(kind, name string, popRefs []string) error {
		if name == "" {
			return fmt.Errorf("%s device has no name", kind)
		}
		if devices[name] {
			return fmt.Errorf("duplicate device name: %s", name)
		}
		devices[name] = true
		for _, ref := range popRefs {
			if !pops[ref] {
				return fmt.Errorf("%s %s references unknown population %q", kind, name, ref)
			}
		}
		return nil
	}

	for _, p := range e.Probes {
		if err := checkDevice("probe", p.Name, p.Populations); err != nil {
			return err
		}
	}
	for _, s := range e.Scopes {
		if err := checkDevice("scope", s.Name, s.Populations); err != nil {
			return err
		}
	}
	for _, s := range e.Stimulators {
		if err := checkDevice("stimulator", s.Name, s.Populations); err != nil {
			return err
		}
		if s.Variable == "" {
			return fmt.Errorf("stimulator %s has no state variable", s.Name)
		}
	}
	return nil
}

func vec3(v [3]float32) mat32.Vec3 {
	return mat32.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func parseLength(field, s string) (units.Length, error) {
	l, err := units.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return l, nil
}

// Coords generates the array's contact coordinates, applying the shank
// tiling when configured.
func (a ArrayConfig) Coords() (geom.Coords, error) {
	length, err := parseLength("array length", a.Length)
	if err != nil {
		return nil, err
	}
	start := vec3(a.Start)
	direction := vec3(a.Direction)

	var contacts geom.Coords
	switch a.Kind {
	case "linear":
		contacts, err = geom.LinearShank(length, a.Channels, start, direction)
	case "tetrode":
		width := geom.DefaultTetrodeWidth
		if a.TetrodeWidth != "" {
			width, err = parseLength("tetrode width", a.TetrodeWidth)
			if err != nil {
				return nil, err
			}
		}
		contacts, err = geom.TetrodeShank(length, a.Channels, start, direction, width)
	case "poly2", "poly3":
		var space units.Length
		space, err = parseLength("intercolumn space", a.IntercolSpace)
		if err != nil {
			return nil, err
		}
		if a.Kind == "poly2" {
			contacts, err = geom.Poly2Shank(length, a.Channels, space, start, direction)
		} else {
			contacts, err = geom.Poly3Shank(length, a.Channels, space, start, direction)
		}
	default:
		return nil, fmt.Errorf("unknown array kind: %s", a.Kind)
	}
	if err != nil {
		return nil, err
	}

	if a.Shanks > 1 {
		// pitch is the spacing between adjacent shanks; Tile wants the
		// total span
		span := vec3(a.ShankPitch).MulScalar(float32(a.Shanks - 1))
		contacts, err = geom.Tile(contacts, a.Shanks, span)
		if err != nil {
			return nil, err
		}
	}
	return contacts, nil
}

// FOV resolves the scope's field-of-view width.
func (s ScopeConfig) FOV() (units.Length, error) {
	return parseLength("fov width", s.FOVWidth)
}

// Focus resolves the scope's focus depth.
func (s ScopeConfig) Focus() (units.Length, error) {
	return parseLength("focus depth", s.FocusDepth)
}

// Radius resolves the visibility radius; empty means the scope default.
func (s ScopeConfig) Radius() (units.Length, error) {
	if s.TargetRadius == "" {
		return 0, nil
	}
	return parseLength("target radius", s.TargetRadius)
}
