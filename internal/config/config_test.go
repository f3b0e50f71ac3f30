package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"neurorig/internal/units"
)

const sampleExperiment = `
name: demo
seed: 42
steps: 200
record_every: 5

populations:
  - name: exc
    n: 100
    corner: [0, 0, 0]
    size: [400, 400, 400]

probes:
  - name: shank0
    array:
      kind: linear
      length: 1mm
      channels: 4
      start: [0, 0, 0]
      direction: [0, 0, 1]
    noise_sigma: 0.1
    populations: [exc]

scopes:
  - name: scope0
    sensor:
      name: gcamp
      kind: state_variable
      variable: calcium
      mode: volume
      sigma_noise: 0.2
      spike_amplitude: 1.5
    fov_width: 200um
    focus_depth: 100um
    location: [0, 0, 0]
    direction: [0, 0, 1]
    target_radius: 10um
    snr_cutoff: 2
    populations: [exc]

stimulators:
  - name: drive0
    variable: drive
    gain: 0.5
    populations: [exc]
`

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	if err := os.WriteFile(path, []byte(sampleExperiment), 0600); err != nil {
		t.Fatalf("write experiment file: %v", err)
	}

	exp, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if exp.Name != "demo" || exp.Seed != 42 || exp.Steps != 200 || exp.RecordEvery != 5 {
		t.Fatalf("unexpected run settings: %+v", exp)
	}
	if len(exp.Populations) != 1 || exp.Populations[0].N != 100 {
		t.Fatalf("unexpected populations: %+v", exp.Populations)
	}
	if len(exp.Probes) != 1 || exp.Probes[0].Array.Kind != "linear" {
		t.Fatalf("unexpected probes: %+v", exp.Probes)
	}
	if len(exp.Scopes) != 1 || exp.Scopes[0].Sensor.Variable != "calcium" {
		t.Fatalf("unexpected scopes: %+v", exp.Scopes)
	}
	if len(exp.Stimulators) != 1 || exp.Stimulators[0].Gain != 0.5 {
		t.Fatalf("unexpected stimulators: %+v", exp.Stimulators)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	exp, err := Parse([]byte("name: bare\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if exp.Steps != 100 {
		t.Errorf("expected default steps 100, got %d", exp.Steps)
	}
	if exp.RecordEvery != 1 {
		t.Errorf("expected default record_every 1, got %d", exp.RecordEvery)
	}
}

func TestValidateRejectsUnknownPopulationReference(t *testing.T) {
	exp := Default()
	exp.Populations = []PopulationConfig{{Name: "exc", N: 10}}
	exp.Probes = []ProbeConfig{{
		Name:        "shank0",
		Array:       ArrayConfig{Kind: "linear", Length: "1mm", Channels: 4, Direction: [3]float32{0, 0, 1}},
		Populations: []string{"inh"},
	}}

	err := exp.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown population") {
		t.Fatalf("expected unknown population error, got: %v", err)
	}
}

func TestValidateRejectsDuplicateDeviceNames(t *testing.T) {
	exp := Default()
	exp.Populations = []PopulationConfig{{Name: "exc", N: 10}}
	exp.Probes = []ProbeConfig{{Name: "dev0"}}
	exp.Scopes = []ScopeConfig{{Name: "dev0"}}

	err := exp.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate device name") {
		t.Fatalf("expected duplicate device error, got: %v", err)
	}
}

func TestValidateRejectsNonPositiveSteps(t *testing.T) {
	exp := Default()
	exp.Steps = 0

	if err := exp.Validate(); err == nil {
		t.Fatal("expected steps validation error")
	}
}

func TestArrayConfigCoordsLinear(t *testing.T) {
	a := ArrayConfig{
		Kind:      "linear",
		Length:    "1mm",
		Channels:  4,
		Direction: [3]float32{0, 0, 1},
	}

	contacts, err := a.Coords()
	if err != nil {
		t.Fatalf("coords: %v", err)
	}
	if contacts.Len() != 4 {
		t.Fatalf("expected 4 contacts, got %d", contacts.Len())
	}
	if contacts[3].Z != 1000 {
		t.Fatalf("expected deepest contact at 1000 um, got %v", contacts[3].Z)
	}
}

func TestArrayConfigCoordsMultiShank(t *testing.T) {
	a := ArrayConfig{
		Kind:       "linear",
		Length:     "100um",
		Channels:   2,
		Direction:  [3]float32{0, 0, 1},
		Shanks:     3,
		ShankPitch: [3]float32{50, 0, 0},
	}

	contacts, err := a.Coords()
	if err != nil {
		t.Fatalf("coords: %v", err)
	}
	if contacts.Len() != 6 {
		t.Fatalf("expected 6 contacts, got %d", contacts.Len())
	}
	// tiles for the first contact come before any for the second
	if contacts[1].X != 50 || contacts[1].Z != 0 {
		t.Fatalf("unexpected second contact: %+v", contacts[1])
	}
	if contacts[3].Z != 100 {
		t.Fatalf("unexpected fourth contact: %+v", contacts[3])
	}
}

func TestArrayConfigCoordsUnknownKind(t *testing.T) {
	a := ArrayConfig{Kind: "spiral", Length: "1mm", Channels: 4}
	if _, err := a.Coords(); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func TestArrayConfigCoordsBadLengthUnit(t *testing.T) {
	a := ArrayConfig{Kind: "linear", Length: "1kg", Channels: 4, Direction: [3]float32{0, 0, 1}}
	_, err := a.Coords()
	if err == nil {
		t.Fatal("expected unit parse error")
	}
}

func TestScopeConfigLengthAccessors(t *testing.T) {
	s := ScopeConfig{FOVWidth: "200um", FocusDepth: "0.1mm"}

	fov, err := s.FOV()
	if err != nil {
		t.Fatalf("fov: %v", err)
	}
	if fov != 200*units.Micrometer {
		t.Fatalf("unexpected fov: %v", fov)
	}

	focus, err := s.Focus()
	if err != nil {
		t.Fatalf("focus: %v", err)
	}
	if focus != 100*units.Micrometer {
		t.Fatalf("unexpected focus: %v", focus)
	}

	radius, err := s.Radius()
	if err != nil {
		t.Fatalf("radius: %v", err)
	}
	if radius != 0 {
		t.Fatalf("expected zero radius when unset, got %v", radius)
	}
}
