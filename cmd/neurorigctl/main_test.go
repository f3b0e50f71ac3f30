package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRequiresCommand(t *testing.T) {
	err := run(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "missing command") {
		t.Fatalf("expected usage error, got: %v", err)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected usage error, got: %v", err)
	}
}

func TestLayoutCommandGeneratesCoords(t *testing.T) {
	args := []string{
		"layout",
		"--kind", "linear",
		"--length", "1mm",
		"--channels", "4",
		"--json",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("layout command: %v", err)
	}
}

func TestLayoutCommandRejectsBadTriplet(t *testing.T) {
	args := []string{"layout", "--start", "1,2"}
	err := run(context.Background(), args)
	if err == nil || !strings.Contains(err.Error(), "x,y,z") {
		t.Fatalf("expected triplet error, got: %v", err)
	}
}

func TestRunAndTargetsCommandsFromConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "experiment.yaml")
	experiment := `
name: cli-test
seed: 7
steps: 3
populations:
  - name: exc
    n: 10
    corner: [0, 0, 0]
    size: [100, 100, 100]
scopes:
  - name: scope0
    sensor:
      name: probe-sensor
      kind: state_variable
      variable: drive
      mode: volume
    fov_width: 200um
    focus_depth: 0um
    direction: [0, 0, 1]
    populations: [exc]
stimulators:
  - name: drive0
    variable: drive
    gain: 1
    populations: [exc]
`
	if err := os.WriteFile(configPath, []byte(experiment), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := run(context.Background(), []string{"targets", "--config", configPath}); err != nil {
		t.Fatalf("targets command: %v", err)
	}
	if err := run(context.Background(), []string{"run", "--config", configPath, "--store", "memory"}); err != nil {
		t.Fatalf("run command: %v", err)
	}
}

func TestTargetsCommandRequiresConfig(t *testing.T) {
	err := run(context.Background(), []string{"targets"})
	if err == nil || !strings.Contains(err.Error(), "requires -config") {
		t.Fatalf("expected config-required error, got: %v", err)
	}
}

func TestParseTriplet(t *testing.T) {
	v, err := parseTriplet(" 1, -2.5, 3 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v != [3]float32{1, -2.5, 3} {
		t.Fatalf("unexpected triplet: %v", v)
	}
}
