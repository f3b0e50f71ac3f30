package neurorig

import (
	"context"
	"reflect"
	"testing"

	"neurorig/internal/config"
	"neurorig/internal/viz"
)

func testExperiment() *config.Experiment {
	exp := config.Default()
	exp.Name = "api-test"
	exp.Seed = 42
	exp.Steps = 5
	exp.Populations = []config.PopulationConfig{{
		Name:   "exc",
		N:      20,
		Corner: [3]float32{0, 0, 0},
		Size:   [3]float32{100, 100, 100},
	}}
	exp.Probes = []config.ProbeConfig{{
		Name: "shank0",
		Array: config.ArrayConfig{
			Kind:      "linear",
			Length:    "100um",
			Channels:  4,
			Direction: [3]float32{0, 0, 1},
		},
		NoiseSigma:  0.1,
		Populations: []string{"exc"},
	}}
	exp.Scopes = []config.ScopeConfig{{
		Name: "scope0",
		Sensor: config.SensorConfig{
			Name:     "gcamp",
			Kind:     "state_variable",
			Variable: "drive",
			Mode:     "volume",
		},
		FOVWidth:    "200um",
		FocusDepth:  "0um", // explicit mode: every neuron is a target
		Direction:   [3]float32{0, 0, 1},
		Populations: []string{"exc"},
	}}
	exp.Stimulators = []config.StimulatorConfig{{
		Name:        "drive0",
		Variable:    "drive",
		Gain:        2,
		Populations: []string{"exc"},
	}}
	return exp
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return client
}

func TestClientRunPersistsArtifacts(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, testExperiment())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Seed != 42 || summary.Steps != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !reflect.DeepEqual(summary.Devices, []string{"scope0", "shank0"}) {
		t.Fatalf("unexpected recorded devices: %v", summary.Devices)
	}

	run, ok, err := client.GetRun(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || run.Experiment != "api-test" {
		t.Fatalf("unexpected persisted run: %+v", run)
	}

	layouts, ok, err := client.Layouts(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("get layouts: %v", err)
	}
	if !ok || len(layouts) != 2 {
		t.Fatalf("unexpected layouts: %+v", layouts)
	}
	if layouts[0].Device != "shank0" || layouts[0].Kind != "probe" || len(layouts[0].Coords) != 4 {
		t.Fatalf("unexpected probe layout: %+v", layouts[0])
	}
	if layouts[1].Device != "scope0" || layouts[1].Kind != "scope" || len(layouts[1].Coords) != 20 {
		t.Fatalf("unexpected scope layout: %+v", layouts[1])
	}

	recs, err := client.Recordings(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("list recordings: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(recs))
	}
	for _, rec := range recs {
		if len(rec.Steps) != 5 || len(rec.Samples) != 5 {
			t.Fatalf("recording %s: expected 5 captured steps, got %d", rec.Device, len(rec.Steps))
		}
		if rec.Steps[0] != 1 || rec.Steps[4] != 5 {
			t.Fatalf("recording %s: unexpected steps: %v", rec.Device, rec.Steps)
		}
	}
}

func TestClientRunAppliesStimulatorDrive(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, testExperiment())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	rec, ok, err := client.Recording(ctx, summary.RunID, "scope0")
	if err != nil {
		t.Fatalf("get recording: %v", err)
	}
	if !ok {
		t.Fatal("expected scope recording")
	}
	// zero sensor noise: every sample is exactly the driven value
	for _, row := range rec.Samples {
		if len(row) != 20 {
			t.Fatalf("expected one sample per neuron, got %d", len(row))
		}
		for i, v := range row {
			if v != 2 {
				t.Fatalf("neuron %d: expected drive 2, got %v", i, v)
			}
		}
	}
}

func TestClientRunRecordEveryThinsFrames(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	exp := testExperiment()
	exp.Steps = 10
	exp.RecordEvery = 4

	summary, err := client.Run(ctx, exp)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	rec, ok, err := client.Recording(ctx, summary.RunID, "shank0")
	if err != nil {
		t.Fatalf("get recording: %v", err)
	}
	if !ok {
		t.Fatal("expected probe recording")
	}
	if !reflect.DeepEqual(rec.Steps, []int{4, 8}) {
		t.Fatalf("unexpected captured steps: %v", rec.Steps)
	}
}

func TestClientRunSeededLayoutsAreReproducible(t *testing.T) {
	ctx := context.Background()

	first := newTestClient(t)
	second := newTestClient(t)

	s1, err := first.Run(ctx, testExperiment())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	s2, err := second.Run(ctx, testExperiment())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	l1, _, err := first.Layouts(ctx, s1.RunID)
	if err != nil {
		t.Fatalf("first layouts: %v", err)
	}
	l2, _, err := second.Layouts(ctx, s2.RunID)
	if err != nil {
		t.Fatalf("second layouts: %v", err)
	}
	if !reflect.DeepEqual(l1, l2) {
		t.Fatal("expected identical layouts for identical seeds")
	}
}

func TestClientRunRejectsInvalidExperiment(t *testing.T) {
	client := newTestClient(t)

	exp := testExperiment()
	exp.Probes[0].Populations = []string{"missing"}

	if _, err := client.Run(context.Background(), exp); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestTargetReportExplicitMode(t *testing.T) {
	report, err := TargetReport(testExperiment())
	if err != nil {
		t.Fatalf("target report: %v", err)
	}
	if len(report) != 1 {
		t.Fatalf("expected one scope/population pair, got %d", len(report))
	}
	r := report[0]
	if r.Scope != "scope0" || r.Population != "exc" {
		t.Fatalf("unexpected report row: %+v", r)
	}
	if r.Neurons != 20 || r.Targets != 20 {
		t.Fatalf("explicit mode should target every neuron: %+v", r)
	}
	if r.SigmaMin != 0 || r.SigmaMax != 0 {
		t.Fatalf("zero-noise sensor should report zero sigma: %+v", r)
	}
}

func TestTargetReportFocalGeometry(t *testing.T) {
	exp := testExperiment()
	exp.Populations[0].N = 200
	exp.Scopes[0].FocusDepth = "50um"
	exp.Scopes[0].Sensor.SigmaNoise = 0.1
	exp.Scopes[0].Sensor.SpikeAmplitude = 1000 // keep every visible neuron

	report, err := TargetReport(exp)
	if err != nil {
		t.Fatalf("target report: %v", err)
	}
	r := report[0]
	if r.Targets < 1 || r.Targets > r.Neurons {
		t.Fatalf("implausible target count: %+v", r)
	}
	if r.SigmaMin <= 0 || r.SigmaMax < r.SigmaMin {
		t.Fatalf("implausible sigma range: %+v", r)
	}
}

func TestRecordingsFromFramesFlattensProbeSignals(t *testing.T) {
	frames := []viz.Frame{
		{Step: 1, Values: map[string]any{
			"probe0": map[string]any{
				"b": []float64{3, 4},
				"a": []float64{1, 2},
			},
			"scope0":  []float64{9},
			"ignored": "not a sample",
		}},
	}

	recs := recordingsFromFrames("run-1", frames)
	if len(recs) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(recs))
	}
	if recs[0].Device != "probe0" || recs[1].Device != "scope0" {
		t.Fatalf("unexpected device order: %+v", recs)
	}
	// signal columns concatenate in name order
	if !reflect.DeepEqual(recs[0].Samples[0], []float64{1, 2, 3, 4}) {
		t.Fatalf("unexpected flattened sample: %v", recs[0].Samples[0])
	}
}
