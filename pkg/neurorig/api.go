// Package neurorig is the embeddable API surface: it assembles an
// experiment from a config file, runs it, and persists the run, the
// device layouts and the recorded samples through the storage layer.
package neurorig

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"goki.dev/mat32/v2"

	"neurorig/internal/config"
	"neurorig/internal/device"
	"neurorig/internal/geom"
	"neurorig/internal/model"
	"neurorig/internal/scope"
	"neurorig/internal/sim"
	"neurorig/internal/storage"
	"neurorig/internal/viz"
)

const (
	defaultDBPath = "neurorig.db"

	frameRecorderName = "frames"
)

type Options struct {
	StoreKind string
	DBPath    string
}

type Client struct {
	store storage.Store
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

type RunSummary struct {
	RunID      string
	Experiment string
	Seed       int64
	Steps      int
	Devices    []string
}

// Run assembles the experiment, steps the engine to completion, and
// persists the run record, device layouts and per-device recordings.
// A zero seed is replaced with a clock seed so the stored run remains
// replayable.
func (c *Client) Run(ctx context.Context, exp *config.Experiment) (RunSummary, error) {
	if exp == nil {
		return RunSummary{}, errors.New("nil experiment")
	}
	if err := exp.Validate(); err != nil {
		return RunSummary{}, err
	}

	seed := exp.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	r, err := buildRig(exp, rng)
	if err != nil {
		return RunSummary{}, err
	}
	if err := r.engine.Run(ctx, exp.Steps); err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", exp.Name, err)
	}

	runID := uuid.NewString()
	run := model.Run{
		VersionedRecord: storage.Versioned(),
		ID:              runID,
		Experiment:      exp.Name,
		Seed:            seed,
		Steps:           exp.Steps,
		CreatedAt:       time.Now().Unix(),
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveLayouts(ctx, runID, r.layouts()); err != nil {
		return RunSummary{}, fmt.Errorf("save layouts: %w", err)
	}

	recordings := recordingsFromFrames(runID, r.frames.Frames())
	devices := make([]string, 0, len(recordings))
	for _, rec := range recordings {
		if err := c.store.SaveRecording(ctx, rec); err != nil {
			return RunSummary{}, fmt.Errorf("save recording %s: %w", rec.Device, err)
		}
		devices = append(devices, rec.Device)
	}

	return RunSummary{
		RunID:      runID,
		Experiment: exp.Name,
		Seed:       seed,
		Steps:      exp.Steps,
		Devices:    devices,
	}, nil
}

func (c *Client) Runs(ctx context.Context) ([]model.Run, error) {
	return c.store.ListRuns(ctx)
}

func (c *Client) GetRun(ctx context.Context, runID string) (model.Run, bool, error) {
	return c.store.GetRun(ctx, runID)
}

func (c *Client) Layouts(ctx context.Context, runID string) ([]model.DeviceLayout, bool, error) {
	return c.store.GetLayouts(ctx, runID)
}

func (c *Client) Recordings(ctx context.Context, runID string) ([]model.Recording, error) {
	return c.store.ListRecordings(ctx, runID)
}

func (c *Client) Recording(ctx context.Context, runID, deviceName string) (model.Recording, bool, error) {
	return c.store.GetRecording(ctx, runID, deviceName)
}

type TargetSummary struct {
	Scope      string
	Population string
	Neurons    int
	Targets    int
	SigmaMin   float64
	SigmaMax   float64
}

// TargetReport answers "what would each scope see" without running or
// persisting anything: per scope and population, the number of targeted
// neurons and the noise range across them. Populations are placed with
// the experiment seed so the report matches a later run.
func TargetReport(exp *config.Experiment) ([]TargetSummary, error) {
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(exp.Seed))

	groups := make(map[string]*sim.Group, len(exp.Populations))
	for _, pc := range exp.Populations {
		groups[pc.Name] = sim.NewGroupInBox(pc.Name, pc.N, vec3(pc.Corner), vec3(pc.Size), rng)
	}

	var out []TargetSummary
	for _, sc := range exp.Scopes {
		for _, popName := range sc.Populations {
			s, err := buildScope(sc, rng)
			if err != nil {
				return nil, err
			}
			pop := groups[popName]
			if err := s.ConnectToPopulation(pop); err != nil {
				return nil, fmt.Errorf("scope %s targeting %s: %w", sc.Name, popName, err)
			}

			summary := TargetSummary{
				Scope:      sc.Name,
				Population: popName,
				Neurons:    pop.N(),
				Targets:    s.NumTargets(),
			}
			if sigma := s.Sigma(); len(sigma) > 0 {
				summary.SigmaMin = math.Inf(1)
				for _, v := range sigma {
					summary.SigmaMin = math.Min(summary.SigmaMin, v)
					summary.SigmaMax = math.Max(summary.SigmaMax, v)
				}
			}
			out = append(out, summary)
		}
	}
	return out, nil
}

// rig is one assembled experiment: an engine with populations and devices
// injected, plus handles for layout export and frame capture.
type rig struct {
	engine *sim.Engine
	probes []*device.Probe
	scopes []*scope.Scope
	frames *viz.FrameRecorder
}

func buildRig(exp *config.Experiment, rng *rand.Rand) (*rig, error) {
	eng := sim.New()

	groups := make(map[string]*sim.Group, len(exp.Populations))
	for _, pc := range exp.Populations {
		g := sim.NewGroupInBox(pc.Name, pc.N, vec3(pc.Corner), vec3(pc.Size), rng)
		if err := eng.AddPopulation(g); err != nil {
			return nil, err
		}
		groups[pc.Name] = g
	}
	popsFor := func(names []string) []sim.Population {
		pops := make([]sim.Population, len(names))
		for i, name := range names {
			pops[i] = groups[name]
		}
		return pops
	}

	r := &rig{engine: eng}

	for _, pc := range exp.Probes {
		contacts, err := pc.Array.Coords()
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", pc.Name, err)
		}
		noise := device.NewNoiseFloor("noise", pc.NoiseSigma, rng)
		probe, err := device.NewProbe(pc.Name, contacts, noise)
		if err != nil {
			return nil, err
		}
		if err := eng.Inject(probe, popsFor(pc.Populations)...); err != nil {
			return nil, err
		}
		r.probes = append(r.probes, probe)
	}

	for _, sc := range exp.Scopes {
		s, err := buildScope(sc, rng)
		if err != nil {
			return nil, err
		}
		if err := eng.Inject(s, popsFor(sc.Populations)...); err != nil {
			return nil, err
		}
		r.scopes = append(r.scopes, s)
	}

	for _, stc := range exp.Stimulators {
		stim := device.NewStateVariableSetter(stc.Name, stc.Variable, device.UniformDrive{Gain: stc.Gain})
		if err := eng.Inject(stim, popsFor(stc.Populations)...); err != nil {
			return nil, err
		}
		// drive at unit control every step so the gain lands in the
		// state variable before recorders read it
		eng.OnTick(1, func(int) error { return stim.Update(1) })
	}

	frames := viz.NewFrameRecorder(frameRecorderName)
	frames.RecordEvery(exp.RecordEvery)
	if err := eng.Inject(frames); err != nil {
		return nil, err
	}
	r.frames = frames

	return r, nil
}

func buildScope(sc config.ScopeConfig, rng *rand.Rand) (*scope.Scope, error) {
	sensor, err := buildSensor(sc.Sensor)
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", sc.Name, err)
	}
	fov, err := sc.FOV()
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", sc.Name, err)
	}
	focus, err := sc.Focus()
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", sc.Name, err)
	}
	radius, err := sc.Radius()
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", sc.Name, err)
	}
	return scope.NewScope(sc.Name, sensor, scope.Config{
		FOVWidth:     fov,
		FocusDepth:   focus,
		Location:     vec3(sc.Location),
		Direction:    vec3(sc.Direction),
		TargetRadius: radius,
		SNRCutoff:    sc.SNRCutoff,
		Rand:         rng,
	})
}

func buildSensor(sc config.SensorConfig) (scope.Sensor, error) {
	mode, err := scope.ParseSensingMode(sc.Mode)
	if err != nil {
		return nil, err
	}
	switch sc.Kind {
	case "", "state_variable":
		if sc.Variable == "" {
			return nil, fmt.Errorf("sensor %s reads no state variable", sc.Name)
		}
		return scope.NewStateVariableSensor(sc.Name, sc.Variable, mode, sc.SigmaNoise, sc.SpikeAmplitude), nil
	case "static":
		return scope.NewStaticSensor(sc.Name, mode, sc.SigmaNoise, sc.SpikeAmplitude), nil
	default:
		return nil, fmt.Errorf("unknown sensor kind: %s", sc.Kind)
	}
}

func (r *rig) layouts() []model.DeviceLayout {
	out := make([]model.DeviceLayout, 0, len(r.probes)+len(r.scopes))
	for _, p := range r.probes {
		out = append(out, model.DeviceLayout{
			VersionedRecord: storage.Versioned(),
			Device:          p.Name(),
			Kind:            "probe",
			Coords:          coordTriples(p.Contacts()),
		})
	}
	for _, s := range r.scopes {
		out = append(out, model.DeviceLayout{
			VersionedRecord: storage.Versioned(),
			Device:          s.Name(),
			Kind:            "scope",
			Coords:          coordTriples(s.TargetCoords()),
		})
	}
	return out
}

func recordingsFromFrames(runID string, frames []viz.Frame) []model.Recording {
	byDevice := make(map[string]*model.Recording)
	for _, f := range frames {
		for name, value := range f.Values {
			sample, ok := sampleVector(value)
			if !ok {
				continue
			}
			rec, exists := byDevice[name]
			if !exists {
				rec = &model.Recording{
					VersionedRecord: storage.Versioned(),
					RunID:           runID,
					Device:          name,
				}
				byDevice[name] = rec
			}
			rec.Steps = append(rec.Steps, f.Step)
			rec.Samples = append(rec.Samples, sample)
		}
	}

	out := make([]model.Recording, 0, len(byDevice))
	for _, rec := range byDevice {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}

// sampleVector flattens one device reading into a sample row. Probe state
// is a per-signal map; signals concatenate in name order so the column
// layout is stable across frames.
func sampleVector(v any) ([]float64, bool) {
	switch x := v.(type) {
	case []float64:
		return append([]float64(nil), x...), true
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := []float64{}
		for _, k := range keys {
			part, ok := sampleVector(x[k])
			if !ok {
				return nil, false
			}
			out = append(out, part...)
		}
		return out, true
	default:
		return nil, false
	}
}

func coordTriples(coords geom.Coords) [][3]float32 {
	out := make([][3]float32, len(coords))
	for i, c := range coords {
		out[i] = [3]float32{c.X, c.Y, c.Z}
	}
	return out
}

func vec3(v [3]float32) mat32.Vec3 {
	return mat32.Vec3{X: v[0], Y: v[1], Z: v[2]}
}
