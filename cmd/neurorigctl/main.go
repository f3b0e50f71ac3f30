package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"neurorig/internal/config"
	"neurorig/internal/storage"
	"neurorig/internal/units"
	rigapi "neurorig/pkg/neurorig"
)

const defaultDBPath = "neurorig.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "layout":
		return runLayout(ctx, args[1:])
	case "targets":
		return runTargets(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "layouts":
		return runLayouts(ctx, args[1:])
	case "recordings":
		return runRecordings(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := rigapi.New(rigapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runLayout(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("layout", flag.ContinueOnError)
	kind := fs.String("kind", "linear", "array kind: linear|tetrode|poly2|poly3")
	length := fs.String("length", "1mm", "array length along the shank, e.g. 1mm or 500um")
	channels := fs.Int("channels", 32, "number of contacts")
	start := fs.String("start", "0,0,0", "shank start point in microns, x,y,z")
	direction := fs.String("direction", "0,0,1", "shank direction, x,y,z")
	tetrodeWidth := fs.String("tetrode-width", "", "tetrode bundle width, e.g. 25um")
	intercolSpace := fs.String("intercol-space", "50um", "intercolumn spacing for poly2/poly3")
	shanks := fs.Int("shanks", 1, "number of tiled shanks")
	shankPitch := fs.String("shank-pitch", "0,0,0", "offset between shanks in microns, x,y,z")
	displayUnit := fs.String("unit", "um", "display unit for coordinates")
	jsonOut := fs.Bool("json", false, "emit coordinates as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	startV, err := parseTriplet(*start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	dirV, err := parseTriplet(*direction)
	if err != nil {
		return fmt.Errorf("direction: %w", err)
	}
	pitchV, err := parseTriplet(*shankPitch)
	if err != nil {
		return fmt.Errorf("shank-pitch: %w", err)
	}
	unit, err := units.Parse("1" + *displayUnit)
	if err != nil {
		return fmt.Errorf("unit: %w", err)
	}

	arr := config.ArrayConfig{
		Kind:          *kind,
		Length:        *length,
		Channels:      *channels,
		Start:         startV,
		Direction:     dirV,
		TetrodeWidth:  *tetrodeWidth,
		IntercolSpace: *intercolSpace,
		Shanks:        *shanks,
		ShankPitch:    pitchV,
	}
	contacts, err := arr.Coords()
	if err != nil {
		return err
	}

	if *jsonOut {
		type point struct {
			X float32 `json:"x"`
			Y float32 `json:"y"`
			Z float32 `json:"z"`
		}
		points := make([]point, contacts.Len())
		for i, c := range contacts {
			scaled := c.DivScalar(unit.Microns())
			points[i] = point{X: scaled.X, Y: scaled.Y, Z: scaled.Z}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	}

	fmt.Printf("%s array, %d contacts (%s):\n", *kind, contacts.Len(), *displayUnit)
	for i, c := range contacts {
		scaled := c.DivScalar(unit.Microns())
		fmt.Printf("%4d  %10.3f %10.3f %10.3f\n", i, scaled.X, scaled.Y, scaled.Z)
	}
	return nil
}

func runTargets(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("targets", flag.ContinueOnError)
	configPath := fs.String("config", "", "experiment file (YAML)")
	jsonOut := fs.Bool("json", false, "emit targeting report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return usageError("targets requires -config")
	}

	exp, err := config.LoadFromFile(*configPath)
	if err != nil {
		return err
	}
	report, err := rigapi.TargetReport(exp)
	if err != nil {
		return err
	}
	if len(report) == 0 {
		fmt.Println("no scopes configured")
		return nil
	}

	if *jsonOut {
		type reportItem struct {
			Scope      string  `json:"scope"`
			Population string  `json:"population"`
			Neurons    int     `json:"neurons"`
			Targets    int     `json:"targets"`
			SigmaMin   float64 `json:"sigma_min"`
			SigmaMax   float64 `json:"sigma_max"`
		}
		items := make([]reportItem, 0, len(report))
		for _, r := range report {
			items = append(items, reportItem(r))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, r := range report {
		fmt.Printf("scope=%s population=%s targets=%d/%d sigma=[%.4g, %.4g]\n",
			r.Scope, r.Population, r.Targets, r.Neurons, r.SigmaMin, r.SigmaMax)
	}
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "experiment file (YAML)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	seed := fs.Int64("seed", 0, "override the experiment seed")
	steps := fs.Int("steps", 0, "override the experiment step count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return usageError("run requires -config")
	}

	exp, err := config.LoadFromFile(*configPath)
	if err != nil {
		return err
	}
	if *seed != 0 {
		exp.Seed = *seed
	}
	if *steps != 0 {
		exp.Steps = *steps
	}

	client, err := rigapi.New(rigapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Run(ctx, exp)
	if err != nil {
		return err
	}
	fmt.Printf("run=%s experiment=%s seed=%d steps=%d devices=%s\n",
		summary.RunID, summary.Experiment, summary.Seed, summary.Steps,
		strings.Join(summary.Devices, ","))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := rigapi.New(rigapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	for _, r := range runs {
		fmt.Printf("run=%s experiment=%s seed=%d steps=%d created_at=%d\n",
			r.ID, r.Experiment, r.Seed, r.Steps, r.CreatedAt)
	}
	return nil
}

func runLayouts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("layouts", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	runID := fs.String("run", "", "run id")
	jsonOut := fs.Bool("json", false, "emit layouts as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("layouts requires -run")
	}

	client, err := rigapi.New(rigapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	layouts, ok, err := client.Layouts(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("no layouts for run %s\n", *runID)
		return nil
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(layouts)
	}
	for _, l := range layouts {
		fmt.Printf("device=%s kind=%s contacts=%d\n", l.Device, l.Kind, len(l.Coords))
	}
	return nil
}

func runRecordings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recordings", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	runID := fs.String("run", "", "run id")
	deviceName := fs.String("device", "", "dump one device's samples instead of the summary")
	jsonOut := fs.Bool("json", false, "emit recordings as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("recordings requires -run")
	}

	client, err := rigapi.New(rigapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	if *deviceName != "" {
		rec, ok, err := client.Recording(ctx, *runID, *deviceName)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no recording for run %s device %s", *runID, *deviceName)
		}
		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		for i, step := range rec.Steps {
			fmt.Printf("step=%d samples=%v\n", step, rec.Samples[i])
		}
		return nil
	}

	recs, err := client.Recordings(ctx, *runID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Printf("no recordings for run %s\n", *runID)
		return nil
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	for _, rec := range recs {
		width := 0
		if len(rec.Samples) > 0 {
			width = len(rec.Samples[0])
		}
		fmt.Printf("device=%s steps=%d channels=%d\n", rec.Device, len(rec.Steps), width)
	}
	return nil
}

func parseTriplet(s string) ([3]float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float32{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var out [3]float32
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return [3]float32{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: neurorigctl <init|layout|targets|run|runs|layouts|recordings> [flags]", msg)
}
