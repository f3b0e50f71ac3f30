package viz

import (
	"testing"

	"goki.dev/mat32/v2"

	"neurorig/internal/units"
)

func TestScaleConvertsMicronsToDisplayUnit(t *testing.T) {
	p := mat32.Vec3{X: 500, Y: -1000, Z: 250}

	mm := Scale(p, units.Millimeter)
	if mm.X != 0.5 || mm.Y != -1 || mm.Z != 0.25 {
		t.Fatalf("unexpected mm point: %+v", mm)
	}

	um := Scale(p, units.Micrometer)
	if um != p {
		t.Fatalf("micron display unit should be identity, got: %+v", um)
	}
}

func TestScaleAllPreservesOrder(t *testing.T) {
	ps := []mat32.Vec3{{Z: 1000}, {Z: 2000}, {Z: 3000}}

	out := ScaleAll(ps, units.Millimeter)
	if len(out) != 3 {
		t.Fatalf("unexpected length: %d", len(out))
	}
	for i, want := range []float32{1, 2, 3} {
		if out[i].Z != want {
			t.Fatalf("point %d: got z=%v want %v", i, out[i].Z, want)
		}
	}
	if ps[0].Z != 1000 {
		t.Fatal("input slice was mutated")
	}
}
