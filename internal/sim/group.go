package sim

import (
	"fmt"
	"math/rand"

	"goki.dev/mat32/v2"

	"neurorig/internal/geom"
	"neurorig/internal/units"
)

// Group is an in-memory Population with named per-neuron state variables,
// enough to host devices in tests and reference experiments.
type Group struct {
	name   string
	coords geom.Coords
	vars   map[string][]float64
}

func NewGroup(name string, coords geom.Coords) *Group {
	return &Group{
		name:   name,
		coords: coords,
		vars:   make(map[string][]float64),
	}
}

// NewGroupInBox places n neurons uniformly at random inside the rectangular
// prism spanning corner to corner+size, using the given generator.
func NewGroupInBox(name string, n int, corner mat32.Vec3, size mat32.Vec3, rng *rand.Rand) *Group {
	coords := make(geom.Coords, n)
	for i := range coords {
		coords[i] = mat32.Vec3{
			X: corner.X + size.X*rng.Float32(),
			Y: corner.Y + size.Y*rng.Float32(),
			Z: corner.Z + size.Z*rng.Float32(),
		}
	}
	return NewGroup(name, coords)
}

func (g *Group) Name() string        { return g.name }
func (g *Group) N() int              { return len(g.coords) }
func (g *Group) Coords() geom.Coords { return g.coords }

// SetStateVariable writes values at the given neuron indices. Index and
// value slices must be the same length.
func (g *Group) SetStateVariable(name string, idx []int, values []float64) error {
	if len(idx) != len(values) {
		return fmt.Errorf("state variable %q: %d indices for %d values", name, len(idx), len(values))
	}
	v, ok := g.vars[name]
	if !ok {
		v = make([]float64, g.N())
		g.vars[name] = v
	}
	for i, j := range idx {
		if j < 0 || j >= g.N() {
			return fmt.Errorf("state variable %q: index %d out of range [0,%d)", name, j, g.N())
		}
		v[j] = values[i]
	}
	return nil
}

// StateVariable returns a copy of the named per-neuron variable, or a zero
// vector if it was never set.
func (g *Group) StateVariable(name string) []float64 {
	v, ok := g.vars[name]
	if !ok {
		return make([]float64, g.N())
	}
	return append([]float64(nil), v...)
}

// Span returns the bounding box diagonal of the group, handy for choosing
// display units.
func (g *Group) Span() units.Length {
	if len(g.coords) == 0 {
		return 0
	}
	min, max := g.coords[0], g.coords[0]
	for _, c := range g.coords[1:] {
		min.SetMin(c)
		max.SetMax(c)
	}
	return units.Microns(max.Sub(min).Length())
}
