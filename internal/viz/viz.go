// Package viz defines the data contract devices supply to a renderer:
// geometric glyphs in a caller-chosen display unit, and a frame recorder
// that snapshots device readings over a run. Actual drawing is out of
// scope; everything here is plain data.
package viz

import (
	"goki.dev/mat32/v2"

	"neurorig/internal/units"
)

// Arrow marks a device location and pointing direction.
type Arrow struct {
	Origin    mat32.Vec3 `json:"origin"`
	Direction mat32.Vec3 `json:"direction"`
}

// Disc is a circular footprint on a plane, e.g. a field of view on the
// focal plane.
type Disc struct {
	Center mat32.Vec3 `json:"center"`
	Normal mat32.Vec3 `json:"normal"`
	Radius float32    `json:"radius"`
}

// Glyphs is one device's plottable geometry. All positions and radii are
// expressed in the display unit passed to Plottable.Glyphs.
type Glyphs struct {
	Label     string       `json:"label"`
	Markers   []mat32.Vec3 `json:"markers,omitempty"`
	Targets   []mat32.Vec3 `json:"targets,omitempty"`
	Arrow     *Arrow       `json:"arrow,omitempty"`
	Footprint *Disc        `json:"footprint,omitempty"`
}

// Plottable is the structural capability a renderer looks for on devices.
type Plottable interface {
	Glyphs(displayUnit units.Length) Glyphs
}

// Scale converts a micron-valued point into the display unit.
func Scale(p mat32.Vec3, displayUnit units.Length) mat32.Vec3 {
	return p.DivScalar(displayUnit.Microns())
}

// ScaleAll converts a micron-valued point set into the display unit.
func ScaleAll(ps []mat32.Vec3, displayUnit units.Length) []mat32.Vec3 {
	out := make([]mat32.Vec3, len(ps))
	for i, p := range ps {
		out[i] = Scale(p, displayUnit)
	}
	return out
}
