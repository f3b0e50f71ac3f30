// Package scope implements optical targeting: which neurons a device can
// see given its placement and field of view, how out-of-focus geometry
// inflates noise, and how per-population targets aggregate into one
// observable reading.
package scope

import (
	"fmt"
	"math"

	"goki.dev/mat32/v2"

	"neurorig/internal/geom"
	"neurorig/internal/units"
)

// SensingMode selects how visible cross-section translates to signal:
// sensors reporting from the whole cell body scale with visible area,
// membrane-bound sensors with the visible circumference.
type SensingMode string

const (
	SensingVolume  SensingMode = "volume"
	SensingSurface SensingMode = "surface"
)

// ParseSensingMode validates a configured mode string. Anything outside
// the two defined modes is a configuration error, not a default.
func ParseSensingMode(s string) (SensingMode, error) {
	switch SensingMode(s) {
	case SensingVolume, SensingSurface:
		return SensingMode(s), nil
	default:
		return "", fmt.Errorf("invalid sensing mode %q (want %q or %q)", s, SensingVolume, SensingSurface)
	}
}

// PlaneTargets holds the neurons visible to a device, position-aligned:
// index i in all three slices refers to the same neuron.
type PlaneTargets struct {
	// Indices into the population, in original population order.
	Indices []int
	// NoiseFactor inflates baseline noise for partially visible neurons;
	// exactly 1 for a neuron centered on the focal plane.
	NoiseFactor []float64
	// PlaneCoords are the neurons' projections onto the focal plane.
	PlaneCoords geom.Coords
}

func (t PlaneTargets) Len() int { return len(t.Indices) }

// TargetNeuronsInPlane computes which neurons fall inside the sensing
// volume of a device at location pointing along direction: a disk of
// diameter fovWidth on the plane at focusDepth. A neuron is included when
// some of its soma (sphere of targetRadius) intersects the plane and its
// in-plane distance from the optical axis is under fovWidth/2. Neurons at
// or beyond targetRadius from the plane are excluded before any noise
// factor is computed, so the factor never divides by zero.
func TargetNeuronsInPlane(coords geom.Coords, focusDepth, fovWidth units.Length,
	location, direction mat32.Vec3, targetRadius units.Length, mode SensingMode,
) (PlaneTargets, error) {
	if _, err := ParseSensingMode(string(mode)); err != nil {
		return PlaneTargets{}, err
	}
	length := direction.Length()
	if length == 0 {
		return PlaneTargets{}, geom.ErrDegenerateGeometry
	}
	dir := direction.DivScalar(length)

	center := location.Add(dir.MulScalar(focusDepth.Microns()))
	radius := targetRadius.Microns()
	maxInPlane := fovWidth.Microns() / 2

	var out PlaneTargets
	for i, c := range coords {
		signed := c.Sub(center).Dot(dir)
		visSq := radius*radius - signed*signed
		if visSq <= 0 {
			continue
		}
		onPlane := c.Sub(dir.MulScalar(signed))
		if onPlane.Sub(center).Length() >= maxInPlane {
			continue
		}
		rVisible := mat32.Sqrt(visSq)
		relArea := float64(rVisible / radius)
		if mode == SensingVolume {
			relArea *= relArea
		}
		out.Indices = append(out.Indices, i)
		out.NoiseFactor = append(out.NoiseFactor, 1/math.Sqrt(relArea))
		out.PlaneCoords = append(out.PlaneCoords, onPlane)
	}
	return out, nil
}
