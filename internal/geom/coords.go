// Package geom generates and manipulates 3-D contact coordinates for
// multi-contact sensing arrays. All coordinates are mat32 vectors measured
// in micrometers (units.Micrometer).
package geom

import (
	"errors"
	"fmt"

	"goki.dev/mat32/v2"
)

// ErrDegenerateGeometry reports a direction vector with zero length, which
// cannot be normalized into an array axis.
var ErrDegenerateGeometry = errors.New("degenerate geometry: direction vector has zero length")

// Coords is an ordered set of 3-D points in micrometers, one per contact
// or target. Generators return it fully formed; callers treat it as
// immutable.
type Coords []mat32.Vec3

func (c Coords) Len() int { return len(c) }

// Concat combines coordinate sets into one, preserving argument order.
func Concat(sets ...Coords) Coords {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make(Coords, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// Tile replicates coords numTiles times, each copy offset along an evenly
// interpolated step from zero to tileVector. The result groups all tiles
// for contact 0 first, then contact 1, and so on; callers may rely on that
// ordering.
func Tile(coords Coords, numTiles int, tileVector mat32.Vec3) (Coords, error) {
	if numTiles < 1 {
		return nil, fmt.Errorf("tile count must be positive, got %d", numTiles)
	}
	offsets := linspace(mat32.Vec3{}, tileVector, numTiles)
	out := make(Coords, 0, len(coords)*numTiles)
	for _, c := range coords {
		for _, off := range offsets {
			out = append(out, c.Add(off))
		}
	}
	return out, nil
}

// unitDirection normalizes dir into a unit axis vector.
func unitDirection(dir mat32.Vec3) (mat32.Vec3, error) {
	length := dir.Length()
	if length == 0 {
		return mat32.Vec3{}, ErrDegenerateGeometry
	}
	return dir.DivScalar(length), nil
}

// linspace returns n points evenly spaced from a to b inclusive.
// n == 1 yields just a, matching endpoint-inclusive interpolation.
func linspace(a, b mat32.Vec3, n int) []mat32.Vec3 {
	if n < 1 {
		return nil
	}
	out := make([]mat32.Vec3, n)
	out[0] = a
	if n == 1 {
		return out
	}
	step := b.Sub(a).DivScalar(float32(n - 1))
	for i := 1; i < n; i++ {
		out[i] = a.Add(step.MulScalar(float32(i)))
	}
	return out
}
