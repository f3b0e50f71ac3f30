package geom

import (
	"fmt"
	"sort"

	"goki.dev/mat32/v2"

	"neurorig/internal/units"
)

// DefaultTetrodeWidth is the side length of a single tetrode square,
// matching common commercial probe spacing.
const DefaultTetrodeWidth = 25 * units.Micrometer

// LinearShank generates channelCount contacts evenly spaced from start to
// start + arrayLength*direction.
func LinearShank(arrayLength units.Length, channelCount int, start, direction mat32.Vec3) (Coords, error) {
	dir, err := unitDirection(direction)
	if err != nil {
		return nil, err
	}
	if err := checkCount("channel", channelCount); err != nil {
		return nil, err
	}
	end := start.Add(dir.MulScalar(arrayLength.Microns()))
	return linspace(start, end, channelCount), nil
}

// TetrodeShank generates tetrodeCount clusters of four contacts with
// cluster centers evenly spaced along the array axis. Each cluster is a
// square of side tetrodeWidth in the plane spanned by the axis and one
// orthogonal direction, so contacts sit at width/sqrt(2) from the center
// along the four diagonal directions.
func TetrodeShank(arrayLength units.Length, tetrodeCount int, start, direction mat32.Vec3, tetrodeWidth units.Length) (Coords, error) {
	dir, err := unitDirection(direction)
	if err != nil {
		return nil, err
	}
	if err := checkCount("tetrode", tetrodeCount); err != nil {
		return nil, err
	}
	end := start.Add(dir.MulScalar(arrayLength.Microns()))
	centers := linspace(start, end, tetrodeCount)
	orth, _, err := OrthVectors(dir)
	if err != nil {
		return nil, err
	}
	half := tetrodeWidth.Microns() / mat32.Sqrt(2)
	offsets := []mat32.Vec3{
		dir.MulScalar(-half),
		orth.MulScalar(-half),
		orth.MulScalar(half),
		dir.MulScalar(half),
	}
	out := make(Coords, 0, 4*tetrodeCount)
	for _, c := range centers {
		for _, off := range offsets {
			out = append(out, c.Add(off))
		}
	}
	return out, nil
}

// Poly2Shank generates two parallel staggered columns: contacts are evenly
// spaced along the axis and alternate between +/- intercolSpace/2 along
// the orthogonal direction by parity of index.
func Poly2Shank(arrayLength units.Length, channelCount int, intercolSpace units.Length, start, direction mat32.Vec3) (Coords, error) {
	dir, err := unitDirection(direction)
	if err != nil {
		return nil, err
	}
	if err := checkCount("channel", channelCount); err != nil {
		return nil, err
	}
	end := start.Add(dir.MulScalar(arrayLength.Microns()))
	out := Coords(linspace(start, end, channelCount))
	orth, _, err := OrthVectors(dir)
	if err != nil {
		return nil, err
	}
	shift := orth.MulScalar(intercolSpace.Microns() / 2)
	for i := range out {
		if i%2 == 0 {
			out[i] = out[i].Add(shift)
		} else {
			out[i] = out[i].Sub(shift)
		}
	}
	return out, nil
}

// Poly3Shank generates three parallel columns. The middle column takes the
// remainder when channelCount is not divisible by three, so it is never
// shorter than the sides. Side columns are centered on the middle column's
// span and offset by +/- intercolSpace orthogonally. Output is sorted
// ascending by depth along the array axis; callers may rely on that order.
func Poly3Shank(arrayLength units.Length, channelCount int, intercolSpace units.Length, start, direction mat32.Vec3) (Coords, error) {
	dir, err := unitDirection(direction)
	if err != nil {
		return nil, err
	}
	if err := checkCount("channel", channelCount); err != nil {
		return nil, err
	}
	length := arrayLength.Microns()
	end := start.Add(dir.MulScalar(length))
	center := start.Add(dir.MulScalar(length / 2))

	nMiddle := channelCount/3 + channelCount%3
	nSide := (channelCount - nMiddle) / 2

	middle := Coords(linspace(start, end, nMiddle))

	spacing := length / float32(nMiddle)
	sideLength := float32(nSide) * spacing
	sideStart := center.Sub(dir.MulScalar(sideLength / 2))
	sideEnd := center.Add(dir.MulScalar(sideLength / 2))
	side := Coords(linspace(sideStart, sideEnd, nSide))

	orth, _, err := OrthVectors(dir)
	if err != nil {
		return nil, err
	}
	shift := orth.MulScalar(intercolSpace.Microns())
	side1 := make(Coords, len(side))
	side2 := make(Coords, len(side))
	for i, p := range side {
		side1[i] = p.Add(shift)
		side2[i] = p.Sub(shift)
	}

	out := Concat(middle, side1, side2)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sub(start).Dot(dir) < out[j].Sub(start).Dot(dir)
	})
	return out, nil
}

func checkCount(kind string, n int) error {
	if n < 1 {
		return fmt.Errorf("%s count must be positive, got %d", kind, n)
	}
	return nil
}
