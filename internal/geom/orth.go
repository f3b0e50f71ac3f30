package geom

import "goki.dev/mat32/v2"

// OrthVectors returns two unit vectors orthogonal to v and to each other.
// The pair is chosen deterministically from a fixed reference axis so
// repeated calls with the same v give the same frame. Works for v aligned
// with any coordinate axis; only a zero-length v is rejected.
func OrthVectors(v mat32.Vec3) (mat32.Vec3, mat32.Vec3, error) {
	u, err := unitDirection(v)
	if err != nil {
		return mat32.Vec3{}, mat32.Vec3{}, err
	}
	// reference axis must not be parallel to v; fall back from x to y
	ref := mat32.Vec3{X: 1}
	if mat32.Abs(u.Dot(ref)) > 0.9 {
		ref = mat32.Vec3{Y: 1}
	}
	orth1 := u.Cross(ref)
	orth1 = orth1.DivScalar(orth1.Length())
	orth2 := u.Cross(orth1)
	return orth1, orth2, nil
}
