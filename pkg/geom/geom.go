// Package geom provides the box and matrix helpers used by the scene graph.
// All types are the double precision ones from github.com/deadsy/sdfx so
// that brush and entity geometry can be handed to sdfx directly.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultWorldSize is the default half-extent of the world box.
const DefaultWorldSize = 8192.0

// singularTolerance is the determinant magnitude below which a matrix is
// treated as not invertible.
const singularTolerance = 1e-12

// WorldBounds returns the cube spanning [-size, size] on every axis.
func WorldBounds(size float64) sdf.Box3 {
	return sdf.NewBox3(v3.Vec{}, v3.Vec{X: 2 * size, Y: 2 * size, Z: 2 * size})
}

// CubeAround returns the cube centered at p with the given half-extent.
func CubeAround(p v3.Vec, halfSize float64) sdf.Box3 {
	return sdf.NewBox3(p, v3.Vec{X: 2 * halfSize, Y: 2 * halfSize, Z: 2 * halfSize})
}

// Contains reports whether inner lies entirely inside outer, boundary included.
func Contains(outer, inner sdf.Box3) bool {
	return outer.Contains(inner.Min) && outer.Contains(inner.Max)
}

// Intersects reports whether a and b overlap or touch.
func Intersects(a, b sdf.Box3) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// IsFinite reports whether no coordinate of v is NaN or infinite.
func IsFinite(v v3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Identity returns the identity transformation.
func Identity() sdf.M44 {
	return sdf.Identity3d()
}

// Invert returns the inverse of m. The second result is false when m is
// singular, in which case the returned matrix must not be used.
func Invert(m sdf.M44) (sdf.M44, bool) {
	det := m.Determinant()
	if math.IsNaN(det) || math.Abs(det) < singularTolerance {
		return sdf.M44{}, false
	}
	return m.Inverse(), true
}

// Translation returns the matrix translating by (x, y, z).
func Translation(x, y, z float64) sdf.M44 {
	return sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
}

// Scaling returns the matrix scaling by (x, y, z) about the origin.
func Scaling(x, y, z float64) sdf.M44 {
	return sdf.Scale3d(v3.Vec{X: x, Y: y, Z: z})
}

// Rotation returns the rotation by Euler angles in degrees, applied in X, Y,
// Z order.
func Rotation(x, y, z float64) sdf.M44 {
	return sdf.RotateZ(sdf.DtoR(z)).Mul(sdf.RotateY(sdf.DtoR(y))).Mul(sdf.RotateX(sdf.DtoR(x)))
}

// TransformDirection maps a direction vector by the linear part of m.
func TransformDirection(m sdf.M44, d v3.Vec) v3.Vec {
	return m.MulPosition(d).Sub(m.MulPosition(v3.Vec{}))
}
