package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

const radToDeg = 180 / math.Pi

// If two directions are within this of parallel we treat them as parallel.
const parallelEpsilon = 1e-12

// RotateVector rotates v by o.
func RotateVector(o Orientation, v r3.Vector) r3.Vector {
	q := o.Quaternion()
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// RotationBetween returns the shortest-arc rotation taking the direction of from onto the direction of to.
// If either vector is zero the identity is returned. Antiparallel directions rotate half a turn about an
// arbitrary perpendicular axis.
func RotationBetween(from, to r3.Vector) Orientation {
	if from.Norm2() == 0 || to.Norm2() == 0 {
		return NewZeroOrientation()
	}
	from = from.Normalize()
	to = to.Normalize()
	d := from.Dot(to)
	if d >= 1-parallelEpsilon {
		return NewZeroOrientation()
	}
	if d <= -1+parallelEpsilon {
		axis := from.Cross(r3.Vector{X: 1})
		if axis.Norm2() < 1e-6 {
			axis = from.Cross(r3.Vector{Y: 1})
		}
		axis = axis.Normalize()
		return &R4AA{Theta: math.Pi, RX: axis.X, RY: axis.Y, RZ: axis.Z}
	}
	c := from.Cross(to)
	return NewOrientationFromQuat(quat.Number{Real: 1 + d, Imag: c.X, Jmag: c.Y, Kmag: c.Z})
}

// Lerp returns the point a fraction t of the way from a to b.
func Lerp(a, b r3.Vector, t float64) r3.Vector {
	return a.Mul(1 - t).Add(b.Mul(t))
}
