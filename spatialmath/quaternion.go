package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is an orientation stored as a unit quaternion.
type Quaternion quat.Number

// Quaternion returns orientation in quaternion representation.
func (q *Quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// EulerAngles returns orientation in Euler angle representation (z-y-x Tait-Bryan).
func (q *Quaternion) EulerAngles() *EulerAngles {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	sinp := 2 * (w*y - z*x)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}
	return &EulerAngles{
		Roll:  math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		Pitch: math.Asin(sinp),
		Yaw:   math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z)),
	}
}

// Normalize scales q to unit length; a zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// rotateVector applies the rotation described by the unit quaternion q to v.
func rotateVector(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}
