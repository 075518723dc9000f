// Package spatialmath defines spatial mathematical operations on poses and orientations.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations of the orientation
// of a rigid object or a frame of reference in 3D Euclidean space.
type Orientation interface {
	Quaternion() quat.Number
	EulerAngles() *EulerAngles
}

// NewZeroOrientation returns an orientatation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &Quaternion{1, 0, 0, 0}
}

// OrientationAlmostEqual will return a bool describing whether 2 poses have approximately the same orientation.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// OrientationBetween returns the orientation representing the difference between the two given Orientations.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := Quaternion(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return &q
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Quaternions have double coverage, q == -q, and
// we account for that here.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	if componentsAlmostEqual(a, b, tol) {
		return true
	}
	return componentsAlmostEqual(a, quat.Scale(-1, b), tol)
}

func componentsAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// Yaw returns the rotation of o around the z axis, in radians.
func Yaw(o Orientation) float64 {
	return o.EulerAngles().Yaw
}
