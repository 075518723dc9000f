package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof rigid transform: a translation and an orientation.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type pose struct {
	point       r3.Vector
	orientation quat.Number
}

// NewZeroPose returns a pose with no translation or rotation.
func NewZeroPose() Pose {
	return &pose{orientation: quat.Number{Real: 1}}
}

// NewPose returns a pose from a translation and an orientation.
func NewPose(pt r3.Vector, o Orientation) Pose {
	if o == nil {
		o = NewZeroOrientation()
	}
	return &pose{point: pt, orientation: Normalize(o.Quaternion())}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return &pose{point: pt, orientation: quat.Number{Real: 1}}
}

// NewPoseFromOrientation returns a pose with translation pt and orientation o.
func NewPoseFromOrientation(pt r3.Vector, o Orientation) Pose {
	return NewPose(pt, o)
}

func (p *pose) Point() r3.Vector {
	return p.point
}

func (p *pose) Orientation() Orientation {
	q := Quaternion(p.orientation)
	return &q
}

func (p *pose) String() string {
	return fmt.Sprintf("{X:%.6f Y:%.6f Z:%.6f Q:%v}", p.point.X, p.point.Y, p.point.Z, p.orientation)
}

// Compose returns the pose reached by applying b in the frame of a.
func Compose(a, b Pose) Pose {
	if pa, ok := a.(*PlanarPose); ok {
		if pb, ok := b.(*PlanarPose); ok {
			return pa.Compose(pb)
		}
	}
	qa := a.Orientation().Quaternion()
	return &pose{
		point:       a.Point().Add(rotateVector(qa, b.Point())),
		orientation: Normalize(quat.Mul(qa, b.Orientation().Quaternion())),
	}
}

// PoseInverse returns the pose that undoes p.
func PoseInverse(p Pose) Pose {
	if pp, ok := p.(*PlanarPose); ok {
		return pp.Inverse()
	}
	inv := quat.Conj(Normalize(p.Orientation().Quaternion()))
	return &pose{
		point:       rotateVector(inv, p.Point()).Mul(-1),
		orientation: inv,
	}
}

// PoseBetween returns the pose which, composed onto a, yields b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseAlmostCoincident returns whether the two poses have almost equal translations and orientations.
func PoseAlmostCoincident(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, 1e-8)
}

// PoseAlmostCoincidentEps compares translations with eps and orientations with OrientationAlmostEqual.
func PoseAlmostCoincidentEps(a, b Pose, eps float64) bool {
	return a.Point().Sub(b.Point()).Norm() <= eps && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}
