package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/laserodometry/utils"
)

// PlanarPose is a rigid motion in the x-y plane: a translation and a heading about z.
// It satisfies Pose so planar results can be handed to consumers that work in 3D.
type PlanarPose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// NewPoseFromPlanar embeds a planar motion into a Pose.
func NewPoseFromPlanar(x, y, yaw float64) *PlanarPose {
	return &PlanarPose{X: x, Y: y, Theta: yaw}
}

// NewPlanarIdentity returns the identity planar motion.
func NewPlanarIdentity() *PlanarPose {
	return &PlanarPose{}
}

// PlanarComponents projects any pose onto the x-y plane, returning its translation and yaw.
// Planar poses are returned exactly.
func PlanarComponents(p Pose) (x, y, yaw float64) {
	if pp, ok := p.(*PlanarPose); ok {
		return pp.X, pp.Y, pp.Theta
	}
	pt := p.Point()
	return pt.X, pt.Y, Yaw(p.Orientation())
}

// ToPlanar returns the planar projection of p.
func ToPlanar(p Pose) *PlanarPose {
	x, y, yaw := PlanarComponents(p)
	return &PlanarPose{X: x, Y: y, Theta: yaw}
}

// Point returns the translation, with zero height.
func (p *PlanarPose) Point() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y}
}

// Orientation returns the heading as a rotation about z.
func (p *PlanarPose) Orientation() Orientation {
	q := Quaternion(quat.Number{Real: math.Cos(p.Theta / 2), Kmag: math.Sin(p.Theta / 2)})
	return &q
}

// Array returns the motion as an (x, y, theta) triple.
func (p *PlanarPose) Array() [3]float64 {
	return [3]float64{p.X, p.Y, p.Theta}
}

// IsIdentity returns whether p is exactly the identity.
func (p *PlanarPose) IsIdentity() bool {
	return p.X == 0 && p.Y == 0 && p.Theta == 0
}

// Compose applies other in the frame of p.
func (p *PlanarPose) Compose(other *PlanarPose) *PlanarPose {
	c, s := math.Cos(p.Theta), math.Sin(p.Theta)
	return &PlanarPose{
		X:     p.X + c*other.X - s*other.Y,
		Y:     p.Y + s*other.X + c*other.Y,
		Theta: utils.WrapAngle(p.Theta + other.Theta),
	}
}

// Inverse returns the motion that undoes p.
func (p *PlanarPose) Inverse() *PlanarPose {
	c, s := math.Cos(p.Theta), math.Sin(p.Theta)
	return &PlanarPose{
		X:     -c*p.X - s*p.Y,
		Y:     s*p.X - c*p.Y,
		Theta: utils.WrapAngle(-p.Theta),
	}
}

// SquaredNorm returns x² + y².
func (p *PlanarPose) SquaredNorm() float64 {
	return p.X*p.X + p.Y*p.Y
}

func (p *PlanarPose) String() string {
	return fmt.Sprintf("{X:%.6f Y:%.6f Theta:%.6f}", p.X, p.Y, p.Theta)
}
