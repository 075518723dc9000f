package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPlanarComponents(t *testing.T) {
	p := NewPoseFromPlanar(1.5, -2, 0.3)
	x, y, yaw := PlanarComponents(p)
	test.That(t, x, test.ShouldEqual, 1.5)
	test.That(t, y, test.ShouldEqual, -2.)
	test.That(t, yaw, test.ShouldEqual, 0.3)

	embedded := NewPose(r3.Vector{X: 1.5, Y: -2, Z: 0.7}, &EulerAngles{Yaw: 0.3})
	x, y, yaw = PlanarComponents(embedded)
	test.That(t, x, test.ShouldEqual, 1.5)
	test.That(t, y, test.ShouldEqual, -2.)
	test.That(t, yaw, test.ShouldAlmostEqual, 0.3)

	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 1.5, Y: -2})
	test.That(t, Yaw(p.Orientation()), test.ShouldAlmostEqual, 0.3)
}

func TestPlanarCompose(t *testing.T) {
	a := NewPoseFromPlanar(1, 0, math.Pi/2)
	b := NewPoseFromPlanar(1, 0, 0)
	c := a.Compose(b)
	test.That(t, c.X, test.ShouldAlmostEqual, 1)
	test.That(t, c.Y, test.ShouldAlmostEqual, 1)
	test.That(t, c.Theta, test.ShouldAlmostEqual, math.Pi/2)

	id := a.Compose(a.Inverse())
	test.That(t, id.X, test.ShouldAlmostEqual, 0)
	test.That(t, id.Y, test.ShouldAlmostEqual, 0)
	test.That(t, id.Theta, test.ShouldAlmostEqual, 0)

	test.That(t, NewPlanarIdentity().IsIdentity(), test.ShouldBeTrue)
	test.That(t, b.SquaredNorm(), test.ShouldEqual, 1.)
}

func TestComposeMatchesPlanar(t *testing.T) {
	a := NewPoseFromPlanar(0.4, -0.1, 0.25)
	b := NewPoseFromPlanar(-0.3, 0.8, -1.1)

	planar := Compose(a, b)
	general := Compose(NewPose(a.Point(), a.Orientation()), NewPose(b.Point(), b.Orientation()))
	test.That(t, PoseAlmostCoincident(planar, general), test.ShouldBeTrue)

	x, y, yaw := PlanarComponents(general)
	px, py, pyaw := PlanarComponents(planar)
	test.That(t, x, test.ShouldAlmostEqual, px)
	test.That(t, y, test.ShouldAlmostEqual, py)
	test.That(t, yaw, test.ShouldAlmostEqual, pyaw)
}

func TestPoseInverse(t *testing.T) {
	p := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &EulerAngles{Roll: 0.1, Pitch: -0.2, Yaw: 0.3})
	test.That(t, PoseAlmostCoincident(Compose(p, PoseInverse(p)), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseAlmostCoincident(PoseBetween(p, p), NewZeroPose()), test.ShouldBeTrue)
}

func TestEulerRoundTrip(t *testing.T) {
	ea := &EulerAngles{Roll: 0.2, Pitch: 0.1, Yaw: -0.7}
	q := Quaternion(ea.Quaternion())
	back := q.EulerAngles()
	test.That(t, back.Roll, test.ShouldAlmostEqual, ea.Roll)
	test.That(t, back.Pitch, test.ShouldAlmostEqual, ea.Pitch)
	test.That(t, back.Yaw, test.ShouldAlmostEqual, ea.Yaw)
	test.That(t, OrientationAlmostEqual(ea, &q), test.ShouldBeTrue)
	test.That(t, OrientationAlmostEqual(NewZeroOrientation(), NewEulerAngles()), test.ShouldBeTrue)
}
