package odometry

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/laserodometry/spatialmath"
)

func keyframeConfig() *Config {
	cfg := DefaultConfig()
	cfg.KFDistLinear = 0.1
	cfg.KFDistAngular = 0.05
	return cfg
}

func TestIsKeyframeThresholds(t *testing.T) {
	cfg := keyframeConfig()
	for _, tc := range []struct {
		name     string
		x, y     float64
		yaw      float64
		keyframe bool
	}{
		{"identity", 0, 0, 0, false},
		{"small motion", 0.02, 0, 0.01, false},
		{"linear boundary", 0.1, 0, 0, false},
		{"angular boundary", 0, 0, 0.05, false},
		{"both boundaries", 0.1, 0, 0.05, false},
		{"negative angular boundary", 0, 0, -0.05, false},
		{"past linear", 0.1000001, 0, 0, true},
		{"past linear diagonal", 0.08, 0.08, 0, true},
		{"past angular", 0, 0, 0.0500001, true},
		{"past negative angular", 0, 0, -0.06, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			inc := spatialmath.NewPoseFromPlanar(tc.x, tc.y, tc.yaw)
			test.That(t, IsKeyframe(inc, cfg), test.ShouldEqual, tc.keyframe)
		})
	}
}

func TestIsKeyframeRepresentationInvariant(t *testing.T) {
	decider := NewKeyframeDecider(keyframeConfig())
	for _, v := range [][3]float64{
		{0.02, 0.01, 0.01},
		{0.2, 0, 0},
		{0, 0, 0.3},
		{-0.03, 0.04, -0.02},
		{0.01, -0.2, 0.4},
	} {
		planar := spatialmath.NewPoseFromPlanar(v[0], v[1], v[2])
		general := spatialmath.NewPose(r3.Vector{X: v[0], Y: v[1]}, &spatialmath.EulerAngles{Yaw: v[2]})
		test.That(t, decider.IsKeyframe(general), test.ShouldEqual, decider.IsKeyframe(planar))
	}
}

func TestZeroThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KFDistLinear = 0
	cfg.KFDistAngular = 0
	test.That(t, IsKeyframe(spatialmath.NewPlanarIdentity(), cfg), test.ShouldBeFalse)
	test.That(t, IsKeyframe(spatialmath.NewPoseFromPlanar(0.001, 0, 0), cfg), test.ShouldBeTrue)
}
