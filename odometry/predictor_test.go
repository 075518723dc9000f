package odometry

import (
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/laserodometry/lidar"
	"go.viam.com/laserodometry/spatialmath"
)

func stamped(t time.Time) *lidar.RangeScan {
	return &lidar.RangeScan{Timestamp: t}
}

func TestZeroPredictor(t *testing.T) {
	var p ZeroPredictor
	p.Reset(nil)
	p.Update(nil, &StepResult{Valid: true, Increment: spatialmath.NewPoseFromPlanar(1, 0, 0)})
	test.That(t, spatialmath.ToPlanar(p.Predict(nil)).IsIdentity(), test.ShouldBeTrue)
}

func TestConstantVelocityPredictor(t *testing.T) {
	start := time.Unix(100, 0)
	p := NewConstantVelocityPredictor()
	p.Reset(stamped(start))

	test.That(t, spatialmath.ToPlanar(p.Predict(stamped(start.Add(time.Second)))).IsIdentity(), test.ShouldBeTrue)
	p.Update(stamped(start.Add(time.Second)), &StepResult{
		Valid:     true,
		Increment: spatialmath.NewPoseFromPlanar(0.02, 0, 0),
	})

	t.Run("same interval repeats motion", func(t *testing.T) {
		pred := spatialmath.ToPlanar(p.Predict(stamped(start.Add(2 * time.Second))))
		test.That(t, pred.X, test.ShouldAlmostEqual, 0.04)
		test.That(t, pred.Y, test.ShouldAlmostEqual, 0)
	})

	t.Run("longer interval scales motion", func(t *testing.T) {
		pred := spatialmath.ToPlanar(p.Predict(stamped(start.Add(3 * time.Second))))
		test.That(t, pred.X, test.ShouldAlmostEqual, 0.06)
	})

	p.Update(stamped(start.Add(2*time.Second)), &StepResult{
		Valid:     true,
		Increment: spatialmath.NewPoseFromPlanar(0.12, 0, 0),
		Keyframe:  true,
	})

	t.Run("keyframe resets relative pose", func(t *testing.T) {
		pred := spatialmath.ToPlanar(p.Predict(stamped(start.Add(3 * time.Second))))
		test.That(t, pred.X, test.ShouldAlmostEqual, 0.1)
	})

	t.Run("failed step extrapolates", func(t *testing.T) {
		p.Update(stamped(start.Add(3*time.Second)), &StepResult{Increment: spatialmath.NewPlanarIdentity()})
		pred := spatialmath.ToPlanar(p.Predict(stamped(start.Add(4 * time.Second))))
		test.That(t, pred.X, test.ShouldAlmostEqual, 0.2)
	})
}

func TestConstantVelocityPredictorWithoutTimestamps(t *testing.T) {
	p := NewConstantVelocityPredictor()
	p.Reset(&lidar.RangeScan{})
	p.Update(&lidar.RangeScan{}, &StepResult{Valid: true, Increment: spatialmath.NewPoseFromPlanar(0, 0, 0.1)})
	pred := spatialmath.ToPlanar(p.Predict(&lidar.RangeScan{}))
	test.That(t, pred.Theta, test.ShouldAlmostEqual, 0.2)
}
