package odometry

import (
	"time"

	"go.viam.com/laserodometry/lidar"
	"go.viam.com/laserodometry/spatialmath"
)

// A Predictor supplies Step with a first guess of the next scan's pose relative to the current
// keyframe. Predictions only seed the scan matcher.
type Predictor interface {
	// Reset forgets all motion history; scan is the new keyframe.
	Reset(scan *lidar.RangeScan)
	// Predict guesses the pose of scan relative to the keyframe.
	Predict(scan *lidar.RangeScan) spatialmath.Pose
	// Update feeds back the result of stepping scan.
	Update(scan *lidar.RangeScan, result *StepResult)
}

// ZeroPredictor always predicts no motion.
type ZeroPredictor struct{}

// Reset does nothing.
func (ZeroPredictor) Reset(*lidar.RangeScan) {}

// Predict returns the identity.
func (ZeroPredictor) Predict(*lidar.RangeScan) spatialmath.Pose {
	return spatialmath.NewPlanarIdentity()
}

// Update does nothing.
func (ZeroPredictor) Update(*lidar.RangeScan, *StepResult) {}

// ConstantVelocityPredictor assumes the motion between consecutive scans repeats. When scans carry
// timestamps the repeated motion is scaled by the ratio of the elapsed times.
type ConstantVelocityPredictor struct {
	relative  *spatialmath.PlanarPose
	delta     *spatialmath.PlanarPose
	lastStamp time.Time
	lastDt    time.Duration
}

// NewConstantVelocityPredictor returns a predictor with no motion history.
func NewConstantVelocityPredictor() *ConstantVelocityPredictor {
	return &ConstantVelocityPredictor{
		relative: spatialmath.NewPlanarIdentity(),
		delta:    spatialmath.NewPlanarIdentity(),
	}
}

// Reset forgets all motion history.
func (p *ConstantVelocityPredictor) Reset(scan *lidar.RangeScan) {
	p.relative = spatialmath.NewPlanarIdentity()
	p.delta = spatialmath.NewPlanarIdentity()
	p.lastDt = 0
	p.lastStamp = time.Time{}
	if scan != nil {
		p.lastStamp = scan.Timestamp
	}
}

// Predict extrapolates the last scan-to-scan motion from the last scan's pose.
func (p *ConstantVelocityPredictor) Predict(scan *lidar.RangeScan) spatialmath.Pose {
	return p.relative.Compose(p.scaledDelta(scan))
}

func (p *ConstantVelocityPredictor) scaledDelta(scan *lidar.RangeScan) *spatialmath.PlanarPose {
	if scan == nil || p.lastDt <= 0 || scan.Timestamp.IsZero() || p.lastStamp.IsZero() {
		return p.delta
	}
	ratio := float64(scan.Timestamp.Sub(p.lastStamp)) / float64(p.lastDt)
	if ratio <= 0 {
		return p.delta
	}
	return &spatialmath.PlanarPose{X: p.delta.X * ratio, Y: p.delta.Y * ratio, Theta: p.delta.Theta * ratio}
}

// Update records the motion implied by result. A failed step is assumed to have moved like the
// prediction.
func (p *ConstantVelocityPredictor) Update(scan *lidar.RangeScan, result *StepResult) {
	var current *spatialmath.PlanarPose
	if result != nil && result.Valid {
		current = spatialmath.ToPlanar(result.Increment)
		p.delta = p.relative.Inverse().Compose(current)
	} else {
		current = p.relative.Compose(p.scaledDelta(scan))
	}
	p.relative = current
	if result != nil && result.Keyframe {
		p.relative = spatialmath.NewPlanarIdentity()
	}

	if scan == nil {
		return
	}
	if !scan.Timestamp.IsZero() && !p.lastStamp.IsZero() {
		p.lastDt = scan.Timestamp.Sub(p.lastStamp)
	}
	p.lastStamp = scan.Timestamp
}
