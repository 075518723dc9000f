package odometry

import (
	"math"

	"go.viam.com/laserodometry/spatialmath"
)

// KeyframeDecider decides whether an increment is large enough for its scan to replace the
// reference.
type KeyframeDecider struct {
	linearSq float64
	angular  float64
}

// NewKeyframeDecider returns a decider for the thresholds in cfg.
func NewKeyframeDecider(cfg *Config) *KeyframeDecider {
	return &KeyframeDecider{
		linearSq: cfg.KFDistLinear * cfg.KFDistLinear,
		angular:  cfg.KFDistAngular,
	}
}

// IsKeyframe is true when the increment's heading change exceeds the angular threshold or its
// translation exceeds the linear threshold. Both comparisons are strict.
func (d *KeyframeDecider) IsKeyframe(increment spatialmath.Pose) bool {
	x, y, yaw := spatialmath.PlanarComponents(increment)
	return math.Abs(yaw) > d.angular || x*x+y*y > d.linearSq
}

// IsKeyframe applies the thresholds of cfg to increment.
func IsKeyframe(increment spatialmath.Pose, cfg *Config) bool {
	return NewKeyframeDecider(cfg).IsKeyframe(increment)
}
