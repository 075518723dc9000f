// Package trajectory turns odometry increments into a robot path and records it.
package trajectory

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"go.viam.com/laserodometry/odometry"
	"go.viam.com/laserodometry/spatialmath"
	"go.viam.com/laserodometry/utils"
)

// Sample is the robot pose after one scan.
type Sample struct {
	Timestamp time.Time
	Pose      *spatialmath.PlanarPose
	Valid     bool
	Keyframe  bool
}

// Integrator chains keyframe-relative increments into poses in the frame of the first scan.
type Integrator struct {
	keyframePose *spatialmath.PlanarPose
	pose         *spatialmath.PlanarPose
	samples      []Sample
}

// NewIntegrator returns an integrator whose first keyframe sits at start. A nil start is the
// origin.
func NewIntegrator(start *spatialmath.PlanarPose, stamp time.Time) *Integrator {
	if start == nil {
		start = spatialmath.NewPlanarIdentity()
	}
	return &Integrator{
		keyframePose: start,
		pose:         start,
		samples:      []Sample{{Timestamp: stamp, Pose: start, Valid: true, Keyframe: true}},
	}
}

// Add applies the result of one step. Failed steps repeat the last pose.
func (i *Integrator) Add(stamp time.Time, res *odometry.StepResult) *spatialmath.PlanarPose {
	if res.Valid {
		i.pose = i.keyframePose.Compose(spatialmath.ToPlanar(res.Increment))
		if res.Keyframe {
			i.keyframePose = i.pose
		}
	}
	i.samples = append(i.samples, Sample{Timestamp: stamp, Pose: i.pose, Valid: res.Valid, Keyframe: res.Valid && res.Keyframe})
	return i.pose
}

// Pose returns the latest pose.
func (i *Integrator) Pose() *spatialmath.PlanarPose {
	return i.pose
}

// Samples returns every pose so far, starting with the first keyframe.
func (i *Integrator) Samples() []Sample {
	return append([]Sample(nil), i.samples...)
}

// Summary describes a path.
type Summary struct {
	Steps          int
	Failed         int
	Keyframes      int
	PathLength     float64
	MeanStepLength float64
	StdStepLength  float64
	HeadingChange  float64
}

// Summarize computes path statistics over samples.
func Summarize(samples []Sample) Summary {
	var s Summary
	if len(samples) == 0 {
		return s
	}
	s.Steps = len(samples) - 1
	lengths := make([]float64, 0, s.Steps)
	for k := 1; k < len(samples); k++ {
		cur := samples[k]
		if !cur.Valid {
			s.Failed++
		}
		if cur.Keyframe {
			s.Keyframes++
		}
		prev := samples[k-1].Pose
		lengths = append(lengths, math.Hypot(cur.Pose.X-prev.X, cur.Pose.Y-prev.Y))
		s.PathLength += lengths[len(lengths)-1]
	}
	if len(lengths) > 0 {
		s.MeanStepLength, s.StdStepLength = stat.MeanStdDev(lengths, nil)
		if len(lengths) == 1 {
			s.StdStepLength = 0
		}
	}
	first, last := samples[0].Pose, samples[len(samples)-1].Pose
	s.HeadingChange = utils.WrapAngle(last.Theta - first.Theta)
	return s
}
