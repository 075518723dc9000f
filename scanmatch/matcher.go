// Package scanmatch defines the contract between laser odometry and a scan matcher: the engine
// that registers a candidate point frame against a reference one.
//
// The engine is opaque. It receives both frames, a first guess and the laser mounting offset, and
// returns whether it converged and the estimated increment. When covariance estimation is enabled
// it also returns Buffers, which the caller owns and must Release exactly once.
package scanmatch

import (
	"github.com/pkg/errors"

	"go.viam.com/laserodometry/lidar"
)

// ErrNilFrame is returned by matchers handed a nil reference or candidate frame.
var ErrNilFrame = errors.New("scan matcher needs both a reference and a candidate frame")

// Input is everything a matcher needs for one registration.
type Input struct {
	Reference *lidar.PointFrame
	Candidate *lidar.PointFrame

	// FirstGuess is the predicted (x, y, theta) of the candidate relative to the reference.
	FirstGuess [3]float64
	// Laser is the (x, y, theta) pose of the sensor on the robot.
	Laser [3]float64

	MinReading float64
	MaxReading float64

	Params Parameters
}

// Result is the outcome of one registration.
type Result struct {
	// Valid is false when the matcher failed to converge or found the geometry unusable.
	Valid bool
	// X is the estimated (x, y, theta) of the candidate relative to the reference.
	X [3]float64

	Iterations         int
	NumCorrespondences int
	// Error is the mean correspondence distance of the final iteration.
	Error float64

	// Buffers is set when covariance estimation was requested. The caller owns it.
	Buffers *Buffers
}

// Matcher registers a candidate frame against a reference frame. Match blocks until the
// registration finishes; it is bounded by Params.MaxIterations.
//
// A returned error means the matcher was misused. A failed registration is reported through
// Result.Valid instead.
type Matcher interface {
	Match(in *Input) (*Result, error)
}

// ValidateInput checks the parts of in every matcher relies on.
func ValidateInput(in *Input) error {
	if in == nil || in.Reference == nil || in.Candidate == nil {
		return ErrNilFrame
	}
	if in.Reference.Released() || in.Candidate.Released() {
		return errors.New("scan matcher was handed a released frame")
	}
	return nil
}
