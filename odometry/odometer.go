// Package odometry estimates planar robot motion by registering each laser scan against a
// reference keyframe scan.
//
// An Odometer is configured once, seeded with a first scan by Start and then fed every following
// scan through Step. Each step reports the motion of the newest scan relative to the current
// keyframe; when that motion exceeds the keyframe thresholds the newest scan becomes the keyframe.
package odometry

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/laserodometry/lidar"
	"go.viam.com/laserodometry/logging"
	"go.viam.com/laserodometry/scanmatch"
	"go.viam.com/laserodometry/spatialmath"
)

var (
	// ErrNotConfigured is returned when an Odometer is used before Configure.
	ErrNotConfigured = errors.New("odometer is not configured")
	// ErrNotStarted is returned when Step is called before Start.
	ErrNotStarted = errors.New("odometer has not been started with a first scan")
	// ErrAlreadyStarted is returned when Configure is called after Start.
	ErrAlreadyStarted = errors.New("odometer cannot be reconfigured once started")
	// ErrNilScan is returned when Start or Step is handed a nil scan.
	ErrNilScan = errors.New("scan cannot be nil")
	// ErrClosed is returned when an Odometer is used after Close.
	ErrClosed = errors.New("odometer is closed")
)

// MatchInfo summarizes the scan matcher's work for one step.
type MatchInfo struct {
	Iterations         int
	NumCorrespondences int
	Error              float64
}

// StepResult is the outcome of one Step.
type StepResult struct {
	// Valid is false when the scan matcher failed; Increment is then the identity.
	Valid bool
	// Increment is the motion of the scan relative to the keyframe it was matched against.
	Increment spatialmath.Pose
	// Covariance is the 6×6 covariance of Increment when covariance estimation is enabled.
	Covariance *mat.SymDense
	// Keyframe is true when the scan replaced the reference.
	Keyframe bool
	Match    MatchInfo
}

// Stats counts what an Odometer has done since Start.
type Stats struct {
	ScansProcessed int
	MatchesFailed  int
	Keyframes      int
}

// Odometer performs scan-to-keyframe laser odometry. All methods are safe to call concurrently;
// steps run one at a time.
type Odometer struct {
	mu      sync.Mutex
	logger  logging.Logger
	matcher scanmatch.Matcher

	cfg     *Config
	decider *KeyframeDecider
	invoker *matchInvoker

	angles lidar.AngleCache
	frames FrameStore

	started       bool
	closed        bool
	lastIncrement *spatialmath.PlanarPose
	stats         Stats
}

// NewOdometer returns an unconfigured Odometer that registers scans with matcher.
func NewOdometer(matcher scanmatch.Matcher, logger logging.Logger) *Odometer {
	return &Odometer{
		matcher:       matcher,
		logger:        logger,
		lastIncrement: spatialmath.NewPlanarIdentity(),
	}
}

// Configure validates cfg and freezes a copy of it. laserOffset is the sensor's pose on the robot;
// nil means the sensor sits at the robot origin.
func (o *Odometer) Configure(cfg *Config, laserOffset spatialmath.Pose) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.started {
		return ErrAlreadyStarted
	}
	if cfg == nil {
		return errors.Wrap(ErrNotConfigured, "config cannot be nil")
	}
	if err := cfg.Validate("odometry"); err != nil {
		return errors.Wrap(err, "invalid odometry config")
	}

	frozen := *cfg
	o.cfg = &frozen
	o.decider = NewKeyframeDecider(o.cfg)
	o.invoker = newMatchInvoker(o.matcher, o.cfg.Parameters, o.logger.Sublogger("matcher"))
	o.invoker.setLaserOffset(laserOffset)
	o.logger.Debugw("configured",
		"kf_dist_linear", o.cfg.KFDistLinear,
		"kf_dist_angular", o.cfg.KFDistAngular,
		"do_compute_covariance", o.cfg.DoComputeCovariance)
	return nil
}

// Start installs the first scan as the reference keyframe. No matching happens. Calling Start
// again discards the current keyframe and starts over from scan.
func (o *Odometer) Start(scan *lidar.RangeScan) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkUsable(); err != nil {
		return err
	}
	if scan == nil {
		return ErrNilScan
	}

	o.angles.Rebuild(scan)
	o.frames.Install(lidar.BuildFrame(scan, o.angles.Table()))
	o.started = true
	o.lastIncrement = spatialmath.NewPlanarIdentity()
	o.stats = Stats{}
	o.logger.Debugw("started", "readings", len(scan.Ranges), "valid", o.frames.Reference().NumValid())
	return nil
}

// Step registers scan against the reference keyframe using predicted as the first guess and
// reports the resulting increment. A nil prediction means no motion.
//
// A failed registration is not an error: the result is marked invalid, the increment is the
// identity and the reference is kept.
func (o *Odometer) Step(scan *lidar.RangeScan, predicted spatialmath.Pose) (*StepResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkUsable(); err != nil {
		return nil, err
	}
	if !o.started {
		return nil, ErrNotStarted
	}
	if scan == nil {
		return nil, ErrNilScan
	}

	if o.angles.Ensure(scan) {
		o.logger.Debugw("rebuilt angle table", "readings", len(scan.Ranges))
	}
	table := o.angles.Table()
	o.frames.SetCandidate(lidar.BuildFrame(scan, table))
	o.frames.Reference().ZeroLegacy()

	outcome := o.invoker.match(o.frames.Reference(), o.frames.Candidate(), table, predicted)
	o.stats.ScansProcessed++

	result := &StepResult{
		Valid:      outcome.ok,
		Increment:  outcome.increment,
		Covariance: outcome.covariance,
	}
	if outcome.result != nil {
		result.Match = MatchInfo{
			Iterations:         outcome.result.Iterations,
			NumCorrespondences: outcome.result.NumCorrespondences,
			Error:              outcome.result.Error,
		}
	}
	if !outcome.ok {
		o.stats.MatchesFailed++
		o.logger.Warnw("scan match failed, reporting no motion",
			"readings", len(scan.Ranges), "valid", o.frames.Candidate().NumValid())
	}

	result.Keyframe = o.decider.IsKeyframe(outcome.increment)
	if result.Keyframe {
		o.frames.Promote()
		o.stats.Keyframes++
		o.logger.Debugw("new keyframe", "increment", outcome.increment.String())
	} else {
		o.frames.Discard()
	}
	o.lastIncrement = outcome.increment
	return result, nil
}

func (o *Odometer) checkUsable() error {
	if o.closed {
		return ErrClosed
	}
	if o.cfg == nil {
		return ErrNotConfigured
	}
	return nil
}

// LastIncrement returns the increment reported by the latest Step, relative to the keyframe it
// was matched against.
func (o *Odometer) LastIncrement() *spatialmath.PlanarPose {
	o.mu.Lock()
	defer o.mu.Unlock()
	inc := *o.lastIncrement
	return &inc
}

// Stats returns the counters accumulated since Start.
func (o *Odometer) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Config returns a copy of the frozen configuration, or nil before Configure.
func (o *Odometer) Config() *Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cfg == nil {
		return nil
	}
	cfg := *o.cfg
	return &cfg
}

// Close releases the reference frame and any retained scan matcher buffers.
func (o *Odometer) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	var err error
	if o.invoker != nil {
		err = multierr.Combine(err, errors.Wrap(o.invoker.close(), "releasing scan match buffers"))
	}
	o.frames.Reset()
	return err
}
