package odometry

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/laserodometry/lidar"
	"go.viam.com/laserodometry/logging"
	"go.viam.com/laserodometry/scanmatch"
	"go.viam.com/laserodometry/spatialmath"
)

// covarianceDim is the size of the pose covariance: x, y, z, roll, pitch, yaw.
const covarianceDim = 6

// matchOutcome is what one scan matcher invocation produced.
type matchOutcome struct {
	ok         bool
	increment  *spatialmath.PlanarPose
	covariance *mat.SymDense
	result     *scanmatch.Result
}

// matchInvoker adapts a scan matcher to frames and poses. It owns the buffers of the most recent
// result until the next invocation or close.
type matchInvoker struct {
	matcher scanmatch.Matcher
	params  scanmatch.Parameters
	logger  logging.Logger

	laserOffset spatialmath.Pose
	laser       [3]float64

	retained *scanmatch.Buffers
}

func newMatchInvoker(matcher scanmatch.Matcher, params scanmatch.Parameters, logger logging.Logger) *matchInvoker {
	return &matchInvoker{matcher: matcher, params: params, logger: logger}
}

// setLaserOffset caches the planar components of the sensor mounting pose.
func (mi *matchInvoker) setLaserOffset(offset spatialmath.Pose) {
	if offset == nil {
		offset = spatialmath.NewPlanarIdentity()
	}
	if mi.laserOffset == offset {
		return
	}
	x, y, yaw := spatialmath.PlanarComponents(offset)
	mi.laserOffset = offset
	mi.laser = [3]float64{x, y, yaw}
}

// match registers candidate against reference using predicted as the first guess.
func (mi *matchInvoker) match(
	reference, candidate *lidar.PointFrame,
	table *lidar.AngleTable,
	predicted spatialmath.Pose,
) matchOutcome {
	if err := mi.releaseRetained(); err != nil {
		mi.logger.Errorw("failed to release scan match buffers", "error", err)
	}
	if predicted == nil {
		predicted = spatialmath.NewPlanarIdentity()
	}
	gx, gy, gyaw := spatialmath.PlanarComponents(predicted)

	failed := matchOutcome{increment: spatialmath.NewPlanarIdentity()}
	res, err := mi.matcher.Match(&scanmatch.Input{
		Reference:  reference,
		Candidate:  candidate,
		FirstGuess: [3]float64{gx, gy, gyaw},
		Laser:      mi.laser,
		MinReading: table.MinReading,
		MaxReading: table.MaxReading,
		Params:     mi.params,
	})
	if res != nil {
		mi.retained = res.Buffers
	}
	if err != nil {
		mi.logger.Warnw("scan matcher returned an error", "error", errors.Wrap(err, "scan match"))
		return failed
	}
	failed.result = res
	if !res.Valid {
		return failed
	}

	out := matchOutcome{
		ok:        true,
		increment: spatialmath.NewPoseFromPlanar(res.X[0], res.X[1], res.X[2]),
		result:    res,
	}
	if mi.params.DoComputeCovariance {
		if res.Buffers == nil || res.Buffers.CovX == nil {
			mi.logger.Debug("scan matcher did not return a covariance")
			return out
		}
		out.covariance = poseCovariance(res.Buffers.CovX)
	}
	return out
}

// poseCovariance lays the matcher's covariance out over x, y and yaw of a 6×6 pose covariance.
// The matcher's buffer is read in its packed order, so x, y and yaw take the first row.
func poseCovariance(covX mat.Matrix) *mat.SymDense {
	cov := mat.NewSymDense(covarianceDim, nil)
	cov.SetSym(0, 0, covX.At(0, 0))
	cov.SetSym(1, 1, covX.At(0, 1))
	cov.SetSym(5, 5, covX.At(0, 2))
	return cov
}

func (mi *matchInvoker) releaseRetained() error {
	if mi.retained == nil {
		return nil
	}
	buffers := mi.retained
	mi.retained = nil
	return buffers.Release()
}

// close releases any retained buffers.
func (mi *matchInvoker) close() error {
	return mi.releaseRetained()
}
