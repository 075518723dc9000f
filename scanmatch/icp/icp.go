// Package icp implements a planar point-to-point iterative closest point scan matcher.
package icp

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/laserodometry/logging"
	"go.viam.com/laserodometry/scanmatch"
	"go.viam.com/laserodometry/spatialmath"
	"go.viam.com/laserodometry/utils"
)

const (
	minCorrespondences     = 3
	minCorrespondenceRatio = 0.1
)

// Matcher is a scan matcher that registers frames with point-to-point ICP.
type Matcher struct {
	logger logging.Logger
	pool   *scanmatch.BufferPool

	warnOnce sync.Once
}

// NewMatcher returns an ICP matcher that allocates covariance buffers from pool. A nil pool gets
// a private one.
func NewMatcher(logger logging.Logger, pool *scanmatch.BufferPool) *Matcher {
	if pool == nil {
		pool = scanmatch.NewBufferPool()
	}
	return &Matcher{logger: logger, pool: pool}
}

// Pool returns the pool the matcher allocates result buffers from.
func (m *Matcher) Pool() *scanmatch.BufferPool {
	return m.pool
}

type correspondence struct {
	cand, ref int
	q, p      r2.Point
	dist      float64
}

type solution struct {
	x          *spatialmath.PlanarPose
	corr       []correspondence
	iterations int
	err        float64
	ok         bool
}

// Match registers in.Candidate against in.Reference starting from in.FirstGuess.
func (m *Matcher) Match(in *scanmatch.Input) (*scanmatch.Result, error) {
	if err := scanmatch.ValidateInput(in); err != nil {
		return nil, err
	}
	params := in.Params
	m.warnOnce.Do(func() { m.logIgnored(&params) })

	_, refClusters := clusterLabels(in.Reference, params.ClusteringThreshold)
	_, candClusters := clusterLabels(in.Candidate, params.ClusteringThreshold)
	m.logger.Debugw("clustered frames", "reference", refClusters, "candidate", candClusters)

	result := &scanmatch.Result{}
	ref := validPoints(in.Reference)
	cand := validPoints(in.Candidate)
	if len(ref) < minCorrespondences || len(cand) < minCorrespondences {
		m.logger.Debugw("not enough valid readings to match", "reference", len(ref), "candidate", len(cand))
		return result, nil
	}
	tree := newTree(ref)

	laser := planar(in.Laser)
	guess := laser.Inverse().Compose(planar(in.FirstGuess)).Compose(laser)

	sol := m.solve(tree, cand, guess, &params)
	if sol.ok && params.Restart && sol.err > params.RestartThresholdMeanError {
		for _, delta := range []*spatialmath.PlanarPose{
			{X: params.RestartDT, Theta: params.RestartDTheta},
			{X: -params.RestartDT, Theta: -params.RestartDTheta},
		} {
			alt := m.solve(tree, cand, sol.x.Compose(delta), &params)
			alt.iterations += sol.iterations
			if alt.ok && alt.err < sol.err {
				m.logger.Debugw("restart improved match", "error", alt.err, "previous_error", sol.err)
				sol = alt
			}
		}
	}
	result.Iterations = sol.iterations
	result.NumCorrespondences = len(sol.corr)
	result.Error = sol.err
	if !sol.ok {
		return result, nil
	}

	correction := guess.Inverse().Compose(sol.x)
	if math.Abs(correction.Theta) > utils.DegToRad(params.MaxAngularCorrectionDeg) ||
		math.Hypot(correction.X, correction.Y) > params.MaxLinearCorrection {
		m.logger.Debugw("correction exceeds bounds", "correction", correction.String())
		return result, nil
	}

	inv, ok := normalInverse(sol.x, sol.corr)
	if !ok {
		m.logger.Debug("degenerate geometry, normal matrix is singular")
		return result, nil
	}

	robot := laser.Compose(sol.x).Compose(laser.Inverse())
	result.Valid = true
	result.X = robot.Array()
	if params.DoComputeCovariance {
		result.Buffers = m.covariance(in, sol, inv, laser, params.Sigma)
	}
	return result, nil
}

// solve runs ICP from start until convergence or the iteration limit.
func (m *Matcher) solve(tree *kdtree.Tree, cand indexedPoints, start *spatialmath.PlanarPose,
	params *scanmatch.Parameters,
) solution {
	need := minimumCorrespondences(len(cand))
	x := start
	sol := solution{}
	for sol.iterations < params.MaxIterations {
		sol.iterations++
		corr := correspondences(tree, cand, x, params)
		if len(corr) < need {
			sol.x, sol.corr = x, corr
			return sol
		}
		next := align(corr)
		delta := x.Inverse().Compose(next)
		x = next
		if math.Hypot(delta.X, delta.Y) < params.EpsilonXY && math.Abs(delta.Theta) < params.EpsilonTheta {
			break
		}
	}
	sol.x = x
	sol.corr = correspondences(tree, cand, x, params)
	if len(sol.corr) < need {
		return sol
	}
	for _, c := range sol.corr {
		sol.err += c.dist
	}
	sol.err /= float64(len(sol.corr))
	sol.ok = true
	return sol
}

func minimumCorrespondences(valid int) int {
	return int(math.Max(minCorrespondences, math.Ceil(minCorrespondenceRatio*float64(valid))))
}

// correspondences pairs every candidate point, moved by x, with its nearest reference point and
// rejects outliers.
func correspondences(tree *kdtree.Tree, cand indexedPoints, x *spatialmath.PlanarPose,
	params *scanmatch.Parameters,
) []correspondence {
	maxDistSq := params.MaxCorrespondenceDist * params.MaxCorrespondenceDist
	c, s := math.Cos(x.Theta), math.Sin(x.Theta)
	corr := make([]correspondence, 0, len(cand))
	for _, q := range cand {
		moved := indexedPoint{Point: r2.Point{X: x.X + c*q.X - s*q.Y, Y: x.Y + s*q.X + c*q.Y}}
		nearest, distSq := tree.Nearest(moved)
		if nearest == nil || distSq > maxDistSq {
			continue
		}
		//nolint:forcetypeassert
		p := nearest.(indexedPoint)
		corr = append(corr, correspondence{cand: q.ray, ref: p.ray, q: q.Point, p: p.Point, dist: math.Sqrt(distSq)})
	}
	if params.OutliersRemoveDoubles {
		corr = removeDoubles(corr)
	}
	return rejectOutliers(corr, params.OutliersMaxPerc, params.OutliersAdaptiveOrder, params.OutliersAdaptiveMult)
}

// removeDoubles keeps, for every reference point, only its closest candidate.
func removeDoubles(corr []correspondence) []correspondence {
	best := make(map[int]int, len(corr))
	for i, c := range corr {
		if j, ok := best[c.ref]; !ok || c.dist < corr[j].dist {
			best[c.ref] = i
		}
	}
	kept := corr[:0]
	for i, c := range corr {
		if best[c.ref] == i {
			kept = append(kept, c)
		}
	}
	return kept
}

// rejectOutliers keeps the maxPerc closest correspondences, then drops those farther than mult
// times the order quantile of the distances.
func rejectOutliers(corr []correspondence, maxPerc, order, mult float64) []correspondence {
	if len(corr) == 0 {
		return corr
	}
	sort.SliceStable(corr, func(i, j int) bool { return corr[i].dist < corr[j].dist })
	keep := int(math.Floor(maxPerc * float64(len(corr))))
	if keep < 1 {
		keep = 1
	}
	corr = corr[:keep]

	dists := make([]float64, len(corr))
	for i, c := range corr {
		dists[i] = c.dist
	}
	threshold := mult * stat.Quantile(order, stat.Empirical, dists, nil)
	n := sort.SearchFloat64s(dists, math.Nextafter(threshold, math.Inf(1)))
	return corr[:n]
}

// align returns the rigid motion that best maps the candidate points onto their reference points.
func align(corr []correspondence) *spatialmath.PlanarPose {
	var meanP, meanQ r2.Point
	for _, c := range corr {
		meanP = meanP.Add(c.p)
		meanQ = meanQ.Add(c.q)
	}
	n := float64(len(corr))
	meanP = meanP.Mul(1 / n)
	meanQ = meanQ.Mul(1 / n)

	var dot, cross float64
	for _, c := range corr {
		q := c.q.Sub(meanQ)
		p := c.p.Sub(meanP)
		dot += q.Dot(p)
		cross += q.Cross(p)
	}
	theta := math.Atan2(cross, dot)
	cs, sn := math.Cos(theta), math.Sin(theta)
	return &spatialmath.PlanarPose{
		X:     meanP.X - (cs*meanQ.X - sn*meanQ.Y),
		Y:     meanP.Y - (sn*meanQ.X + cs*meanQ.Y),
		Theta: theta,
	}
}

func planar(v [3]float64) *spatialmath.PlanarPose {
	return &spatialmath.PlanarPose{X: v[0], Y: v[1], Theta: v[2]}
}

func (m *Matcher) logIgnored(params *scanmatch.Parameters) {
	var ignored []string
	for name, set := range map[string]bool{
		"use_point_to_line_distance": params.UsePointToLineDistance,
		"do_alpha_test":              params.DoAlphaTest,
		"do_visibility_test":         params.DoVisibilityTest,
		"use_ml_weights":             params.UseMLWeights,
		"use_sigma_weights":          params.UseSigmaWeights,
		"use_corr_tricks":            params.UseCorrTricks,
		"debug_verify_tricks":        params.DebugVerifyTricks,
	} {
		if set {
			ignored = append(ignored, name)
		}
	}
	if len(ignored) == 0 {
		return
	}
	sort.Strings(ignored)
	m.logger.Debugw("icp matcher ignores parameters", "parameters", strings.Join(ignored, ","),
		"orientation_neighbourhood", params.OrientationNeighbourhood)
}
