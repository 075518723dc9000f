package icp

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/laserodometry/scanmatch"
	"go.viam.com/laserodometry/spatialmath"
)

// normalMatrixCondLimit bounds the condition number of an invertible normal matrix.
const normalMatrixCondLimit = 1e12

// rotationDerivative returns dR(theta)/dtheta applied to q.
func rotationDerivative(theta float64, q r2.Point) r2.Point {
	c, s := math.Cos(theta), math.Sin(theta)
	return r2.Point{X: -s*q.X - c*q.Y, Y: c*q.X - s*q.Y}
}

// normalInverse returns the inverse of the Gauss-Newton normal matrix of the point-to-point cost at
// x. It is false when the correspondences do not constrain all three degrees of freedom.
func normalInverse(x *spatialmath.PlanarPose, corr []correspondence) (*mat.SymDense, bool) {
	var sumA, sumB, sumAB float64
	for _, c := range corr {
		d := rotationDerivative(x.Theta, c.q)
		sumA += d.X
		sumB += d.Y
		sumAB += d.Dot(d)
	}
	n := float64(len(corr))
	normal := mat.NewSymDense(3, []float64{
		n, 0, sumA,
		0, n, sumB,
		sumA, sumB, sumAB,
	})
	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok || chol.Cond() > normalMatrixCondLimit {
		return nil, false
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, false
	}
	return &inv, true
}

// covariance fills a buffer set with the first order sensitivity of the robot frame estimate to
// every reading of both frames and the resulting covariance for reading noise sigma.
func (m *Matcher) covariance(in *scanmatch.Input, sol solution, inv *mat.SymDense,
	laser *spatialmath.PlanarPose, sigma float64,
) *scanmatch.Buffers {
	buffers := m.pool.Acquire(in.Reference.Len(), in.Candidate.Len())
	c, s := math.Cos(sol.x.Theta), math.Sin(sol.x.Theta)

	column := func(v r2.Point, d r2.Point) [3]float64 {
		jt := mat.NewVecDense(3, []float64{v.X, v.Y, d.Dot(v)})
		var out mat.VecDense
		out.MulVec(inv, jt)
		return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
	}
	for _, corr := range sol.corr {
		d := rotationDerivative(sol.x.Theta, corr.q)

		refBearing := in.Reference.Points[corr.ref].Bearing
		dRef := column(r2.Point{X: math.Cos(refBearing), Y: math.Sin(refBearing)}, d)

		candBearing := in.Candidate.Points[corr.cand].Bearing
		u := r2.Point{X: math.Cos(candBearing), Y: math.Sin(candBearing)}
		dCand := column(r2.Point{X: c*u.X - s*u.Y, Y: s*u.X + c*u.Y}, d)

		for row := 0; row < 3; row++ {
			buffers.DxDy1.Set(row, corr.ref, buffers.DxDy1.At(row, corr.ref)+dRef[row])
			buffers.DxDy2.Set(row, corr.cand, buffers.DxDy2.At(row, corr.cand)-dCand[row])
		}
	}

	toRobot := laserJacobian(laser, sol.x.Theta)
	var tmp mat.Dense
	tmp.Mul(toRobot, buffers.DxDy1)
	buffers.DxDy1.Copy(&tmp)
	tmp.Reset()
	tmp.Mul(toRobot, buffers.DxDy2)
	buffers.DxDy2.Copy(&tmp)

	var second mat.Dense
	buffers.CovX.Mul(buffers.DxDy1, buffers.DxDy1.T())
	second.Mul(buffers.DxDy2, buffers.DxDy2.T())
	buffers.CovX.Add(buffers.CovX, &second)
	buffers.CovX.Scale(sigma*sigma, buffers.CovX)
	return buffers
}

// laserJacobian is the derivative of laser ∘ x ∘ laser⁻¹ with respect to x, evaluated at heading
// theta.
func laserJacobian(laser *spatialmath.PlanarPose, theta float64) *mat.Dense {
	cl, sl := math.Cos(laser.Theta), math.Sin(laser.Theta)
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(3, 3, []float64{
		cl, -sl, s*laser.X + c*laser.Y,
		sl, cl, -c*laser.X + s*laser.Y,
		0, 0, 1,
	})
}
