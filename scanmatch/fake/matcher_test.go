package fake

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/laserodometry/lidar"
	"go.viam.com/laserodometry/scanmatch"
)

func testInput(covariance bool) *scanmatch.Input {
	scan := &lidar.RangeScan{AngleIncrement: 0.1, RangeMin: 0.1, RangeMax: 10, Ranges: []float64{1, 2, 3}}
	table := lidar.NewAngleTable(scan)
	params := scanmatch.DefaultParameters()
	params.DoComputeCovariance = covariance
	return &scanmatch.Input{
		Reference: lidar.BuildFrame(scan, table),
		Candidate: lidar.BuildFrame(scan, table),
		Params:    params,
	}
}

func TestScriptedResponses(t *testing.T) {
	m := NewMatcher(
		Response{Valid: true, X: [3]float64{1, 2, 3}},
		Response{Valid: false},
	)
	res, err := m.Match(testInput(false))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Valid, test.ShouldBeTrue)
	test.That(t, res.X, test.ShouldResemble, [3]float64{1, 2, 3})
	test.That(t, res.Buffers, test.ShouldBeNil)

	for i := 0; i < 2; i++ {
		res, err = m.Match(testInput(false))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Valid, test.ShouldBeFalse)
	}
	test.That(t, len(m.Calls()), test.ShouldEqual, 3)
}

func TestEmptyScriptFails(t *testing.T) {
	res, err := NewMatcher().Match(testInput(false))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Valid, test.ShouldBeFalse)
}

func TestScriptedError(t *testing.T) {
	m := NewMatcher(Response{Err: errors.New("boom")})
	_, err := m.Match(testInput(false))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCovarianceBuffers(t *testing.T) {
	m := NewMatcher(Response{Valid: true, CovX: [9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}})
	res, err := m.Match(testInput(true))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Buffers.CovX.At(0, 2), test.ShouldEqual, 3.0)
	test.That(t, res.Buffers.CovX.At(2, 0), test.ShouldEqual, 7.0)
	test.That(t, m.Pool().Live(), test.ShouldEqual, 1)
	test.That(t, res.Buffers.Release(), test.ShouldBeNil)
	test.That(t, m.Pool().Live(), test.ShouldEqual, 0)
}

func TestCallsRecordInputs(t *testing.T) {
	m := NewMatcher(Response{Valid: true})
	in := testInput(false)
	in.FirstGuess = [3]float64{0.1, 0, 0}
	_, err := m.Match(in)
	test.That(t, err, test.ShouldBeNil)

	in.Reference.Release()
	calls := m.Calls()
	test.That(t, calls[0].Input.FirstGuess, test.ShouldResemble, [3]float64{0.1, 0, 0})
	test.That(t, calls[0].Reference.Len(), test.ShouldEqual, 3)
}
