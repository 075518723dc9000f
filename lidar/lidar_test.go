package lidar

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func uniformScan(n int, rangeMin, rangeMax float64) *RangeScan {
	scan := &RangeScan{
		AngleMin:       -math.Pi,
		AngleIncrement: 2 * math.Pi / float64(n),
		RangeMin:       rangeMin,
		RangeMax:       rangeMax,
		Ranges:         make([]float64, n),
	}
	step := (rangeMax - rangeMin) / float64(n+1)
	for i := range scan.Ranges {
		scan.Ranges[i] = rangeMin + float64(i+1)*step
	}
	return scan
}

func TestAngleTable(t *testing.T) {
	scan := &RangeScan{AngleMin: -1, AngleIncrement: 0.5, RangeMin: 0.2, RangeMax: 4, Ranges: []float64{1, 1, 1, 1, 1}}
	table := NewAngleTable(scan)
	test.That(t, table.Angles, test.ShouldResemble, []float64{-1, -0.5, 0, 0.5, 1})
	test.That(t, table.MinReading, test.ShouldEqual, 0.2)
	test.That(t, table.MaxReading, test.ShouldEqual, 4.)
	test.That(t, table.Len(), test.ShouldEqual, 5)
	test.That(t, scan.AngleMax(), test.ShouldEqual, 1.)
}

func TestAngleCacheEnsure(t *testing.T) {
	var cache AngleCache
	test.That(t, cache.Table(), test.ShouldBeNil)

	first := uniformScan(360, 0.1, 10)
	test.That(t, cache.Ensure(first), test.ShouldBeTrue)
	table := cache.Table()
	test.That(t, table.Len(), test.ShouldEqual, 360)

	t.Run("same length keeps the table", func(t *testing.T) {
		again := uniformScan(360, 0.1, 10)
		test.That(t, cache.Ensure(again), test.ShouldBeFalse)
		test.That(t, cache.Table(), test.ShouldEqual, table)
	})

	t.Run("resolution change with the same length is not detected", func(t *testing.T) {
		other := uniformScan(360, 0.5, 20)
		other.AngleIncrement /= 2
		test.That(t, cache.Ensure(other), test.ShouldBeFalse)
		test.That(t, cache.Table(), test.ShouldEqual, table)
		test.That(t, cache.Table().MaxReading, test.ShouldEqual, 10.)
	})

	t.Run("length change rebuilds", func(t *testing.T) {
		smaller := uniformScan(180, 0.5, 20)
		test.That(t, cache.Ensure(smaller), test.ShouldBeTrue)
		test.That(t, cache.Table(), test.ShouldNotEqual, table)
		test.That(t, cache.Table().Len(), test.ShouldEqual, 180)
		test.That(t, cache.Table().MinReading, test.ShouldEqual, 0.5)
		test.That(t, cache.Table().MaxReading, test.ShouldEqual, 20.)
	})
}

func TestBuildFrameValidity(t *testing.T) {
	scan := &RangeScan{
		AngleMin:       0,
		AngleIncrement: 0.1,
		RangeMin:       0.1,
		RangeMax:       10,
		Ranges:         []float64{0.1, 0.1000001, 5, 9.999, 10, 12, math.NaN(), -1, 0},
	}
	var cache AngleCache
	cache.Ensure(scan)
	frame := BuildFrame(scan, cache.Table())
	defer frame.Release()

	expectedValid := []bool{false, true, true, true, false, false, false, false, false}
	test.That(t, frame.Len(), test.ShouldEqual, len(expectedValid))
	for i, p := range frame.Points {
		test.That(t, p.Valid, test.ShouldEqual, expectedValid[i])
		if p.Valid {
			test.That(t, p.Range, test.ShouldEqual, scan.Ranges[i])
		} else {
			test.That(t, p.Range, test.ShouldEqual, InvalidReading)
		}
		test.That(t, p.Bearing, test.ShouldEqual, cache.Table().Angles[i])
		test.That(t, p.Cluster, test.ShouldEqual, NoCluster)
	}
	test.That(t, frame.NumValid(), test.ShouldEqual, 3)
	test.That(t, frame.MinBearing, test.ShouldEqual, 0.)
	test.That(t, frame.MaxBearing, test.ShouldAlmostEqual, 0.8)
	test.That(t, frame.Odometry, test.ShouldResemble, [3]float64{})
	test.That(t, frame.Estimate, test.ShouldResemble, [3]float64{})
	test.That(t, frame.TruePose, test.ShouldResemble, [3]float64{})
}

func TestBuildFrameUniform(t *testing.T) {
	scan := uniformScan(360, 0.1, 10)
	var cache AngleCache
	cache.Ensure(scan)
	frame := BuildFrame(scan, cache.Table())
	test.That(t, frame.NumValid(), test.ShouldEqual, 360)
	test.That(t, frame.MinBearing, test.ShouldEqual, -math.Pi)
	test.That(t, frame.MaxBearing, test.ShouldAlmostEqual, math.Pi-2*math.Pi/360)
}

func TestBuildFrameEmpty(t *testing.T) {
	scan := &RangeScan{RangeMin: 0.1, RangeMax: 10}
	var cache AngleCache
	test.That(t, cache.Ensure(scan), test.ShouldBeTrue)
	frame := BuildFrame(scan, cache.Table())
	test.That(t, frame.Len(), test.ShouldEqual, 0)
	test.That(t, frame.NumValid(), test.ShouldEqual, 0)
	test.That(t, frame.MinBearing, test.ShouldEqual, 0.)
	test.That(t, frame.MaxBearing, test.ShouldEqual, 0.)
}

func TestFrameCartesianAndClone(t *testing.T) {
	scan := &RangeScan{AngleMin: 0, AngleIncrement: math.Pi / 2, RangeMin: 0.1, RangeMax: 10, Ranges: []float64{2, 3}}
	frame := BuildFrame(scan, NewAngleTable(scan))

	p0 := frame.Cartesian(0)
	test.That(t, p0.X, test.ShouldAlmostEqual, 2)
	test.That(t, p0.Y, test.ShouldAlmostEqual, 0)
	p1 := frame.Cartesian(1)
	test.That(t, p1.X, test.ShouldAlmostEqual, 0)
	test.That(t, p1.Y, test.ShouldAlmostEqual, 3)

	cloned := frame.Clone()
	cloned.Points[0].Range = 7
	test.That(t, frame.Points[0].Range, test.ShouldEqual, 2.)

	frame.Points[1].Cluster = 4
	frame.ResetClusters()
	test.That(t, frame.Points[1].Cluster, test.ShouldEqual, NoCluster)
}

func TestFrameRelease(t *testing.T) {
	scan := uniformScan(10, 0.1, 10)
	frame := BuildFrame(scan, NewAngleTable(scan))
	test.That(t, frame.Released(), test.ShouldBeFalse)
	frame.Release()
	test.That(t, frame.Released(), test.ShouldBeTrue)
	test.That(t, frame.Len(), test.ShouldEqual, 0)
	frame.Release()

	var nilFrame *PointFrame
	nilFrame.Release()
}
