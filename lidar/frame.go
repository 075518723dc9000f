package lidar

import (
	"math"
	"sync"

	"github.com/golang/geo/r2"
)

// InvalidReading replaces the range of every reading outside the sensor bounds.
const InvalidReading = -1.0

// NoCluster marks a point that has not been assigned a cluster.
const NoCluster = -1

// Point is one reading of a PointFrame.
type Point struct {
	Range   float64
	Valid   bool
	Bearing float64
	Cluster int
}

// PointFrame is a validity-tagged planar point cloud in the sensor frame, indexed like the scan it
// was built from.
//
// Odometry, Estimate and TruePose are carried for scan matchers that expect them; they are always
// zero here.
type PointFrame struct {
	Points     []Point
	MinBearing float64
	MaxBearing float64

	Odometry [3]float64
	Estimate [3]float64
	TruePose [3]float64

	released bool
}

var framePool = sync.Pool{
	New: func() interface{} {
		return &PointFrame{}
	},
}

func newPointFrame(n int) *PointFrame {
	//nolint:errcheck,forcetypeassert
	frame := framePool.Get().(*PointFrame)
	if cap(frame.Points) < n {
		frame.Points = make([]Point, n)
	} else {
		frame.Points = frame.Points[:n]
	}
	frame.MinBearing = 0
	frame.MaxBearing = 0
	frame.released = false
	return frame
}

// Len returns the number of points, valid or not.
func (f *PointFrame) Len() int {
	return len(f.Points)
}

// NumValid returns the number of valid points.
func (f *PointFrame) NumValid() int {
	count := 0
	for _, p := range f.Points {
		if p.Valid {
			count++
		}
	}
	return count
}

// Cartesian returns point i in the sensor frame.
func (f *PointFrame) Cartesian(i int) r2.Point {
	p := f.Points[i]
	return r2.Point{X: p.Range * math.Cos(p.Bearing), Y: p.Range * math.Sin(p.Bearing)}
}

// ZeroLegacy zeroes the odometry, estimate and true pose vectors.
func (f *PointFrame) ZeroLegacy() {
	f.Odometry = [3]float64{}
	f.Estimate = [3]float64{}
	f.TruePose = [3]float64{}
}

// ResetClusters marks every point as unclustered.
func (f *PointFrame) ResetClusters() {
	for i := range f.Points {
		f.Points[i].Cluster = NoCluster
	}
}

// Clone returns a deep copy of the frame that is not backed by the frame pool.
func (f *PointFrame) Clone() *PointFrame {
	cloned := *f
	cloned.Points = append([]Point(nil), f.Points...)
	return &cloned
}

// Released returns whether Release has been called on the frame.
func (f *PointFrame) Released() bool {
	return f.released
}

// Release hands the frame's storage back for reuse. The frame must not be used afterwards.
// Releasing a nil or already released frame does nothing.
func (f *PointFrame) Release() {
	if f == nil || f.released {
		return
	}
	f.released = true
	f.Points = f.Points[:0]
	f.ZeroLegacy()
	framePool.Put(f)
}
