package icp

import (
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/spatial/kdtree"

	"go.viam.com/laserodometry/lidar"
)

// indexedPoint is a Cartesian reading that remembers which ray of its frame it came from.
type indexedPoint struct {
	r2.Point
	ray int
}

// Compare satisfies kdtree.Comparable.
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	//nolint:forcetypeassert
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

// Dims satisfies kdtree.Comparable.
func (p indexedPoint) Dims() int { return 2 }

// Distance returns the squared distance between p and c.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	//nolint:forcetypeassert
	q := c.(indexedPoint)
	d := p.Sub(q.Point)
	return d.Dot(d)
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                               { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int                 { return plane{indexedPoints: p, Dim: d}.Pivot() }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	indexedPoints
}

func (p plane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.indexedPoints[i].X < p.indexedPoints[j].X
	}
	return p.indexedPoints[i].Y < p.indexedPoints[j].Y
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.indexedPoints = p.indexedPoints[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// validPoints projects the valid readings of frame to Cartesian coordinates.
func validPoints(frame *lidar.PointFrame) indexedPoints {
	pts := make(indexedPoints, 0, frame.Len())
	for i, p := range frame.Points {
		if !p.Valid {
			continue
		}
		pts = append(pts, indexedPoint{Point: frame.Cartesian(i), ray: i})
	}
	return pts
}

// newTree indexes pts for nearest neighbour queries. pts is reordered.
func newTree(pts indexedPoints) *kdtree.Tree {
	return kdtree.New(pts, false)
}
