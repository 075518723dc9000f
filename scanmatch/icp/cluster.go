package icp

import (
	"math"

	"go.viam.com/laserodometry/lidar"
)

// clusterLabels labels runs of consecutive valid readings whose ranges differ by no more than
// threshold. Invalid readings keep lidar.NoCluster and do not break a run. The frame is not
// modified; labels[i] belongs to frame.Points[i].
func clusterLabels(frame *lidar.PointFrame, threshold float64) ([]int, int) {
	labels := make([]int, len(frame.Points))
	cluster := -1
	last := math.NaN()
	for i, p := range frame.Points {
		labels[i] = lidar.NoCluster
		if !p.Valid {
			continue
		}
		if math.IsNaN(last) || math.Abs(p.Range-last) > threshold {
			cluster++
		}
		labels[i] = cluster
		last = p.Range
	}
	return labels, cluster + 1
}
