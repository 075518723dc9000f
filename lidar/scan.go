// Package lidar converts planar range scans into validity-tagged point frames for scan matching.
//
// A RangeScan is a single sweep from a planar range finder. Bearings are derived from the scan
// geometry once and cached in an AngleTable, which is only rebuilt when the number of readings
// changes. A PointFrame is the structured form handed to a scan matcher: every reading keeps its
// index, bearing and a validity flag, and invalid readings are replaced by InvalidReading.
package lidar

import "time"

// RangeScan is a single sweep of a planar range finder. Ranges[0] is measured at AngleMin and every
// following reading is AngleIncrement further along.
type RangeScan struct {
	Timestamp      time.Time
	FrameID        string
	AngleMin       float64
	AngleIncrement float64
	RangeMin       float64
	RangeMax       float64
	Ranges         []float64
}

// Len returns the number of readings in the scan.
func (s *RangeScan) Len() int {
	return len(s.Ranges)
}

// AngleMax returns the bearing of the last reading.
func (s *RangeScan) AngleMax() float64 {
	if len(s.Ranges) == 0 {
		return s.AngleMin
	}
	return s.AngleMin + float64(len(s.Ranges)-1)*s.AngleIncrement
}
