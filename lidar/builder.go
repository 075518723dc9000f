package lidar

// BuildFrame converts scan into a PointFrame using the bearings of table, which must have been
// built for the same number of readings.
//
// A reading r is valid when table.MinReading < r < table.MaxReading; every other reading,
// including the bounds themselves and NaN, is stored as InvalidReading. Min and max bearing are
// taken from the first and last cached angles, assuming they are non-decreasing.
func BuildFrame(scan *RangeScan, table *AngleTable) *PointFrame {
	frame := newPointFrame(len(scan.Ranges))

	for i, r := range scan.Ranges {
		p := &frame.Points[i]
		if r > table.MinReading && r < table.MaxReading {
			p.Valid = true
			p.Range = r
		} else {
			p.Valid = false
			p.Range = InvalidReading
		}
		p.Bearing = table.Angles[i]
		p.Cluster = NoCluster
	}

	if n := len(table.Angles); n > 0 {
		frame.MinBearing = table.Angles[0]
		frame.MaxBearing = table.Angles[n-1]
	}
	frame.ZeroLegacy()

	return frame
}
