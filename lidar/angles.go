package lidar

// AngleTable caches the bearing of every reading index for one scan geometry, along with the
// reading bounds of the scan that produced it.
type AngleTable struct {
	Angles     []float64
	MinReading float64
	MaxReading float64
}

// NewAngleTable computes the bearings for scan.
func NewAngleTable(scan *RangeScan) *AngleTable {
	n := len(scan.Ranges)
	table := &AngleTable{
		Angles:     make([]float64, n),
		MinReading: scan.RangeMin,
		MaxReading: scan.RangeMax,
	}
	for i := 0; i < n; i++ {
		table.Angles[i] = scan.AngleMin + float64(i)*scan.AngleIncrement
	}
	return table
}

// Len returns the number of cached bearings.
func (t *AngleTable) Len() int {
	return len(t.Angles)
}

// AngleCache holds the AngleTable for the scans currently being processed.
//
// A changed geometry is detected only through a changed reading count. A sensor that changes its
// angular resolution or reading bounds while keeping the same count keeps the old table.
type AngleCache struct {
	table *AngleTable
}

// Ensure rebuilds the table if its length differs from the number of readings in scan. It
// returns whether a rebuild happened.
func (c *AngleCache) Ensure(scan *RangeScan) bool {
	if c.table != nil && len(c.table.Angles) == len(scan.Ranges) {
		return false
	}
	c.Rebuild(scan)
	return true
}

// Rebuild unconditionally replaces the table with one computed from scan.
func (c *AngleCache) Rebuild(scan *RangeScan) {
	c.table = NewAngleTable(scan)
}

// Table returns the current table, or nil if nothing has been cached yet.
func (c *AngleCache) Table() *AngleTable {
	return c.table
}
