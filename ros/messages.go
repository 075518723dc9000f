package ros

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/laserodometry/lidar"
)

// Stamp is a ROS time.
type Stamp struct {
	Secs  int64
	Nsecs int64
}

// Time converts the stamp to a time.Time. The zero stamp is the zero time.
func (s Stamp) Time() time.Time {
	if s.Secs == 0 && s.Nsecs == 0 {
		return time.Time{}
	}
	return time.Unix(s.Secs, s.Nsecs)
}

// Header is a std_msgs/Header.
type Header struct {
	Seq     int
	Stamp   Stamp
	FrameID string `json:"frame_id"`
}

// Range is a single range reading. It accepts the non-finite encodings bag exporters use for
// missing returns.
type Range float64

// UnmarshalJSON decodes a number, null, or a string such as "inf" or "NaN".
func (r *Range) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Range(math.NaN())
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(s) {
		case "inf", "+inf", "infinity", "+infinity":
			*r = Range(math.Inf(1))
		case "-inf", "-infinity":
			*r = Range(math.Inf(-1))
		case "nan":
			*r = Range(math.NaN())
		default:
			return errors.Errorf("invalid range %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Range(f)
	return nil
}

// LaserScanMessage is a sensor_msgs/LaserScan as exported from a bag.
type LaserScanMessage struct {
	Meta Stamp
	Data struct {
		Header         Header
		AngleMin       float64 `json:"angle_min"`
		AngleMax       float64 `json:"angle_max"`
		AngleIncrement float64 `json:"angle_increment"`
		TimeIncrement  float64 `json:"time_increment"`
		ScanTime       float64 `json:"scan_time"`
		RangeMin       float64 `json:"range_min"`
		RangeMax       float64 `json:"range_max"`
		Ranges         []Range
		Intensities    []float64
	}
}

// RangeScan converts the message to a lidar.RangeScan. The header stamp is used when set,
// otherwise the bag record time.
func (m *LaserScanMessage) RangeScan() *lidar.RangeScan {
	stamp := m.Data.Header.Stamp.Time()
	if stamp.IsZero() {
		stamp = m.Meta.Time()
	}
	ranges := make([]float64, len(m.Data.Ranges))
	for i, r := range m.Data.Ranges {
		ranges[i] = float64(r)
	}
	return &lidar.RangeScan{
		Timestamp:      stamp,
		FrameID:        m.Data.Header.FrameID,
		AngleMin:       m.Data.AngleMin,
		AngleIncrement: m.Data.AngleIncrement,
		RangeMin:       m.Data.RangeMin,
		RangeMax:       m.Data.RangeMax,
		Ranges:         ranges,
	}
}
