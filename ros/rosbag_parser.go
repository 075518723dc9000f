// Package ros reads laser scans out of ROS bags.
package ros

import (
	"encoding/json"
	"io"
	"os"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/laserodometry/lidar"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// TimeFilter returns a filter over bag record timestamps in nanoseconds. A zero bound leaves that
// side open.
func TimeFilter(startTime, endTime int64) func(int64) bool {
	return func(timestamp int64) bool {
		if startTime != 0 && timestamp < startTime {
			return false
		}
		if endTime != 0 && timestamp > endTime {
			return false
		}
		return true
	}
}

// LaserScans returns every sensor_msgs/LaserScan on topic, in bag order, within the time filter.
// A nil filter keeps everything.
func LaserScans(rb *rosbag.RosBag, topic string, timeFilter func(int64) bool) ([]*lidar.RangeScan, error) {
	if timeFilter == nil {
		timeFilter = TimeFilter(0, 0)
	}
	if err := rb.ParseTopicsToJSON(
		"",
		timeFilter,
		func(t string) bool { return t == topic },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs := rb.TopicsAsJSON[topic]
	if msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}
	return decodeLaserScans(msgs)
}

// ReadLaserScans reads the bag at filename and returns the laser scans on topic.
func ReadLaserScans(filename, topic string) ([]*lidar.RangeScan, error) {
	rb, err := ReadBag(filename)
	if err != nil {
		return nil, err
	}
	return LaserScans(rb, topic, nil)
}

type lineReader interface {
	ReadBytes(delim byte) ([]byte, error)
}

// decodeLaserScans decodes newline separated LaserScan messages.
func decodeLaserScans(msgs lineReader) ([]*lidar.RangeScan, error) {
	var scans []*lidar.RangeScan
	for {
		data, err := msgs.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if len(data) > 0 && !(len(data) == 1 && data[0] == '\n') {
			var message LaserScanMessage
			if jsonErr := json.Unmarshal(data, &message); jsonErr != nil {
				return nil, errors.Wrapf(jsonErr, "failed to decode laser scan %d", len(scans))
			}
			scans = append(scans, message.RangeScan())
		}
		if err != nil {
			break
		}
	}
	return scans, nil
}
