package main

import (
	"bytes"
	"context"
	"flag"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
	"go.viam.com/test"

	"go.viam.com/laserodometry/lidar"
	"go.viam.com/laserodometry/logging"
	"go.viam.com/laserodometry/odometry"
	"go.viam.com/laserodometry/scanmatch/fake"
	"go.viam.com/laserodometry/spatialmath"
	"go.viam.com/laserodometry/trajectory"
)

func testScans(n int) []*lidar.RangeScan {
	scans := make([]*lidar.RangeScan, n)
	for i := range scans {
		ranges := make([]float64, 90)
		for j := range ranges {
			ranges[j] = 2
		}
		scans[i] = &lidar.RangeScan{
			AngleMin:       -math.Pi / 4,
			AngleIncrement: math.Pi / 180,
			RangeMin:       0.1,
			RangeMax:       10,
			Ranges:         ranges,
		}
	}
	return scans
}

func TestReplay(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	matcher := fake.NewMatcher(
		fake.Response{Valid: true, X: [3]float64{0.05, 0, 0}},
		fake.Response{Valid: true, X: [3]float64{0.15, 0, 0}},
		fake.Response{Valid: false},
		fake.Response{Valid: true, X: [3]float64{0.05, 0, 0}},
	)
	odom := odometry.NewOdometer(matcher, logger)
	test.That(t, odom.Configure(odometry.DefaultConfig(), nil), test.ShouldBeNil)
	defer odom.Close()

	store, err := trajectory.Open(filepath.Join(t.TempDir(), "runs.db"), logger)
	test.That(t, err, test.ShouldBeNil)
	defer store.Close()
	run, err := store.BeginRun(ctx, "test.bag", "/scan", odometry.DefaultConfig())
	test.That(t, err, test.ShouldBeNil)

	integ, err := replay(ctx, testScans(5), odom, odometry.ZeroPredictor{}, run)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, integ.Pose().X, test.ShouldAlmostEqual, 0.2)
	test.That(t, odom.Stats(), test.ShouldResemble, odometry.Stats{ScansProcessed: 4, MatchesFailed: 1, Keyframes: 1})

	steps, err := store.Steps(ctx, run.ID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(steps), test.ShouldEqual, 4)
	test.That(t, steps[1].Keyframe, test.ShouldBeTrue)
	test.That(t, steps[2].Valid, test.ShouldBeFalse)
	test.That(t, steps[3].Pose.X, test.ShouldAlmostEqual, 0.2)
}

func TestReplayNoScans(t *testing.T) {
	odom := odometry.NewOdometer(fake.NewMatcher(), logging.NewTestLogger(t))
	_, err := replay(context.Background(), nil, odom, odometry.ZeroPredictor{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadConfigLaserOverrides(t *testing.T) {
	set := flag.NewFlagSet("run", flag.ContinueOnError)
	set.String(flagConfig, "", "")
	set.Float64(flagLaserX, 0, "")
	set.Float64(flagLaserY, 0, "")
	set.Float64(flagLaserYaw, 0, "")
	test.That(t, set.Parse([]string{"--" + flagLaserX, "0.25", "--" + flagLaserYaw, "1.5"}), test.ShouldBeNil)

	app := cli.NewApp()
	app.Writer = &bytes.Buffer{}
	c := cli.NewContext(app, set, nil)
	cfg, err := loadConfig(context.Background(), c, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.LaserOffset.Array(), test.ShouldResemble, [3]float64{0.25, 0, 1.5})
	test.That(t, cfg.Odometry, test.ShouldResemble, odometry.DefaultConfig())
	test.That(t, spatialmath.ToPlanar(cfg.LaserOffset).Theta, test.ShouldEqual, 1.5)
}

func TestRunActionMissingBag(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"laserodom", "run", "--bag", filepath.Join(t.TempDir(), "missing.bag")})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store, err := trajectory.Open(dbPath, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	run, err := store.BeginRun(ctx, "hallway.bag", "/scan", odometry.DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, run.Finish(ctx, odometry.Stats{ScansProcessed: 41, MatchesFailed: 2, Keyframes: 7}), test.ShouldBeNil)
	test.That(t, store.Close(), test.ShouldBeNil)

	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out
	test.That(t, app.Run([]string{"laserodom", "runs", "--db", dbPath}), test.ShouldBeNil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	test.That(t, len(lines), test.ShouldBeGreaterThanOrEqualTo, 2)
	test.That(t, out.String(), test.ShouldContainSubstring, "KEYFRAMES")
	test.That(t, out.String(), test.ShouldContainSubstring, run.ID.String())
	test.That(t, out.String(), test.ShouldContainSubstring, "hallway.bag")
	test.That(t, out.String(), test.ShouldContainSubstring, "41")
}
