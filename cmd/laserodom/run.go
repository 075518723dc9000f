package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/laserodometry/config"
	"go.viam.com/laserodometry/lidar"
	"go.viam.com/laserodometry/logging"
	"go.viam.com/laserodometry/odometry"
	"go.viam.com/laserodometry/ros"
	"go.viam.com/laserodometry/scanmatch/icp"
	"go.viam.com/laserodometry/spatialmath"
	"go.viam.com/laserodometry/trajectory"
)

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// RunAction replays a bag through the odometer.
func RunAction(c *cli.Context, logger logging.Logger) (err error) {
	ctx := c.Context
	cfg, err := loadConfig(ctx, c, logger)
	if err != nil {
		return err
	}

	bag := c.Path(flagBag)
	topic := c.String(flagTopic)
	var start, end int64
	if t := c.Timestamp(flagStart); t != nil {
		start = t.UnixNano()
	}
	if t := c.Timestamp(flagEnd); t != nil {
		end = t.UnixNano()
	}
	rb, err := ros.ReadBag(bag)
	if err != nil {
		return err
	}
	scans, err := ros.LaserScans(rb, topic, ros.TimeFilter(start, end))
	if err != nil {
		return err
	}
	logger.Infow("read scans", "bag", bag, "topic", topic, "count", len(scans))

	matcher := icp.NewMatcher(logger.Sublogger("icp"), nil)
	odom := odometry.NewOdometer(matcher, logger.Sublogger("odometry"))
	defer func() {
		err = multierr.Combine(err, odom.Close())
	}()
	if err := odom.Configure(cfg.Odometry, cfg.LaserOffset); err != nil {
		return err
	}

	var run *trajectory.Run
	if path := c.Path(flagDB); path != "" {
		store, openErr := trajectory.Open(path, logger.Sublogger("trajectory"))
		if openErr != nil {
			return openErr
		}
		defer func() {
			err = multierr.Combine(err, store.Close())
		}()
		if run, err = store.BeginRun(ctx, filepath.Base(bag), topic, cfg.Odometry); err != nil {
			return err
		}
	}

	integ, err := replay(ctx, scans, odom, odometry.NewConstantVelocityPredictor(), run)
	if err != nil {
		return err
	}
	if run != nil {
		if err := run.Finish(ctx, odom.Stats()); err != nil {
			return err
		}
	}
	if path := c.Path(flagPlot); path != "" {
		if err := trajectory.PlotPNG(integ.Samples(), filepath.Base(bag)+" "+topic, path); err != nil {
			return err
		}
	}

	summary := trajectory.Summarize(integ.Samples())
	pose := integ.Pose()
	printf(c.App.Writer, "scans: %d failed: %d keyframes: %d path: %.3fm final pose: x=%.3f y=%.3f yaw=%.3f",
		summary.Steps+1, summary.Failed, summary.Keyframes, summary.PathLength, pose.X, pose.Y, pose.Theta)
	if run != nil {
		printf(c.App.Writer, "recorded run %s", run.ID)
	}
	return nil
}

func loadConfig(ctx context.Context, c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := &config.Config{
		Odometry:    odometry.DefaultConfig(),
		LaserOffset: spatialmath.NewPlanarIdentity(),
	}
	if path := c.Path(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(ctx, path, logger); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagLaserX) {
		cfg.LaserOffset.X = c.Float64(flagLaserX)
	}
	if c.IsSet(flagLaserY) {
		cfg.LaserOffset.Y = c.Float64(flagLaserY)
	}
	if c.IsSet(flagLaserYaw) {
		cfg.LaserOffset.Theta = c.Float64(flagLaserYaw)
	}
	return cfg, nil
}

// replay starts odom on the first scan and steps it through the rest, integrating the path and
// recording every step to run when it is set.
func replay(
	ctx context.Context,
	scans []*lidar.RangeScan,
	odom *odometry.Odometer,
	predictor odometry.Predictor,
	run *trajectory.Run,
) (*trajectory.Integrator, error) {
	if len(scans) == 0 {
		return nil, errors.New("no scans to process")
	}
	if err := odom.Start(scans[0]); err != nil {
		return nil, errors.Wrap(err, "failed to start odometry")
	}
	predictor.Reset(scans[0])
	integ := trajectory.NewIntegrator(nil, scans[0].Timestamp)

	for i, scan := range scans[1:] {
		if err := ctx.Err(); err != nil {
			return integ, err
		}
		res, err := odom.Step(scan, predictor.Predict(scan))
		if err != nil {
			return integ, errors.Wrapf(err, "failed to step scan %d", i+1)
		}
		predictor.Update(scan, res)
		pose := integ.Add(scan.Timestamp, res)
		if run == nil {
			continue
		}
		if err := run.Record(ctx, trajectory.Step{
			Timestamp:  scan.Timestamp,
			Valid:      res.Valid,
			Keyframe:   res.Keyframe,
			Increment:  spatialmath.ToPlanar(res.Increment),
			Pose:       pose,
			Covariance: res.Covariance,
		}); err != nil {
			return integ, err
		}
	}
	return integ, nil
}

// ListRunsAction prints the runs recorded in a database.
func ListRunsAction(c *cli.Context, logger logging.Logger) (err error) {
	store, err := trajectory.Open(c.Path(flagDB), logger.Sublogger("trajectory"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, store.Close())
	}()
	runs, err := store.Runs(c.Context)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", runsTable(runs))
	return nil
}

func runsTable(runs []trajectory.RunInfo) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Started", "Finished", "Source", "Topic", "Scans", "Failed", "Keyframes"})
	for _, r := range runs {
		finished := ""
		if !r.Finished.IsZero() {
			finished = r.Finished.Format(timeLayout)
		}
		t.AppendRow(table.Row{
			r.ID.String(),
			r.Started.Format(timeLayout),
			finished,
			r.Source,
			r.Topic,
			r.Stats.ScansProcessed,
			r.Stats.MatchesFailed,
			r.Stats.Keyframes,
		})
	}
	return t.Render()
}
