// Package main is the laserodom command: it replays laser scans from a ROS bag through the
// odometer.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"go.viam.com/laserodometry/logging"
)

const (
	// Flags.
	flagBag      = "bag"
	flagTopic    = "topic"
	flagConfig   = "config"
	flagDB       = "db"
	flagPlot     = "plot"
	flagLaserX   = "laser-x"
	flagLaserY   = "laser-y"
	flagLaserYaw = "laser-yaw"
	flagStart    = "start"
	flagEnd      = "end"
	flagDebug    = "debug"
	flagLogFile  = "log-file"

	timeLayout = "2006-01-02T15:04:05"
)

func newApp() *cli.App {
	var logger logging.Logger

	return &cli.App{
		Name:  "laserodom",
		Usage: "estimate planar robot motion from laser scans",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to the rotated `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			switch {
			case c.Path(flagLogFile) != "":
				logger = logging.NewFileLogger("laserodom", c.Path(flagLogFile), c.Bool(flagDebug))
			case c.Bool(flagDebug):
				logger = logging.NewDebugLogger("laserodom")
			default:
				logger = logging.NewLogger("laserodom")
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run odometry over the laser scans of a bag",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagBag,
						Required: true,
						Usage:    "ROS bag to read scans from",
					},
					&cli.StringFlag{
						Name:  flagTopic,
						Value: "/scan",
						Usage: "sensor_msgs/LaserScan topic",
					},
					&cli.PathFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load odometry configuration from `FILE`",
					},
					&cli.PathFlag{
						Name:  flagDB,
						Usage: "record the run in the sqlite database at `FILE`",
					},
					&cli.PathFlag{
						Name:  flagPlot,
						Usage: "save a plot of the path to `FILE`",
					},
					&cli.Float64Flag{
						Name:  flagLaserX,
						Usage: "laser x offset on the robot in meters, overriding the config",
					},
					&cli.Float64Flag{
						Name:  flagLaserY,
						Usage: "laser y offset on the robot in meters, overriding the config",
					},
					&cli.Float64Flag{
						Name:  flagLaserYaw,
						Usage: "laser heading on the robot in radians, overriding the config",
					},
					&cli.TimestampFlag{
						Name:   flagStart,
						Layout: timeLayout,
						Usage:  "skip scans recorded before this time",
					},
					&cli.TimestampFlag{
						Name:   flagEnd,
						Layout: timeLayout,
						Usage:  "skip scans recorded after this time",
					},
				},
				Action: func(c *cli.Context) error {
					return RunAction(c, logger)
				},
			},
			{
				Name:  "runs",
				Usage: "list the runs recorded in a database",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagDB,
						Required: true,
						Usage:    "sqlite database `FILE`",
					},
				},
				Action: func(c *cli.Context) error {
					return ListRunsAction(c, logger)
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
