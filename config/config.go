// Package config reads laser odometry configuration files.
package config

import (
	"go.viam.com/utils"

	"go.viam.com/laserodometry/odometry"
	"go.viam.com/laserodometry/spatialmath"
)

// Config is a parsed configuration file.
type Config struct {
	ConfigFilePath string

	// Odometry holds the keyframe thresholds and scan matcher parameters.
	Odometry *odometry.Config
	// LaserOffset is the pose of the laser on the robot. It is the identity when unset.
	LaserOffset *spatialmath.PlanarPose
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if c.Odometry == nil {
		return utils.NewConfigValidationFieldRequiredError("", "odometry")
	}
	return c.Odometry.Validate("odometry")
}
