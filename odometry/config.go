package odometry

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/laserodometry/scanmatch"
)

// Config configures an Odometer. The scan matcher parameters are inlined beside the keyframe
// thresholds so a single flat document configures both.
type Config struct {
	// KFDistLinear is the translation, in meters, beyond which a scan becomes a keyframe.
	KFDistLinear float64 `json:"kf_dist_linear"`
	// KFDistAngular is the rotation, in radians, beyond which a scan becomes a keyframe.
	KFDistAngular float64 `json:"kf_dist_angular"`

	scanmatch.Parameters `json:",squash"`
}

// DefaultConfig returns the default odometry configuration.
func DefaultConfig() *Config {
	return &Config{
		KFDistLinear:  0.10,
		KFDistAngular: 10.0 * math.Pi / 180.0,
		Parameters:    scanmatch.DefaultParameters(),
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if math.IsNaN(cfg.KFDistLinear) || cfg.KFDistLinear < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("kf_dist_linear cannot be negative, got %v", cfg.KFDistLinear))
	}
	if math.IsNaN(cfg.KFDistAngular) || cfg.KFDistAngular < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("kf_dist_angular cannot be negative, got %v", cfg.KFDistAngular))
	}
	return cfg.Parameters.Validate(path)
}
