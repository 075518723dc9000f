package scanmatch

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Parameters are the tuning knobs of a scan matcher. They are handed to the matcher unchanged on
// every call; the names follow the Canonical Scan Matcher conventions. A matcher is free to ignore
// knobs it has no use for.
type Parameters struct {
	// Largest correction, relative to the first guess, the matcher may return.
	MaxAngularCorrectionDeg float64 `json:"max_angular_correction_deg"`
	MaxLinearCorrection     float64 `json:"max_linear_correction"`

	MaxIterations int     `json:"max_iterations"`
	EpsilonXY     float64 `json:"epsilon_xy"`
	EpsilonTheta  float64 `json:"epsilon_theta"`

	MaxCorrespondenceDist float64 `json:"max_correspondence_dist"`
	// Noise of a single reading, used for the covariance estimate.
	Sigma         float64 `json:"sigma"`
	UseCorrTricks bool    `json:"use_corr_tricks"`

	Restart                   bool    `json:"restart"`
	RestartThresholdMeanError float64 `json:"restart_threshold_mean_error"`
	RestartDT                 float64 `json:"restart_dt"`
	RestartDTheta             float64 `json:"restart_dtheta"`

	ClusteringThreshold      float64 `json:"clustering_threshold"`
	OrientationNeighbourhood int     `json:"orientation_neighbourhood"`
	UsePointToLineDistance   bool    `json:"use_point_to_line_distance"`
	DoAlphaTest              bool    `json:"do_alpha_test"`
	DoAlphaTestThresholdDeg  float64 `json:"do_alpha_test_thresholdDeg"`

	OutliersMaxPerc       float64 `json:"outliers_maxPerc"`
	OutliersAdaptiveOrder float64 `json:"outliers_adaptive_order"`
	OutliersAdaptiveMult  float64 `json:"outliers_adaptive_mult"`
	DoVisibilityTest      bool    `json:"do_visibility_test"`
	OutliersRemoveDoubles bool    `json:"outliers_remove_doubles"`

	DoComputeCovariance bool `json:"do_compute_covariance"`
	DebugVerifyTricks   bool `json:"debug_verify_tricks"`
	UseMLWeights        bool `json:"use_ml_weights"`
	UseSigmaWeights     bool `json:"use_sigma_weights"`
}

// DefaultParameters returns the usual Canonical Scan Matcher defaults.
func DefaultParameters() Parameters {
	return Parameters{
		MaxAngularCorrectionDeg:   45,
		MaxLinearCorrection:       0.5,
		MaxIterations:             10,
		EpsilonXY:                 0.000001,
		EpsilonTheta:              0.000001,
		MaxCorrespondenceDist:     0.3,
		Sigma:                     0.010,
		UseCorrTricks:             true,
		Restart:                   false,
		RestartThresholdMeanError: 0.01,
		RestartDT:                 1.0,
		RestartDTheta:             0.1,
		ClusteringThreshold:       0.25,
		OrientationNeighbourhood:  20,
		UsePointToLineDistance:    true,
		DoAlphaTest:               false,
		DoAlphaTestThresholdDeg:   20.0,
		OutliersMaxPerc:           0.90,
		OutliersAdaptiveOrder:     0.7,
		OutliersAdaptiveMult:      2.0,
		DoVisibilityTest:          false,
		OutliersRemoveDoubles:     true,
		DoComputeCovariance:       false,
		DebugVerifyTricks:         false,
		UseMLWeights:              false,
		UseSigmaWeights:           false,
	}
}

// Validate ensures the parameters can drive a matcher.
func (p *Parameters) Validate(path string) error {
	if p.MaxIterations <= 0 {
		return utils.NewConfigValidationError(path, errors.New("max_iterations must be greater than zero"))
	}
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"max_angular_correction_deg", p.MaxAngularCorrectionDeg},
		{"max_linear_correction", p.MaxLinearCorrection},
		{"epsilon_xy", p.EpsilonXY},
		{"epsilon_theta", p.EpsilonTheta},
		{"restart_threshold_mean_error", p.RestartThresholdMeanError},
		{"restart_dt", p.RestartDT},
		{"restart_dtheta", p.RestartDTheta},
		{"clustering_threshold", p.ClusteringThreshold},
		{"outliers_adaptive_mult", p.OutliersAdaptiveMult},
		{"sigma", p.Sigma},
	} {
		if math.IsNaN(field.value) || field.value < 0 {
			return utils.NewConfigValidationError(path,
				errors.Errorf("%s cannot be negative, got %v", field.name, field.value))
		}
	}
	if !(p.MaxCorrespondenceDist > 0) {
		return utils.NewConfigValidationError(path, errors.New("max_correspondence_dist must be greater than zero"))
	}
	if !(p.OutliersMaxPerc > 0 && p.OutliersMaxPerc <= 1) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("outliers_maxPerc must be in (0, 1], got %v", p.OutliersMaxPerc))
	}
	if !(p.OutliersAdaptiveOrder > 0 && p.OutliersAdaptiveOrder <= 1) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("outliers_adaptive_order must be in (0, 1], got %v", p.OutliersAdaptiveOrder))
	}
	if p.DoComputeCovariance && p.Sigma == 0 {
		return utils.NewConfigValidationError(path, errors.New("sigma must be set when do_compute_covariance is enabled"))
	}
	return nil
}
