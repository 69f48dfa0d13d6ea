// Package config defines the tunable parameters of the spin estimation pipeline.
package config

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Config is the full pipeline configuration. Every field has a default; a zero value in a
// decoded file means "use the default".
type Config struct {
	Localizer Localizer `json:"localizer"`
	Dataset   Dataset   `json:"dataset"`
	Regressor Regressor `json:"regressor"`

	ConfigFilePath string `json:"-"`
}

// Localizer holds the ball detection parameters.
type Localizer struct {
	BlurKernelSize int     `json:"blur_kernel_size,omitempty"`
	BlurSigma      float64 `json:"blur_sigma,omitempty"`
	Threshold      int     `json:"threshold,omitempty"`
	MinRadiusPx    float64 `json:"min_radius_px,omitempty"`
}

// Dataset holds the frame dataset parameters.
type Dataset struct {
	OutputSize int     `json:"output_size,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	Pattern    string  `json:"pattern,omitempty"`
	Workers    int     `json:"workers,omitempty"`
}

// Regressor holds the robust spin regression parameters.
type Regressor struct {
	Iterations         int     `json:"iterations,omitempty"`
	InlierToleranceRad float64 `json:"inlier_tolerance_rad,omitempty"`
	MinInlierFraction  float64 `json:"min_inlier_fraction,omitempty"`
	RefineRounds       int     `json:"refine_rounds,omitempty"`
	MaxSpinRadS        float64 `json:"max_spin_rad_s,omitempty"`
	Seed               int64   `json:"seed,omitempty"`
}

// Defaults.
const (
	DefaultBlurKernelSize     = 5
	DefaultThreshold          = 50
	DefaultMinRadiusPx        = 10
	DefaultOutputSize         = 60
	DefaultFrameRate          = 300
	DefaultPattern            = "*.png"
	DefaultIterations         = 200
	DefaultInlierToleranceRad = 0.2
	DefaultMinInlierFraction  = 0.5
	DefaultRefineRounds       = 5
	DefaultMaxSpinRadS        = 2 * math.Pi * 200
	DefaultSeed               = 1
)

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultLocalizer returns the default localizer section.
func DefaultLocalizer() Localizer {
	return Default().Localizer
}

// DefaultDataset returns the default dataset section.
func DefaultDataset() Dataset {
	return Default().Dataset
}

// DefaultRegressor returns the default regressor section.
func DefaultRegressor() Regressor {
	return Default().Regressor
}

func (c *Config) applyDefaults() {
	c.Localizer.applyDefaults()
	c.Dataset.applyDefaults()
	c.Regressor.applyDefaults()
}

func (l *Localizer) applyDefaults() {
	if l.BlurKernelSize == 0 {
		l.BlurKernelSize = DefaultBlurKernelSize
	}
	if l.Threshold == 0 {
		l.Threshold = DefaultThreshold
	}
	if l.MinRadiusPx == 0 {
		l.MinRadiusPx = DefaultMinRadiusPx
	}
}

func (d *Dataset) applyDefaults() {
	if d.OutputSize == 0 {
		d.OutputSize = DefaultOutputSize
	}
	if d.FrameRate == 0 {
		d.FrameRate = DefaultFrameRate
	}
	if d.Pattern == "" {
		d.Pattern = DefaultPattern
	}
}

func (r *Regressor) applyDefaults() {
	if r.Iterations == 0 {
		r.Iterations = DefaultIterations
	}
	if r.InlierToleranceRad == 0 {
		r.InlierToleranceRad = DefaultInlierToleranceRad
	}
	if r.MinInlierFraction == 0 {
		r.MinInlierFraction = DefaultMinInlierFraction
	}
	if r.RefineRounds == 0 {
		r.RefineRounds = DefaultRefineRounds
	}
	if r.MaxSpinRadS == 0 {
		r.MaxSpinRadS = DefaultMaxSpinRadS
	}
	if r.Seed == 0 {
		r.Seed = DefaultSeed
	}
}

// Ensure fills in defaults and validates every section.
func (c *Config) Ensure() error {
	c.applyDefaults()
	if err := c.Localizer.Validate("localizer"); err != nil {
		return err
	}
	if err := c.Dataset.Validate("dataset"); err != nil {
		return err
	}
	return c.Regressor.Validate("regressor")
}

// Validate ensures all parts of the config are valid.
func (l *Localizer) Validate(path string) error {
	if l.BlurKernelSize <= 0 || l.BlurKernelSize%2 == 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("blur_kernel_size must be odd and positive, got %d", l.BlurKernelSize))
	}
	if l.BlurSigma < 0 {
		return utils.NewConfigValidationError(path, errors.New("blur_sigma cannot be negative"))
	}
	if l.Threshold < 0 || l.Threshold > 255 {
		return utils.NewConfigValidationError(path, errors.Errorf("threshold must be in [0, 255], got %d", l.Threshold))
	}
	if l.MinRadiusPx < 0 {
		return utils.NewConfigValidationError(path, errors.New("min_radius_px cannot be negative"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (d *Dataset) Validate(path string) error {
	if d.OutputSize <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "output_size")
	}
	if d.FrameRate <= 0 || math.IsInf(d.FrameRate, 0) || math.IsNaN(d.FrameRate) {
		return utils.NewConfigValidationError(path, errors.Errorf("frame_rate must be positive, got %v", d.FrameRate))
	}
	if d.Workers < 0 {
		return utils.NewConfigValidationError(path, errors.New("workers cannot be negative"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (r *Regressor) Validate(path string) error {
	if r.Iterations <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "iterations")
	}
	if r.InlierToleranceRad <= 0 || r.InlierToleranceRad > math.Pi {
		return utils.NewConfigValidationError(path,
			errors.Errorf("inlier_tolerance_rad must be in (0, pi], got %v", r.InlierToleranceRad))
	}
	if r.MinInlierFraction <= 0 || r.MinInlierFraction > 1 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("min_inlier_fraction must be in (0, 1], got %v", r.MinInlierFraction))
	}
	if r.RefineRounds < 0 {
		return utils.NewConfigValidationError(path, errors.New("refine_rounds cannot be negative"))
	}
	if r.MaxSpinRadS <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_spin_rad_s must be positive, got %v", r.MaxSpinRadS))
	}
	return nil
}

// FrameIntervalNs returns the nanoseconds between consecutive frames, floor(1e9 / frame_rate).
func (d *Dataset) FrameIntervalNs() int64 {
	return int64(math.Floor(1e9 / d.FrameRate))
}

func (r Regressor) String() string {
	return fmt.Sprintf("iterations=%d tol=%.3frad min_inliers=%.2f refine=%d max_spin=%.1frad/s seed=%d",
		r.Iterations, r.InlierToleranceRad, r.MinInlierFraction, r.RefineRounds, r.MaxSpinRadS, r.Seed)
}
