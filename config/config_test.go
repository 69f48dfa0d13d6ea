package config

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Ensure(), test.ShouldBeNil)
	test.That(t, cfg.Localizer, test.ShouldResemble, Localizer{BlurKernelSize: 5, Threshold: 50, MinRadiusPx: 10})
	test.That(t, cfg.Dataset, test.ShouldResemble, Dataset{OutputSize: 60, FrameRate: 300, Pattern: "*.png"})
	test.That(t, cfg.Regressor.Iterations, test.ShouldEqual, 200)
	test.That(t, cfg.Regressor.InlierToleranceRad, test.ShouldEqual, 0.2)
	test.That(t, cfg.Regressor.MinInlierFraction, test.ShouldEqual, 0.5)
	test.That(t, cfg.Regressor.MaxSpinRadS, test.ShouldAlmostEqual, 400*math.Pi)
	test.That(t, DefaultRegressor(), test.ShouldResemble, cfg.Regressor)
}

func TestFrameInterval(t *testing.T) {
	d := Dataset{FrameRate: 300}
	test.That(t, d.FrameIntervalNs(), test.ShouldEqual, int64(3333333))
	d.FrameRate = 1000
	test.That(t, d.FrameIntervalNs(), test.ShouldEqual, int64(1000000))
	d.FrameRate = 7
	test.That(t, d.FrameIntervalNs(), test.ShouldEqual, int64(142857142))
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		errStr string
	}{
		{"negative sigma", func(c *Config) { c.Localizer.BlurSigma = -1 }, "blur_sigma"},
		{"threshold range", func(c *Config) { c.Localizer.Threshold = 300 }, "threshold"},
		{"negative radius", func(c *Config) { c.Localizer.MinRadiusPx = -2 }, "min_radius_px"},
		{"frame rate", func(c *Config) { c.Dataset.FrameRate = -30 }, "frame_rate"},
		{"output size", func(c *Config) { c.Dataset.OutputSize = -1 }, `"output_size" is required`},
		{"workers", func(c *Config) { c.Dataset.Workers = -1 }, "workers"},
		{"iterations", func(c *Config) { c.Regressor.Iterations = -5 }, `"iterations" is required`},
		{"tolerance", func(c *Config) { c.Regressor.InlierToleranceRad = 4 }, "inlier_tolerance_rad"},
		{"refine", func(c *Config) { c.Regressor.RefineRounds = -1 }, "refine_rounds"},
		{"max spin", func(c *Config) { c.Regressor.MaxSpinRadS = -1 }, "max_spin_rad_s"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Ensure()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errStr)
		})
	}
}
