// Package spin estimates a constant angular velocity from time-stamped ball orientations,
// tolerating a large share of wrong orientation readings.
package spin

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/spindoe/config"
	"go.viam.com/spindoe/logging"
	"go.viam.com/spindoe/orientation"
	"go.viam.com/spindoe/spatialmath"
)

var (
	// ErrInsufficientSamples is returned when fewer than two orientations are supplied.
	ErrInsufficientSamples = errors.New("at least two orientation samples are required")
	// ErrNoConsensus is returned when no spin hypothesis is supported by enough samples.
	ErrNoConsensus = errors.New("no spin consistent with enough samples")
)

const (
	// MinDeltaT is the smallest time difference, in seconds, a sample pair may have to propose
	// a spin.
	MinDeltaT = 1e-9
	// MinPairAngle is the smallest relative rotation, in radians, from which a spin axis is
	// read. Pairs below it only propose zero spin.
	MinPairAngle = 1e-6
)

// Estimate is the result of a regression.
type Estimate struct {
	// AngularVelocity is the body-frame spin in rad/s.
	AngularVelocity r3.Vector
	// Inliers holds the indices, ascending, of the samples consistent with the spin.
	Inliers []int
	// Residual is the root mean square geodesic residual over the inliers, in radians.
	Residual float64
	// Samples is the number of samples the regression considered.
	Samples int
}

// Magnitude returns the spin rate in rad/s.
func (e *Estimate) Magnitude() float64 {
	return e.AngularVelocity.Norm()
}

// Axis returns the unit spin axis, or the zero vector for zero spin.
func (e *Estimate) Axis() r3.Vector {
	return spatialmath.AngularVelocity(e.AngularVelocity).Axis()
}

// RPS returns the spin rate in revolutions per second.
func (e *Estimate) RPS() float64 {
	return spatialmath.AngularVelocity(e.AngularVelocity).RevolutionsPerSecond()
}

// InlierRatio returns the share of samples that are inliers.
func (e *Estimate) InlierRatio() float64 {
	if e.Samples == 0 {
		return 0
	}
	return float64(len(e.Inliers)) / float64(e.Samples)
}

// Regressor runs robust spin regressions with a fixed configuration.
type Regressor struct {
	cfg    config.Regressor
	logger logging.Logger
}

// NewRegressor validates cfg and returns a Regressor.
func NewRegressor(cfg config.Regressor, logger logging.Logger) (*Regressor, error) {
	if err := cfg.Validate("regressor"); err != nil {
		return nil, err
	}
	return &Regressor{cfg: cfg, logger: logger}, nil
}

// Regress estimates the angular velocity explaining rotations observed at times (seconds).
// It returns ErrInsufficientSamples for fewer than two samples and ErrNoConsensus when the
// best model is supported by fewer than max(2, ceil(MinInlierFraction * n)) samples.
func Regress(times []float64, rotations []*spatialmath.RotationMatrix, cfg config.Regressor) (*Estimate, error) {
	r, err := NewRegressor(cfg, logging.NewBlankLogger("spin"))
	if err != nil {
		return nil, err
	}
	return r.Regress(context.Background(), times, rotations)
}

// RegressSamples runs Regress over the valid samples. Inlier indices refer to positions in
// samples.
func RegressSamples(samples []orientation.Sample, cfg config.Regressor) (*Estimate, error) {
	r, err := NewRegressor(cfg, logging.NewBlankLogger("spin"))
	if err != nil {
		return nil, err
	}
	return r.RegressSamples(context.Background(), samples)
}

// RegressSamples runs Regress over the valid samples. Inlier indices refer to positions in
// samples.
func (r *Regressor) RegressSamples(ctx context.Context, samples []orientation.Sample) (*Estimate, error) {
	kept := lo.FilterMap(samples, func(s orientation.Sample, i int) (int, bool) {
		return i, s.Valid && s.Rotation != nil
	})
	if dropped := len(samples) - len(kept); dropped > 0 {
		r.logger.Debugw("ignoring invalid orientation samples", "dropped", dropped, "kept", len(kept))
	}
	times := lo.Map(kept, func(i, _ int) float64 { return samples[i].Seconds() })
	rotations := lo.Map(kept, func(i, _ int) *spatialmath.RotationMatrix { return samples[i].Rotation })

	est, err := r.Regress(ctx, times, rotations)
	if err != nil {
		return nil, err
	}
	est.Inliers = lo.Map(est.Inliers, func(i, _ int) int { return kept[i] })
	return est, nil
}

// Regress estimates the angular velocity explaining rotations observed at times (seconds).
func (r *Regressor) Regress(ctx context.Context, times []float64, rotations []*spatialmath.RotationMatrix) (*Estimate, error) {
	if err := checkInputs(times, rotations); err != nil {
		return nil, err
	}
	n := len(times)
	data := &problem{times: times, rotations: rotations, tolerance: r.cfg.InlierToleranceRad}

	best, err := r.ransac(ctx, data)
	if err != nil {
		return nil, err
	}
	minSupport := MinSupport(n, r.cfg.MinInlierFraction)
	if best == nil {
		return nil, errors.Wrap(ErrNoConsensus, "every sampled pair was degenerate")
	}
	r.logger.Debugw("ransac model", "omega", best.omega, "inliers", len(best.inliers), "samples", n)

	refined := r.refine(data, best)
	if len(refined.inliers) < minSupport {
		return nil, errors.Wrapf(ErrNoConsensus, "best model explains %d of %d samples, need %d",
			len(refined.inliers), n, minSupport)
	}
	return &Estimate{
		AngularVelocity: refined.omega,
		Inliers:         refined.inliers,
		Residual:        data.rms(refined.omega, refined.reference, refined.inliers),
		Samples:         n,
	}, nil
}

// MinSupport returns the number of inliers a model needs out of n samples.
func MinSupport(n int, fraction float64) int {
	need := int(math.Ceil(fraction * float64(n)))
	if need < 2 {
		return 2
	}
	return need
}

func checkInputs(times []float64, rotations []*spatialmath.RotationMatrix) error {
	if len(times) != len(rotations) {
		return errors.Errorf("got %d times but %d rotations", len(times), len(rotations))
	}
	if len(times) < 2 {
		return errors.Wrapf(ErrInsufficientSamples, "got %d", len(times))
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.Errorf("time %d is not finite", i)
		}
		if i > 0 && t < times[i-1] {
			return errors.Errorf("times must be non-decreasing, %v at %d follows %v", t, i, times[i-1])
		}
		if rotations[i] == nil {
			return errors.Errorf("rotation %d is nil", i)
		}
	}
	return nil
}
