// Package orientation turns normalized ball images into absolute ball orientations.
package orientation

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/spindoe/dataset"
	"go.viam.com/spindoe/spatialmath"
)

// An Estimator reads the dot pattern on a normalized ball image and returns the ball's
// orientation. valid is false when the pattern could not be read; the rotation is then
// meaningless.
type Estimator interface {
	Estimate(ctx context.Context, img image.Image) (rot *spatialmath.RotationMatrix, valid bool, err error)
}

// A TimedEstimator also receives the capture time of the image. EstimateAll prefers this method
// when an Estimator implements it.
type TimedEstimator interface {
	Estimator
	EstimateAt(ctx context.Context, timestampNs int64, img image.Image) (*spatialmath.RotationMatrix, bool, error)
}

// EstimatorFunc adapts a function to an Estimator.
type EstimatorFunc func(ctx context.Context, img image.Image) (*spatialmath.RotationMatrix, bool, error)

// Estimate calls f.
func (f EstimatorFunc) Estimate(ctx context.Context, img image.Image) (*spatialmath.RotationMatrix, bool, error) {
	return f(ctx, img)
}

// Sample is the orientation of the ball at one capture time.
type Sample struct {
	TimestampNs int64
	Rotation    *spatialmath.RotationMatrix
	Valid       bool
}

// Seconds returns the capture time in seconds.
func (s Sample) Seconds() float64 {
	return float64(s.TimestampNs) * 1e-9
}

// EstimateAll runs est on every ball's normalized image, in order. The result has one sample
// per ball; a sample whose rotation comes back nil is marked invalid.
func EstimateAll(ctx context.Context, est Estimator, balls []dataset.LocalizedBall) ([]Sample, error) {
	timed, isTimed := est.(TimedEstimator)
	samples := make([]Sample, 0, len(balls))
	for _, ball := range balls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			rot   *spatialmath.RotationMatrix
			valid bool
			err   error
		)
		if isTimed {
			rot, valid, err = timed.EstimateAt(ctx, ball.TimestampNs, ball.Normalized)
		} else {
			rot, valid, err = est.Estimate(ctx, ball.Normalized)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "estimating orientation at %dns", ball.TimestampNs)
		}
		samples = append(samples, Sample{
			TimestampNs: ball.TimestampNs,
			Rotation:    rot,
			Valid:       valid && rot != nil,
		})
	}
	return samples, nil
}

// ValidSamples returns the samples whose orientation was read successfully.
func ValidSamples(samples []Sample) []Sample {
	return lo.Filter(samples, func(s Sample, _ int) bool {
		return s.Valid && s.Rotation != nil
	})
}
