// Package spindoe estimates the spin of a dotted ball from camera frames: it locates and crops
// the ball in each frame, reads the ball's orientation, and fits one angular velocity to the
// orientations while discarding wrong readings.
package spindoe

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/spindoe/ballfinder"
	"go.viam.com/spindoe/config"
	"go.viam.com/spindoe/dataset"
	"go.viam.com/spindoe/logging"
	"go.viam.com/spindoe/orientation"
	"go.viam.com/spindoe/spin"
)

// Pipeline wires the stages together with one configuration.
type Pipeline struct {
	cfg       *config.Config
	finder    *ballfinder.Finder
	regressor *spin.Regressor
	logger    logging.Logger
}

// Result holds the output of every stage of a run.
type Result struct {
	Balls []dataset.LocalizedBall
	// Skipped counts frames dropped while preparing, either undecodable or without a ball.
	Skipped  int
	Samples  []orientation.Sample
	Estimate *spin.Estimate
}

// NewPipeline validates cfg and builds the stages.
func NewPipeline(cfg *config.Config, logger logging.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	finder, err := ballfinder.NewFinder(cfg.Localizer)
	if err != nil {
		return nil, err
	}
	regressor, err := spin.NewRegressor(cfg.Regressor, logger.Sublogger("spin"))
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, finder: finder, regressor: regressor, logger: logger}, nil
}

// Config returns the validated configuration in use.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Prepare localizes the ball in every frame of src and returns the retained balls in capture
// order along with the number of frames dropped. src is closed when done.
func (p *Pipeline) Prepare(
	ctx context.Context, src dataset.FrameSource,
) (balls []dataset.LocalizedBall, skipped int, err error) {
	defer func() {
		err = multierr.Combine(err, src.Close())
	}()
	builder, err := dataset.NewBuilder(src, p.finder, p.cfg.Dataset, p.logger.Sublogger("dataset"))
	if err != nil {
		return nil, 0, err
	}
	balls, err = builder.Collect(ctx)
	return balls, builder.Skipped(), err
}

// Load reads balls stored by Store back from dir.
func (p *Pipeline) Load(dir string) ([]dataset.LocalizedBall, error) {
	balls, err := dataset.ReadDirectory(dir, p.cfg.Dataset.FrameIntervalNs())
	if err != nil {
		return nil, err
	}
	if len(balls) == 0 {
		return nil, errors.Errorf("no stored balls in %q", dir)
	}
	return balls, nil
}

// Store writes balls with w and returns the written paths.
func (p *Pipeline) Store(balls []dataset.LocalizedBall, w *dataset.Writer) ([]string, error) {
	paths := make([]string, 0, len(balls))
	for _, ball := range balls {
		path, err := w.Write(ball)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	p.logger.Infow("stored balls", "count", len(paths))
	return paths, nil
}

// Regress fits the spin to samples.
func (p *Pipeline) Regress(ctx context.Context, samples []orientation.Sample) (*spin.Estimate, error) {
	est, err := p.regressor.RegressSamples(ctx, samples)
	if err != nil {
		return nil, err
	}
	p.logger.Infow("estimated spin",
		"rad_s", est.AngularVelocity, "rps", est.RPS(), "inlier_ratio", est.InlierRatio(), "samples", len(samples))
	return est, nil
}

// Fit reads the orientation of every ball with est and fits the spin. The samples are returned
// along with any regression error.
func (p *Pipeline) Fit(ctx context.Context, balls []dataset.LocalizedBall, est orientation.Estimator) (*Result, error) {
	samples, err := orientation.EstimateAll(ctx, est, balls)
	if err != nil {
		return nil, err
	}
	res := &Result{Balls: balls, Samples: samples}
	p.logger.Debugw("orientations read", "balls", len(balls), "valid", len(orientation.ValidSamples(samples)))
	res.Estimate, err = p.Regress(ctx, samples)
	return res, err
}

// Run prepares src, reads orientations with est and fits the spin. The partial result is
// returned along with any regression error.
func (p *Pipeline) Run(ctx context.Context, src dataset.FrameSource, est orientation.Estimator) (*Result, error) {
	balls, skipped, err := p.Prepare(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "preparing frames")
	}
	res, err := p.Fit(ctx, balls, est)
	if res != nil {
		res.Skipped = skipped
	}
	return res, err
}
