package dataset

import (
	"context"
	"image"
	"io"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/spindoe/ballfinder"
	"go.viam.com/spindoe/config"
	"go.viam.com/spindoe/logging"
	"go.viam.com/spindoe/rimage"
)

// ErrConsumed is returned when a Builder is read after its single pass has finished or been
// handed to Collect.
var ErrConsumed = errors.New("dataset builder already consumed")

// LocalizedBall is a ball found in a frame, stamped with its capture time.
type LocalizedBall struct {
	ballfinder.Ball
	Index       int
	TimestampNs int64
	// Normalized is the crop resized to the canonical square resolution.
	Normalized image.Image
}

// FrameInterval returns the nanoseconds between consecutive frames at the given frame rate,
// floor(1e9 / frameRate).
func FrameInterval(frameRate float64) int64 {
	d := config.Dataset{FrameRate: frameRate}
	return d.FrameIntervalNs()
}

// Builder pulls frames from a FrameSource, localizes the ball in each, and yields the retained
// ones in capture order. Frames without a ball or that failed to decode are skipped; they still
// advance the frame index, so timestamps reflect capture time. A Builder makes a single pass.
type Builder struct {
	src      FrameSource
	finder   *ballfinder.Finder
	cfg      config.Dataset
	interval int64
	logger   logging.Logger

	mu       sync.Mutex
	started  bool
	consumed bool
	skipped  int
}

// NewBuilder returns a builder reading from src.
func NewBuilder(src FrameSource, finder *ballfinder.Finder, cfg config.Dataset, logger logging.Logger) (*Builder, error) {
	if err := cfg.Validate("dataset"); err != nil {
		return nil, err
	}
	return &Builder{
		src:      src,
		finder:   finder,
		cfg:      cfg,
		interval: cfg.FrameIntervalNs(),
		logger:   logger,
	}, nil
}

// Skipped returns how many frames have been dropped so far.
func (b *Builder) Skipped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.skipped
}

// Next returns the next retained ball, io.EOF at the end of the source, and ErrConsumed on
// any call after that.
func (b *Builder) Next(ctx context.Context) (LocalizedBall, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumed {
		return LocalizedBall{}, ErrConsumed
	}
	b.started = true
	for {
		frame, err := b.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			b.consumed = true
			return LocalizedBall{}, io.EOF
		}
		if errors.Is(err, ErrDecodeFailure) {
			b.skip(frame.Index, err)
			continue
		}
		if err != nil {
			return LocalizedBall{}, err
		}
		ball, err := b.localize(frame)
		if errors.Is(err, ballfinder.ErrDetectionAbsent) {
			b.skip(frame.Index, err)
			continue
		}
		if err != nil {
			return LocalizedBall{}, err
		}
		return ball, nil
	}
}

func (b *Builder) skip(index int, reason error) {
	b.skipped++
	b.logger.Debugw("skipping frame", "index", index, "reason", reason.Error())
}

func (b *Builder) localize(frame Frame) (LocalizedBall, error) {
	ball, err := b.finder.Localize(frame.Image)
	if err != nil {
		return LocalizedBall{}, errors.Wrapf(err, "frame %d", frame.Index)
	}
	return LocalizedBall{
		Ball:        *ball,
		Index:       frame.Index,
		TimestampNs: int64(frame.Index) * b.interval,
		Normalized:  rimage.Resize(ball.Crop, b.cfg.OutputSize, b.cfg.OutputSize),
	}, nil
}

type collectSlot struct {
	ball LocalizedBall
	ok   bool
}

// Collect drains the whole source. Frames are read sequentially while localization runs on a
// bounded pool of workers; the result is in capture order, the same as repeated Next calls.
func (b *Builder) Collect(ctx context.Context) ([]LocalizedBall, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.consumed {
		return nil, ErrConsumed
	}
	b.started = true
	b.consumed = true

	workers := b.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var skipMu sync.Mutex
	var slots []*collectSlot
	var readErr error
	for {
		frame, err := b.src.Next(gctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrDecodeFailure) {
			skipMu.Lock()
			b.skip(frame.Index, err)
			skipMu.Unlock()
			continue
		}
		if err != nil {
			readErr = err
			break
		}
		slot := &collectSlot{}
		slots = append(slots, slot)
		g.Go(func() error {
			ball, err := b.localize(frame)
			if errors.Is(err, ballfinder.ErrDetectionAbsent) {
				skipMu.Lock()
				b.skip(frame.Index, err)
				skipMu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			slot.ball, slot.ok = ball, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}

	balls := make([]LocalizedBall, 0, len(slots))
	for _, slot := range slots {
		if slot.ok {
			balls = append(balls, slot.ball)
		}
	}
	b.logger.Infow("collected frames", "retained", len(balls), "skipped", b.skipped)
	return balls, nil
}
