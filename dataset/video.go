package dataset

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/multierr"
	viamutils "go.viam.com/utils"

	"go.viam.com/spindoe/logging"
)

// VideoSource decodes a video file with ffmpeg and yields every frame in order. ffmpeg must be
// on the PATH.
type VideoSource struct {
	logger     logging.Logger
	cancelFunc func()
	pipe       *io.PipeReader
	frames     *PNGStreamSource
	closed     atomic.Bool

	activeBackgroundWorkers sync.WaitGroup
	ffmpegErr               atomic.Value
}

// NewVideoSource starts decoding the video at path. inputArgs are passed to ffmpeg as input
// options, e.g. {"ss": "1.5"} to seek.
func NewVideoSource(path string, inputArgs map[string]interface{}, logger logging.Logger) (*VideoSource, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, err
	}

	outArgs := ffmpeg.KwArgs{
		"format": "image2pipe",
		"vcodec": "png",
		"vsync":  "passthrough",
	}

	cancelableCtx, cancel := context.WithCancel(context.Background())
	in, out := io.Pipe()
	vs := &VideoSource{
		logger:     logger,
		cancelFunc: cancel,
		pipe:       in,
		frames:     NewPNGStreamSource(in),
	}

	vs.activeBackgroundWorkers.Add(1)
	viamutils.PanicCapturingGo(func() {
		defer vs.activeBackgroundWorkers.Done()
		stream := ffmpeg.Input(path, ffmpeg.KwArgs(inputArgs))
		stream = stream.Output("pipe:", outArgs)
		stream.Context = cancelableCtx
		err := stream.WithOutput(out).Run()
		if err != nil && !vs.closed.Load() {
			vs.ffmpegErr.Store(errors.Wrapf(err, "ffmpeg failed decoding %q", path))
		}
		out.CloseWithError(err)
	})
	return vs, nil
}

// Next decodes the next frame of the video. A damaged frame is reported as a decode failure
// and the following call continues with the next frame.
func (vs *VideoSource) Next(ctx context.Context) (Frame, error) {
	frame, err := vs.frames.Next(ctx)
	if err == nil || errors.Is(err, ErrDecodeFailure) || ctx.Err() != nil {
		return frame, err
	}
	if ffErr, ok := vs.ffmpegErr.Load().(error); ok {
		return Frame{}, ffErr
	}
	return Frame{}, err
}

// Close stops ffmpeg and waits for it to exit.
func (vs *VideoSource) Close() error {
	vs.closed.Store(true)
	vs.cancelFunc()
	err := vs.pipe.Close()
	vs.activeBackgroundWorkers.Wait()
	if ffErr, ok := vs.ffmpegErr.Load().(error); ok {
		err = multierr.Combine(err, ffErr)
	}
	return err
}
