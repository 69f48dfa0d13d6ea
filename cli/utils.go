package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/spindoe/config"
	"go.viam.com/spindoe/dataset"
	"go.viam.com/spindoe/logging"
)

// samePath returns true if abs(path1) and abs(path2) are the same.
func samePath(path1, path2 string) (bool, error) {
	abs1, err := filepath.Abs(path1)
	if err != nil {
		return false, err
	}
	abs2, err := filepath.Abs(path2)
	if err != nil {
		return false, err
	}
	return abs1 == abs2, nil
}

// printf writes a formatted line to w.
func printf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, format+"\n", a...) //nolint:errcheck
}

// newLogger logs to the app's error writer so that reports on its writer stay parseable.
func newLogger(c *cli.Context, name string) logging.Logger {
	logger := logging.NewBlankLogger(name)
	if !c.Bool(generalFlagDebug) {
		logger.SetLevel(logging.INFO)
	}
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	return logger
}

// loadConfig reads the --config file, or the defaults when none is given, and applies flag
// overrides on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(generalFlagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagFrameRate) {
		cfg.Dataset.FrameRate = c.Float64(flagFrameRate)
	}
	if c.IsSet(flagPattern) {
		cfg.Dataset.Pattern = c.String(flagPattern)
	}
	if c.IsSet(flagSeed) {
		cfg.Regressor.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagTolerance) {
		cfg.Regressor.InlierToleranceRad = c.Float64(flagTolerance)
	}
	if c.IsSet(flagMaxSpin) {
		cfg.Regressor.MaxSpinRadS = c.Float64(flagMaxSpin)
	}
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSource opens the --input flag as a directory of frames or, for anything else, a video.
func openSource(c *cli.Context, cfg *config.Config, logger logging.Logger) (dataset.FrameSource, error) {
	input := c.String(flagInput)
	info, err := os.Stat(input)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open input")
	}
	if info.IsDir() {
		return dataset.NewDirectorySource(input, cfg.Dataset.Pattern)
	}
	inputArgs := map[string]interface{}{}
	if seek := c.String(flagSeek); seek != "" {
		inputArgs["ss"] = seek
	}
	return dataset.NewVideoSource(input, inputArgs, logger.Sublogger("video"))
}
