// Package cli contains all business logic needed by the spindoe command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"

	flagInput     = "input"
	flagOutput    = "output"
	flagRaw       = "raw-output"
	flagFrameRate = "frame-rate"
	flagPattern   = "pattern"
	flagSeek      = "seek"
	flagTable     = "table"
	flagSeed      = "seed"
	flagTolerance = "inlier-tolerance"
	flagMaxSpin   = "max-spin"
)

var inputFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     flagInput,
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "video file or directory of frames to read",
	},
	&cli.Float64Flag{
		Name:  flagFrameRate,
		Usage: "capture frame rate of the input, overriding the config",
	},
	&cli.StringFlag{
		Name:  flagPattern,
		Usage: "glob matching frame files when the input is a directory",
	},
	&cli.StringFlag{
		Name:  flagSeek,
		Usage: "start decoding a video input at this position, e.g. 1.5 or 00:00:01.5",
	},
}

var regressorFlags = []cli.Flag{
	&cli.Int64Flag{
		Name:  flagSeed,
		Usage: "random seed for the robust fit",
	},
	&cli.Float64Flag{
		Name:  flagTolerance,
		Usage: "largest angular residual, in radians, of a sample consistent with the spin",
	},
	&cli.Float64Flag{
		Name:  flagMaxSpin,
		Usage: "largest plausible spin rate in rad/s",
	},
}

var app = &cli.App{
	Name:            "spindoe",
	Usage:           "estimate the spin of a dotted ball from high speed video",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "prepare",
			Usage:     "locate the ball in every frame and store normalized crops named by capture time",
			UsageText: "spindoe prepare --input <video|dir> --output <dir> [--raw-output <dir>]",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     flagOutput,
					Aliases:  []string{"o"},
					Required: true,
					Usage:    "directory receiving <timestamp_ns>.png crops at the canonical size",
				},
				&cli.StringFlag{
					Name:  flagRaw,
					Usage: "directory receiving the crops before resizing",
				},
			}, inputFlags...),
			Action: PrepareAction,
		},
		{
			Name:      "regress",
			Usage:     "fit the spin to a table of orientations and print it as JSON",
			UsageText: "spindoe regress --table <orientations.json> [--input <prepared dir>]",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     flagTable,
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "JSON array of {timestamp_ns, rotation, valid} records",
				},
				&cli.StringFlag{
					Name:    flagInput,
					Aliases: []string{"i"},
					Usage:   "directory written by prepare; only the table entries at its capture times are fitted",
				},
				&cli.Float64Flag{
					Name:  flagFrameRate,
					Usage: "capture frame rate of the prepared input, overriding the config",
				},
			}, regressorFlags...),
			Action: RegressAction,
		},
		{
			Name:      "run",
			Usage:     "prepare the input, look orientations up in a table and fit the spin",
			UsageText: "spindoe run --input <video|dir> --table <orientations.json> [--output <dir>]",
			Flags: append(append([]cli.Flag{
				&cli.StringFlag{
					Name:     flagTable,
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "JSON array of {timestamp_ns, rotation, valid} records",
				},
				&cli.StringFlag{
					Name:    flagOutput,
					Aliases: []string{"o"},
					Usage:   "also store the normalized crops in this directory",
				},
			}, inputFlags...), regressorFlags...),
			Action: RunAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
