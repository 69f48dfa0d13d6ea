package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/spindoe"
	"go.viam.com/spindoe/dataset"
	"go.viam.com/spindoe/orientation"
)

// PrepareAction localizes the ball in every input frame and stores the normalized crops.
func PrepareAction(c *cli.Context) error {
	logger := newLogger(c, "spindoe")
	defer utils.UncheckedErrorFunc(logger.Sync)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	output := c.String(flagOutput)
	same, err := samePath(c.String(flagInput), output)
	if err != nil {
		return err
	}
	if same {
		return errors.New("output directory must differ from the input")
	}
	pipeline, err := spindoe.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	src, err := openSource(c, cfg, logger)
	if err != nil {
		return err
	}
	balls, skipped, err := pipeline.Prepare(c.Context, src)
	if err != nil {
		return err
	}
	w, err := dataset.NewWriter(output, c.String(flagRaw))
	if err != nil {
		return err
	}
	paths, err := pipeline.Store(balls, w)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "stored %d of the input frames in %s, skipped %d", len(paths), output, skipped)
	return nil
}

// RegressAction fits the spin to the orientation table and writes the report to stdout. With
// --input, the orientations are looked up for the balls stored in that directory instead.
func RegressAction(c *cli.Context) error {
	logger := newLogger(c, "spindoe")
	defer utils.UncheckedErrorFunc(logger.Sync)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	table, err := orientation.ReadTable(c.String(flagTable))
	if err != nil {
		return err
	}
	pipeline, err := spindoe.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	if input := c.String(flagInput); input != "" {
		balls, err := pipeline.Load(input)
		if err != nil {
			return err
		}
		res, err := pipeline.Fit(c.Context, balls, table)
		if err != nil {
			return err
		}
		return spindoe.WriteReport(c.App.Writer, res.Estimate)
	}
	est, err := pipeline.Regress(c.Context, table.Samples())
	if err != nil {
		return err
	}
	return spindoe.WriteReport(c.App.Writer, est)
}

// RunAction prepares the input, reads each ball's orientation from the table by capture time
// and fits the spin.
func RunAction(c *cli.Context) error {
	logger := newLogger(c, "spindoe")
	defer utils.UncheckedErrorFunc(logger.Sync)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	table, err := orientation.ReadTable(c.String(flagTable))
	if err != nil {
		return err
	}
	pipeline, err := spindoe.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	src, err := openSource(c, cfg, logger)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(c.Context, src, table)
	if res != nil {
		logger.Infow("prepared frames", "retained", len(res.Balls), "skipped", res.Skipped)
	}
	if res != nil && c.String(flagOutput) != "" {
		w, werr := dataset.NewWriter(c.String(flagOutput), "")
		if werr != nil {
			return werr
		}
		if _, werr := pipeline.Store(res.Balls, w); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	return spindoe.WriteReport(c.App.Writer, res.Estimate)
}
