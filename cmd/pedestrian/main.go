package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/esimov/pedestrian"
	"github.com/esimov/pedestrian/annotation"
	"github.com/esimov/pedestrian/utils"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┌─┐┌┬┐┌─┐┌─┐┌┬┐┬─┐┬┌─┐┌┐┌
├─┘├┤  ││├┤ └─┐ │ ├┬┘│├─┤│││
┴  └─┘─┴┘└─┘└─┘ ┴ ┴└─┴┴ ┴┘└┘

HOG/SVM sliding window pedestrian detector.
    Version: %s
`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

// Flags.
const (
	flagConfig     = "config"
	flagDebug      = "debug"
	flagWorkers    = "workers"
	flagSeed       = "seed"
	flagSvmC       = "svm-c"
	flagRandoms    = "randoms"
	flagFalsePos   = "false-positives"
	flagFlip       = "flip"
	flagIn         = "in"
	flagOut        = "out"
	flagModel      = "model"
	flagAnnotation = "annotation"
	flagThreshold  = "threshold"
	flagOverlap    = "overlap"
	flagScores     = "scores"
	flagColor      = "color"
)

func main() {
	log.SetFlags(0)

	var logger *zap.SugaredLogger

	app := &cli.App{
		Name:    "pedestrian",
		Usage:   "train, run and evaluate a HOG/SVM pedestrian detector",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			logger, err = newLogger(c.Bool(flagDebug))
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "train",
				Usage: "train the classifier on the INRIA dataset, then evaluate it",
				Flags: append(datasetFlags(),
					&cli.Float64Flag{Name: flagSvmC, Usage: "SVM regularization constant"},
					&cli.IntFlag{Name: flagRandoms, Usage: "random windows sampled per negative image"},
					&cli.IntFlag{Name: flagFalsePos, Usage: "number of hard negatives retained"},
					&cli.BoolFlag{Name: flagFlip, Usage: "add mirrored positives"},
				),
				Action: func(c *cli.Context) error {
					return train(c, logger)
				},
			},
			{
				Name:  "eval",
				Usage: "evaluate the trained classifiers on the test set",
				Flags: datasetFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return evaluate(c.Context, cfg, logger)
				},
			},
			{
				Name:  "detect",
				Usage: "detect pedestrians in an image",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagIn, Value: pipeName, Usage: "source image, URL or `-` for stdin"},
					&cli.StringFlag{Name: flagOut, Value: pipeName, Usage: "destination image or `-` for stdout"},
					&cli.StringFlag{Name: flagModel, Required: true, Usage: "trained model `FILE`"},
					&cli.StringFlag{Name: flagAnnotation, Usage: "PASCAL annotation `FILE` with the ground truth"},
					&cli.Float64Flag{Name: flagThreshold, Usage: "minimum detection score"},
					&cli.Float64Flag{Name: flagOverlap, Value: pedestrian.DefaultNMSOverlap, Usage: "non-maximum suppression overlap"},
					&cli.BoolFlag{Name: flagScores, Usage: "print the scores next to the boxes"},
					&cli.StringFlag{Name: flagColor, Value: pedestrian.DetectionColor, Usage: "detection box color"},
				},
				Action: func(c *cli.Context) error {
					return detect(c, logger)
				},
			},
		},
	}
	cli.AppHelpTemplate = fmt.Sprintf(HelpBanner, Version) + cli.AppHelpTemplate

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create logger")
	}
	return l.Sugar(), nil
}

func datasetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     flagConfig,
			Aliases:  []string{"c"},
			Required: true,
			Usage:    "load configuration from `FILE`",
		},
		&cli.IntFlag{Name: flagWorkers, Usage: "number of images processed concurrently"},
		&cli.Int64Flag{Name: flagSeed, Usage: "random seed"},
	}
}

// loadConfig reads the configuration file and applies the flags set on
// the command line.
func loadConfig(c *cli.Context) (*pedestrian.Config, error) {
	cfg, err := pedestrian.LoadConfig(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if c.IsSet(flagSeed) {
		cfg.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagSvmC) {
		cfg.SvmC = c.Float64(flagSvmC)
	}
	if c.IsSet(flagRandoms) {
		cfg.RandomsPerNegative = c.Int(flagRandoms)
	}
	if c.IsSet(flagFalsePos) {
		cfg.NumFalsePositives = c.Int(flagFalsePos)
	}
	if c.IsSet(flagFlip) {
		cfg.FlipPositives = c.Bool(flagFlip)
	}
	return cfg, cfg.Validate()
}

func train(c *cli.Context, logger *zap.SugaredLogger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if !cfg.SkipTraining {
		now := time.Now()
		progress := utils.NewProgress(os.Stderr)
		t, err := pedestrian.NewTrainer(cfg,
			pedestrian.WithLogger(logger),
			pedestrian.WithReporter(progress),
		)
		if err != nil {
			return err
		}
		res, err := t.Train(c.Context)
		progress.Done()
		if err != nil {
			return err
		}
		for _, e := range multierr.Errors(res.Errs) {
			logger.Debugw("skipped image", "reason", e)
		}
		fmt.Fprintf(os.Stderr, "%s\n", utils.StatusLine("PEDESTRIAN", fmt.Sprintf(
			"trained on %d positives, %d negatives and %d hard negatives (%d images skipped) in %s",
			res.Positives, res.Negatives, res.HardNegatives, res.Skipped,
			utils.FormatTime(time.Since(now))), utils.SuccessMessage))
	}
	return evaluate(c.Context, cfg, logger)
}

func evaluate(ctx context.Context, cfg *pedestrian.Config, logger *zap.SugaredLogger) error {
	runs := []struct {
		skip        bool
		model, dest string
		title       string
	}{
		{cfg.SkipEval, cfg.SVM, cfg.Eval, "DET"},
		{cfg.SkipEvalHard, cfg.SVMHard, cfg.EvalHard, "DET (hard negatives)"},
	}

	for _, run := range runs {
		if run.skip {
			continue
		}
		clf, err := pedestrian.LoadClassifier(run.model)
		if err != nil {
			return err
		}
		progress := utils.NewProgress(os.Stderr)
		e, err := pedestrian.NewEvaluator(cfg,
			pedestrian.WithLogger(logger),
			pedestrian.WithReporter(progress),
		)
		if err != nil {
			return err
		}
		ev, err := e.Evaluate(ctx, clf)
		progress.Done()
		if err != nil {
			return err
		}

		if run.dest != "" {
			if err := ev.Save(run.dest); err != nil {
				return err
			}
			logger.Infow("evaluation saved", "path", run.dest)
		}
		if cfg.Plot != "" {
			name := filepath.Base(run.model) + ".png"
			if err := ev.Plot(filepath.Join(cfg.Plot, name), run.title); err != nil {
				logger.Warnw("unable to plot the evaluation", "error", err)
			}
		}
	}
	return nil
}

func detect(c *cli.Context, logger *zap.SugaredLogger) error {
	clf, err := pedestrian.LoadClassifier(c.String(flagModel))
	if err != nil {
		return err
	}
	det := &pedestrian.Detector{
		Classifier: clf,
		Threshold:  c.Float64(flagThreshold),
		NMSOverlap: c.Float64(flagOverlap),
		BoxColor:   c.String(flagColor),
		ShowScores: c.Bool(flagScores),
	}
	if path := c.String(flagAnnotation); path != "" {
		ann, err := annotation.Load(path)
		if err != nil {
			return err
		}
		det.GroundTruth = ann.Boxes()
	}

	src, closeSrc, err := openSource(c.String(flagIn))
	if err != nil {
		return err
	}
	defer closeSrc()

	dst, closeDst, err := openDestination(c.String(flagOut))
	if err != nil {
		return err
	}

	now := time.Now()
	dets, err := det.Process(src, dst)
	if cerr := closeDst(); err == nil {
		err = cerr
	}
	if err != nil {
		if out := c.String(flagOut); out != pipeName {
			os.Remove(out)
		}
		return err
	}

	for _, d := range dets {
		logger.Debugw("detection", "score", d.Score, "rect", d.Rect)
	}
	fmt.Fprintf(os.Stderr, "%s\n", utils.StatusLine("PEDESTRIAN", fmt.Sprintf(
		"%d pedestrians detected in %s", len(dets), utils.FormatTime(time.Since(now))),
		utils.SuccessMessage))
	return nil
}

// openSource opens a local image, a downloaded URL or stdin.
func openSource(in string) (io.Reader, func(), error) {
	switch {
	case utils.IsValidUrl(in):
		tmp, err := utils.DownloadImage(in)
		if err != nil {
			return nil, nil, err
		}
		tmp.Close()
		f, err := os.Open(tmp.Name())
		if err != nil {
			os.Remove(tmp.Name())
			return nil, nil, errors.Wrap(err, "unable to open the temporary image file")
		}
		return f, func() {
			f.Close()
			os.Remove(tmp.Name())
		}, nil
	case in == pipeName:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(in)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to open the source file")
	}
	return f, func() { f.Close() }, nil
}

// openDestination creates the output file or returns stdout.
func openDestination(out string) (io.Writer, func() error, error) {
	if out == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdout")
		}
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to create the destination file")
	}
	return f, f.Close, nil
}
