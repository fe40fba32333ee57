// Package main is the declump command line tool.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"declump/internal/imageio"
	"declump/pkg/config"
	"declump/pkg/declump"
	"declump/pkg/visualization"
)

const (
	// Flags.
	flagDebug             = "debug"
	flagConfig            = "config"
	flagMask              = "mask"
	flagImage             = "image"
	flagOutput            = "output"
	flagFigure            = "figure"
	flagCuttingPasses     = "cutting-passes"
	flagMinCutArea        = "min-cut-area"
	flagMinAngle          = "min-angle"
	flagSelectionTestMode = "selection-test-mode"
	flagPerimeterTestMode = "perimeter-test-mode"
	flagPlot              = "plot"
)

var app = &cli.App{
	Name:  "declump",
	Usage: "separate clumped objects in a binary mask",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "run",
			Usage: "declump a mask guided by an intensity image",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagMask, Usage: "binary mask image", Required: true},
				&cli.StringFlag{Name: flagImage, Usage: "gray intensity image", Required: true},
				&cli.StringFlag{Name: flagConfig, Usage: "YAML configuration file", Value: "config.yaml"},
				&cli.StringFlag{Name: flagOutput, Usage: "output mask (.png or .tiff)", Value: "declumped.png"},
				&cli.StringFlag{Name: flagFigure, Usage: "diagnostic figure (.png)", Value: "declump_figure.png"},
				&cli.IntFlag{Name: flagCuttingPasses, Usage: "override cutting passes"},
				&cli.IntFlag{Name: flagMinCutArea, Usage: "override minimal cut area"},
				&cli.Float64Flag{Name: flagMinAngle, Usage: "override minimal concave angle, in degrees"},
				&cli.BoolFlag{Name: flagSelectionTestMode, Usage: "stop after the first classification"},
				&cli.BoolFlag{Name: flagPerimeterTestMode, Usage: "stop after the first perimeter analysis"},
				&cli.BoolFlag{Name: flagPlot, Usage: "write the diagnostic figure"},
			},
			Action: runAction,
		},
		{
			Name:      "init-config",
			Usage:     "write the default configuration",
			ArgsUsage: "[path]",
			Action:    initConfigAction,
		},
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger initializes the logger with the appropriate configuration
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if c.IsSet(flagCuttingPasses) {
		cfg.Cutting.Passes = c.Int(flagCuttingPasses)
	}
	if c.IsSet(flagMinCutArea) {
		cfg.Cutting.MinCutArea = c.Int(flagMinCutArea)
	}
	if c.IsSet(flagMinAngle) {
		cfg.Cutting.MinAngle = c.Float64(flagMinAngle)
	}
	if c.IsSet(flagSelectionTestMode) {
		cfg.Modes.SelectionTestMode = c.Bool(flagSelectionTestMode)
	}
	if c.IsSet(flagPerimeterTestMode) {
		cfg.Modes.PerimeterTestMode = c.Bool(flagPerimeterTestMode)
	}
	if c.IsSet(flagPlot) {
		cfg.Modes.Plot = c.Bool(flagPlot)
	}
	return cfg, nil
}

func runAction(c *cli.Context) error {
	logger := initLogger(c.Bool(flagDebug))

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	mask, err := imageio.LoadImage(c.String(flagMask))
	if err != nil {
		return errors.Wrap(err, "loading mask")
	}
	img, err := imageio.LoadImage(c.String(flagImage))
	if err != nil {
		return errors.Wrap(err, "loading intensity image")
	}

	start := time.Now()
	res, err := declump.New(cfg, declump.WithLogger(logger)).Run(mask, img)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"status":  res.Status.String(),
		"passes":  len(res.History),
		"elapsed": time.Since(start).String(),
	}).Info("Declumping finished")

	if res.Figure != nil {
		if err := visualization.SavePNG(c.String(flagFigure), res.Figure); err != nil {
			return err
		}
		logger.WithField("path", c.String(flagFigure)).Info("Saved diagnostic figure")
	}
	if res.Halted() {
		fmt.Fprintf(c.App.Writer, "stopped for calibration (%s mode)\n", res.Mode)
		return nil
	}

	if err := imageio.SaveMask(c.String(flagOutput), res.Mask); err != nil {
		return err
	}
	logger.WithField("path", c.String(flagOutput)).Info("Saved output mask")
	return nil
}

func initConfigAction(c *cli.Context) error {
	path := "config.yaml"
	if c.Args().Present() {
		path = c.Args().First()
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote default configuration to %s\n", path)
	return nil
}
