// Package main applies warp filters to a still image.
package main

import (
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/dudu/facewarp/internal/config"
	"github.com/dudu/facewarp/internal/detector"
	"github.com/dudu/facewarp/internal/filter"
	"github.com/dudu/facewarp/internal/inference"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/logging"
	"github.com/dudu/facewarp/internal/resample"
)

const (
	flagInput      = "in"
	flagOutput     = "out"
	flagLandmarks  = "landmarks"
	flagFrame      = "frame"
	flagFilter     = "filter"
	flagParams     = "params"
	flagElapsed    = "elapsed"
	flagModel      = "model"
	flagDetector   = "detector"
	flagGPU        = "gpu"
	flagORTLibrary = "ort-library"
	flagDebug      = "debug"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	defaults := config.Default()
	app := &cli.App{
		Name:      "warpimage",
		Usage:     "apply a warp filter to one image",
		UsageText: "warpimage --in face.jpg --out alien.png --filter alien [--landmarks rec.json]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagInput, Aliases: []string{"i"}, Required: true, Usage: "input image `FILE`"},
			&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Required: true, Usage: "output image `FILE`"},
			&cli.StringFlag{
				Name:  flagLandmarks,
				Usage: "landmark recording `FILE`; without it the face mesh model runs on the image",
			},
			&cli.IntFlag{Name: flagFrame, Usage: "recording frame to use"},
			&cli.StringFlag{
				Name:    flagFilter,
				Aliases: []string{"f"},
				Value:   filter.AlienName,
				Usage:   "filter name; join names with + to stack them",
			},
			&cli.StringFlag{Name: flagParams, Aliases: []string{"p"}, Usage: "JSON `FILE` of parameter overrides"},
			&cli.DurationFlag{Name: flagElapsed, Usage: "time since the filter was switched on"},
			&cli.StringFlag{
				Name:    flagModel,
				Value:   defaults.ModelPath,
				Usage:   "face mesh model",
				EnvVars: []string{config.EnvModelPath},
			},
			&cli.StringFlag{
				Name:    flagDetector,
				Value:   defaults.DetectorPath,
				Usage:   "SCRFD face detector model",
				EnvVars: []string{config.EnvDetector},
			},
			&cli.BoolFlag{Name: flagGPU, EnvVars: []string{config.EnvGPU}, Usage: "use the CoreML execution provider"},
			&cli.StringFlag{
				Name:    flagORTLibrary,
				Value:   inference.DefaultLibraryPath(),
				Usage:   "ONNX Runtime shared library",
				EnvVars: []string{config.EnvORTLib},
			},
			&cli.BoolFlag{Name: flagDebug, Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := logging.New(logging.Options{Debug: c.Bool(flagDebug)})
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	img, err := imaging.Open(c.String(flagInput), imaging.AutoOrientation(true))
	if err != nil {
		return errors.Wrap(err, "failed to open input image")
	}
	frame := resample.ToRGBA(img)

	lm, err := landmarks(c, frame)
	if err != nil {
		return err
	}
	if lm == nil {
		logger.Warn("no face found, writing the image unchanged")
	}

	params, err := config.LoadParams(c.String(flagParams))
	if err != nil {
		return err
	}
	clk := clock.NewMock()
	clk.Set(time.Now())
	chain, err := filter.NewChain(strings.Split(c.String(flagFilter), "+"), params,
		filter.Options{Logger: logger.Named("filter"), Clock: clk})
	if err != nil {
		return err
	}

	if elapsed := c.Duration(flagElapsed); elapsed > 0 {
		// the first pass starts the growth timers
		chain.Apply(frame, lm)
		clk.Add(elapsed)
	}
	out := chain.Apply(frame, lm)

	if err := imaging.Save(out, c.String(flagOutput)); err != nil {
		return errors.Wrap(err, "failed to save output image")
	}
	logger.Infow("image written", "filter", chain.Name(), "out", c.String(flagOutput))
	return nil
}

// landmarks reads the requested recording frame, or runs the face mesh
// model when no recording was given.
func landmarks(c *cli.Context, frame *image.RGBA) (*landmark.Set, error) {
	if path := c.String(flagLandmarks); path != "" {
		replay, err := landmark.LoadReplay(path)
		if err != nil {
			return nil, err
		}
		var lm *landmark.Set
		for i := 0; i <= c.Int(flagFrame); i++ {
			if lm, err = replay.Detect(frame); err != nil {
				return nil, err
			}
		}
		return lm, nil
	}

	if err := inference.Initialize(c.String(flagORTLibrary)); err != nil {
		return nil, err
	}
	defer inference.Shutdown()

	mc := detector.DefaultFaceMeshConfig()
	mc.ModelPath = c.String(flagModel)
	mc.DetectorPath = c.String(flagDetector)
	mc.GPU = c.Bool(flagGPU)
	mesh, err := detector.NewFaceMesh(mc, nil)
	if err != nil {
		return nil, err
	}
	defer mesh.Close()
	return mesh.Detect(frame)
}
