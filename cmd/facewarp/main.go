// Package main runs the live webcam warp filters.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/dudu/facewarp/internal/camera"
	"github.com/dudu/facewarp/internal/config"
	"github.com/dudu/facewarp/internal/filter"
	"github.com/dudu/facewarp/internal/inference"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/logging"
	"github.com/dudu/facewarp/internal/pipeline"
	"github.com/dudu/facewarp/internal/skin"
	"github.com/dudu/facewarp/internal/ui"
)

func init() {
	// OpenCV's highgui must run on the main OS thread on macOS.
	runtime.LockOSThread()
}

const (
	flagBackend    = "backend"
	flagGPU        = "gpu"
	flagModel      = "model"
	flagDetector   = "detector"
	flagORTLibrary = "ort-library"
	flagMaxWidth   = "max-width"
	flagMaxHeight  = "max-height"
	flagCamera     = "camera"
	flagWidth      = "width"
	flagHeight     = "height"
	flagFPS        = "fps"
	flagFilters    = "filters"
	flagParams     = "params"
	flagLogFile    = "log-file"
	flagDebug      = "debug"
	flagPreview    = "preview"
	flagRecord     = "record"
	flagMeshInput  = "mesh-input"
	flagMeshOutput = "mesh-output"
	flagMeshScore  = "mesh-score"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	defaults := config.Default()
	app := &cli.App{
		Name:  "facewarp",
		Usage: "live face-aligned warp filters on a webcam feed",
		Description: "Keys: n selects the next filter, r resets the current one, q or ESC quits.\n" +
			"Join filter names with + to stack them, for example cube_head+pinocchio.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagBackend,
				Aliases: []string{"b"},
				Value:   defaults.Backend,
				Usage:   "landmark backend: onnx or replay",
				EnvVars: []string{config.EnvBackend},
			},
			&cli.BoolFlag{
				Name:    flagGPU,
				Usage:   "run the models on the CoreML execution provider",
				EnvVars: []string{config.EnvGPU},
			},
			&cli.StringFlag{
				Name:    flagModel,
				Aliases: []string{"m"},
				Value:   defaults.ModelPath,
				Usage:   "face mesh model, or the landmark recording for the replay backend",
				EnvVars: []string{config.EnvModelPath},
			},
			&cli.StringFlag{
				Name:    flagDetector,
				Value:   defaults.DetectorPath,
				Usage:   "SCRFD face detector model",
				EnvVars: []string{config.EnvDetector},
			},
			&cli.StringFlag{
				Name:    flagORTLibrary,
				Usage:   "ONNX Runtime shared library",
				Value:   inference.DefaultLibraryPath(),
				EnvVars: []string{config.EnvORTLib},
			},
			&cli.IntFlag{
				Name:    flagMaxWidth,
				Value:   defaults.MaxWidth,
				Usage:   "largest frame width given to the landmark model, 0 for no limit",
				EnvVars: []string{config.EnvMaxWidth},
			},
			&cli.IntFlag{
				Name:    flagMaxHeight,
				Value:   defaults.MaxHeight,
				Usage:   "largest frame height given to the landmark model, 0 for no limit",
				EnvVars: []string{config.EnvMaxHeight},
			},
			&cli.IntFlag{Name: flagCamera, Aliases: []string{"c"}, Usage: "camera device index"},
			&cli.IntFlag{Name: flagWidth, Value: defaults.Width, Usage: "requested camera width"},
			&cli.IntFlag{Name: flagHeight, Value: defaults.Height, Usage: "requested camera height"},
			&cli.IntFlag{Name: flagFPS, Value: defaults.TargetFPS, Usage: "requested camera frame rate"},
			&cli.StringFlag{
				Name:    flagFilters,
				Aliases: []string{"f"},
				Value:   strings.Join(filter.Names(), ","),
				Usage:   "comma separated filters to cycle through",
			},
			&cli.StringFlag{
				Name:    flagParams,
				Aliases: []string{"p"},
				Usage:   "JSON `FILE` of per-filter parameter overrides",
			},
			&cli.StringFlag{Name: flagLogFile, Usage: "also write JSON logs to a rotating `FILE`"},
			&cli.BoolFlag{Name: flagDebug, Usage: "enable debug logging"},
			&cli.BoolFlag{Name: flagPreview, Value: true, Usage: "show the preview window"},
			&cli.StringFlag{
				Name:  flagRecord,
				Usage: "save the detected landmarks to a `FILE` the replay backend can play",
			},
			&cli.StringFlag{Name: flagMeshInput, Hidden: true, Usage: "face mesh input tensor name"},
			&cli.StringFlag{Name: flagMeshOutput, Hidden: true, Usage: "face mesh landmarks output name"},
			&cli.StringFlag{Name: flagMeshScore, Hidden: true, Usage: "face mesh score output name"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configFromContext(c *cli.Context) config.Config {
	return config.Config{
		Backend:      c.String(flagBackend),
		GPU:          c.Bool(flagGPU),
		ModelPath:    c.String(flagModel),
		DetectorPath: c.String(flagDetector),
		ORTLibrary:   c.String(flagORTLibrary),
		MaxWidth:     c.Int(flagMaxWidth),
		MaxHeight:    c.Int(flagMaxHeight),
		CameraID:     c.Int(flagCamera),
		Width:        c.Int(flagWidth),
		Height:       c.Int(flagHeight),
		TargetFPS:    c.Int(flagFPS),
		Filters:      config.SplitFilters(c.String(flagFilters)),
		ParamsFile:   c.String(flagParams),
		LogFile:      c.String(flagLogFile),
		Debug:        c.Bool(flagDebug),
	}
}

func run(c *cli.Context) error {
	cfg := configFromContext(c)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Debug: cfg.Debug, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	params, err := config.LoadParams(cfg.ParamsFile)
	if err != nil {
		return err
	}
	filters, err := buildFilters(cfg.Filters, params, filter.Options{
		Logger:   logger.Named("filter"),
		Smoother: skin.DefaultBilateral(),
	})
	if err != nil {
		return err
	}

	if cfg.Backend == config.BackendONNX {
		if err := inference.Initialize(cfg.ORTLibrary); err != nil {
			return err
		}
		defer func() {
			if err := inference.Shutdown(); err != nil {
				logger.Warnw("ONNX Runtime shutdown failed", "error", err)
			}
		}()
	}

	factory := newSourceFactory(cfg, meshNames{
		input:  c.String(flagMeshInput),
		output: c.String(flagMeshOutput),
		score:  c.String(flagMeshScore),
	}, logger)
	registry := landmark.NewRegistry(factory, logger.Named("landmark"))
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warnw("failed to close landmark sources", "error", err)
		}
	}()
	source, err := registry.Get(cfg.LandmarkKey())
	if err != nil {
		return err
	}

	var capture *landmark.Capture
	if path := c.String(flagRecord); path != "" {
		capture = landmark.NewCapture(source)
		source = capture
		defer func() {
			if err := capture.Save(path); err != nil {
				logger.Warnw("failed to save landmark recording", "path", path, "error", err)
				return
			}
			logger.Infow("landmark recording saved", "path", path, "frames", capture.Len())
		}()
	}

	p, err := pipeline.New(source, filters, pipeline.Options{Logger: logger.Named("pipeline")})
	if err != nil {
		return err
	}

	cam, err := camera.NewCaptureWithResolution(cfg.CameraID, cfg.TargetFPS, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer cam.Close()
	logger.Infow("camera opened", "camera", cfg.CameraID, "width", cam.Width(), "height", cam.Height())

	var display pipeline.Display
	if c.Bool(flagPreview) {
		window := ui.NewWindow("facewarp", cam.Width(), cam.Height())
		defer window.Close()
		display = window
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infow("running", "filter", p.Filter().Name(), "filters", len(filters))
	if err := p.Run(ctx, cam, display); err != nil {
		return err
	}

	printSummary(p.Summary())
	return nil
}

// buildFilters creates one selectable filter per entry. Entries joined with
// + become a chain.
func buildFilters(entries []string, params config.Params, opts filter.Options) ([]filter.WarpFilter, error) {
	filters := make([]filter.WarpFilter, 0, len(entries))
	for _, entry := range entries {
		names := strings.Split(entry, "+")
		if len(names) == 1 {
			f, err := filter.New(names[0], params[names[0]], opts)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
			continue
		}
		chain, err := filter.NewChain(names, params, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build %s", entry)
		}
		filters = append(filters, chain)
	}
	return filters, nil
}

func printSummary(s pipeline.Summary) {
	fmt.Printf("\nFrames: %d\n", s.Frames)
	if s.Frames == 0 {
		return
	}
	fmt.Printf("  detection: %s\n", s.Detection)
	fmt.Printf("  filter:    %s\n", s.Filter)
	fmt.Printf("  total:     %s\n", s.Total)
}
