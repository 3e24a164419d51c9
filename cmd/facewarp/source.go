package main

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dudu/facewarp/internal/config"
	"github.com/dudu/facewarp/internal/detector"
	"github.com/dudu/facewarp/internal/landmark"
)

// meshNames overrides the tensor names of the face mesh export.
type meshNames struct {
	input, output, score string
}

// newSourceFactory builds landmark sources for the registry. The replay
// backend reads the recording named by the key's model path.
func newSourceFactory(cfg config.Config, names meshNames, logger *zap.SugaredLogger) landmark.Factory {
	return func(key landmark.Key) (landmark.Source, error) {
		switch key.Backend {
		case config.BackendReplay:
			replay, err := landmark.LoadReplay(key.ModelPath)
			if err != nil {
				return nil, err
			}
			return replay, nil
		case config.BackendONNX:
			mc := detector.DefaultFaceMeshConfig()
			mc.ModelPath = key.ModelPath
			mc.DetectorPath = cfg.DetectorPath
			mc.GPU = key.GPU
			if names.input != "" {
				mc.InputName = names.input
			}
			if names.output != "" {
				mc.LandmarksOutput = names.output
			}
			if names.score != "" {
				mc.ScoreOutput = names.score
			}
			mesh, err := detector.NewFaceMesh(mc, logger.Named("facemesh"))
			if err != nil {
				return nil, err
			}
			return mesh, nil
		default:
			return nil, errors.Errorf("unknown landmark backend %q", key.Backend)
		}
	}
}
