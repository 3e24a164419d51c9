// Package config holds the settings shared by the facewarp commands.
package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/dudu/facewarp/internal/landmark"
)

// Landmark backends.
const (
	BackendONNX   = "onnx"
	BackendReplay = "replay"
)

// Environment variables read by the commands.
const (
	EnvBackend   = "FACEMESH_BACKEND"
	EnvGPU       = "FACEMESH_GPU"
	EnvModelPath = "FACEMESH_MODEL_PATH"
	EnvMaxWidth  = "FACEMESH_MAX_WIDTH"
	EnvMaxHeight = "FACEMESH_MAX_HEIGHT"
	EnvDetector  = "FACEMESH_DETECTOR_PATH"
	EnvORTLib    = "FACEMESH_ORT_LIBRARY"
)

// Config is the runtime configuration of the live and offline commands.
type Config struct {
	Backend      string `validate:"oneof=onnx replay"`
	GPU          bool
	ModelPath    string `validate:"required"`
	DetectorPath string `validate:"required_if=Backend onnx"`
	ORTLibrary   string
	MaxWidth     int `validate:"gte=0"`
	MaxHeight    int `validate:"gte=0"`

	CameraID  int `validate:"gte=0"`
	Width     int `validate:"gt=0"`
	Height    int `validate:"gt=0"`
	TargetFPS int `validate:"gt=0,lte=240"`

	Filters    []string `validate:"min=1,dive,required"`
	ParamsFile string
	LogFile    string
	Debug      bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Backend:      BackendONNX,
		ModelPath:    "models/face_landmark.onnx",
		DetectorPath: "models/scrfd_500m.onnx",
		MaxWidth:     640,
		MaxHeight:    480,
		Width:        1280,
		Height:       720,
		TargetFPS:    30,
		Filters:      []string{"alien"},
	}
}

var validate = validator.New()

// Validate checks the field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// LandmarkKey returns the registry key for the configured landmark source.
func (c Config) LandmarkKey() landmark.Key {
	return landmark.Key{
		Backend:   c.Backend,
		GPU:       c.GPU,
		ModelPath: c.ModelPath,
		MaxWidth:  c.MaxWidth,
		MaxHeight: c.MaxHeight,
	}
}

// LoadEnv loads variables from the given dotenv files into the process
// environment. Variables that are already set win. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "failed to load %s", f)
		}
	}
	return nil
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Params maps a filter name to its raw parameter overrides.
type Params map[string]map[string]any

// LoadParams reads a JSON params file. An empty path yields empty params.
func LoadParams(path string) (Params, error) {
	if path == "" {
		return Params{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read params file")
	}
	return ParseParams(data)
}

// ParseParams decodes params from JSON.
func ParseParams(data []byte) (Params, error) {
	params := Params{}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, errors.Wrap(err, "failed to decode params file")
	}
	return params, nil
}

// SplitFilters parses a comma separated filter list, dropping blanks.
func SplitFilters(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
