// Package inference wraps ONNX Runtime sessions for the landmark models.
package inference

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	initialized bool
	initMu      sync.Mutex
)

// DefaultLibraryPath returns the bundled ONNX Runtime shared library for the
// current platform.
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "lib/libonnxruntime.dylib"
	case "windows":
		return "lib/onnxruntime.dll"
	default:
		return "lib/libonnxruntime.so"
	}
}

// Initialize loads the ONNX Runtime library once per process. An empty path
// uses DefaultLibraryPath.
func Initialize(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}
	if libraryPath == "" {
		libraryPath = DefaultLibraryPath()
	}
	ort.SetSharedLibraryPath(libraryPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime from %s: %w", libraryPath, err)
	}

	initialized = true
	return nil
}

// Shutdown tears the environment down again.
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}
	initialized = false
	return nil
}

// Options configures a Session.
type Options struct {
	// GPU asks for the CoreML execution provider. Sessions fall back to the
	// CPU when it is unavailable.
	GPU    bool
	Logger *zap.SugaredLogger
}

// Session wraps an ONNX Runtime inference session with fixed input and
// output names.
type Session struct {
	session     *ort.DynamicAdvancedSession
	modelPath   string
	inputNames  []string
	outputNames []string
	accelerated bool
}

// NewSession loads a model. Initialize must have been called.
func NewSession(modelPath string, inputNames, outputNames []string, opts Options) (*Session, error) {
	if !initialized {
		return nil, fmt.Errorf("ONNX Runtime not initialized, call Initialize() first")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	accelerated := false
	if opts.GPU {
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			logger.Warnw("CoreML unavailable, running on CPU", "model", modelPath, "error", err)
		} else {
			accelerated = true
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}
	logger.Infow("model loaded", "model", modelPath, "accelerated", accelerated)

	return &Session{
		session:     session,
		modelPath:   modelPath,
		inputNames:  inputNames,
		outputNames: outputNames,
		accelerated: accelerated,
	}, nil
}

// Run executes inference with the given inputs.
func (s *Session) Run(inputs []ort.Value, outputs []ort.Value) error {
	return s.session.Run(inputs, outputs)
}

// Accelerated reports whether the session runs on an execution provider
// other than the CPU.
func (s *Session) Accelerated() bool {
	return s.accelerated
}

// Destroy releases session resources.
func (s *Session) Destroy() error {
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		return err
	}
	return nil
}

// CreateTensor creates a tensor with the given shape and data.
func CreateTensor[T ort.TensorData](shape []int64, data []T) (*ort.Tensor[T], error) {
	return ort.NewTensor(ort.NewShape(shape...), data)
}

// CreateEmptyTensor creates a zeroed tensor for outputs.
func CreateEmptyTensor[T ort.TensorData](shape []int64) (*ort.Tensor[T], error) {
	return ort.NewEmptyTensor[T](ort.NewShape(shape...))
}

// DestroyAll releases tensors, aggregating the errors.
func DestroyAll(values ...ort.Value) error {
	var err error
	for _, v := range values {
		if v != nil {
			err = multierr.Append(err, v.Destroy())
		}
	}
	return err
}

// TensorInfo describes one model input or output.
type TensorInfo struct {
	Name       string
	Dimensions []int64
	DataType   string
}

// ModelInfo is what Describe reports about a model file.
type ModelInfo struct {
	Inputs      []TensorInfo
	Outputs     []TensorInfo
	Producer    string
	Version     int64
	Domain      string
	Description string
}

// Describe reads the input, output and metadata of a model without creating
// a session. Initialize must have been called.
func Describe(modelPath string) (*ModelInfo, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	info := &ModelInfo{
		Inputs:  tensorInfos(inputs),
		Outputs: tensorInfos(outputs),
	}

	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return info, nil
	}
	defer metadata.Destroy()
	if v, err := metadata.GetProducerName(); err == nil {
		info.Producer = v
	}
	if v, err := metadata.GetVersion(); err == nil {
		info.Version = v
	}
	if v, err := metadata.GetDomain(); err == nil {
		info.Domain = v
	}
	if v, err := metadata.GetDescription(); err == nil {
		info.Description = v
	}
	return info, nil
}

func tensorInfos(in []ort.InputOutputInfo) []TensorInfo {
	out := make([]TensorInfo, len(in))
	for i, info := range in {
		out[i] = TensorInfo{
			Name:       info.Name,
			Dimensions: []int64(info.Dimensions),
			DataType:   fmt.Sprint(info.DataType),
		}
	}
	return out
}
