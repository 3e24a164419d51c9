package landmark

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Source produces the landmarks of at most one face per frame.
// A nil Set with a nil error means no face was found.
type Source interface {
	Detect(img image.Image) (*Set, error)
	Close() error
}

// Key identifies a Source configuration. Filters asking for the same key
// share one Source.
type Key struct {
	Backend   string
	GPU       bool
	ModelPath string
	MaxWidth  int
	MaxHeight int
}

// Factory builds a Source for a key.
type Factory func(key Key) (Source, error)

// Registry caches Sources by Key.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	sources map[Key]Source
	logger  *zap.SugaredLogger
}

// NewRegistry creates a registry that builds missing sources with factory.
func NewRegistry(factory Factory, logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{
		factory: factory,
		sources: make(map[Key]Source),
		logger:  logger,
	}
}

// Get returns the cached Source for key, creating it on first use.
func (r *Registry) Get(key Key) (Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if src, ok := r.sources[key]; ok {
		return src, nil
	}
	if r.factory == nil {
		return nil, errors.New("landmark registry has no factory")
	}

	src, err := r.factory(key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s landmark source", key.Backend)
	}
	if key.MaxWidth > 0 || key.MaxHeight > 0 {
		src = Downscale(src, key.MaxWidth, key.MaxHeight)
	}
	r.logger.Infow("landmark source created", "backend", key.Backend, "gpu", key.GPU, "model", key.ModelPath)
	r.sources[key] = src
	return src, nil
}

// Len returns the number of cached sources.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

// Close closes every cached source.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for key, src := range r.sources {
		err = multierr.Append(err, src.Close())
		delete(r.sources, key)
	}
	return err
}

type downscaled struct {
	Source
	maxWidth, maxHeight int
}

// Downscale wraps src so frames larger than maxWidth x maxHeight are shrunk
// before detection. Landmarks are normalized, so the result needs no rescaling.
// A zero limit leaves that axis unbounded.
func Downscale(src Source, maxWidth, maxHeight int) Source {
	return &downscaled{Source: src, maxWidth: maxWidth, maxHeight: maxHeight}
}

func (d *downscaled) Detect(img image.Image) (*Set, error) {
	b := img.Bounds()
	maxW, maxH := d.maxWidth, d.maxHeight
	if maxW <= 0 {
		maxW = b.Dx()
	}
	if maxH <= 0 {
		maxH = b.Dy()
	}
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return d.Source.Detect(img)
	}
	return d.Source.Detect(imaging.Fit(img, maxW, maxH, imaging.Linear))
}
