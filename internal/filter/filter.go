// Package filter turns landmark sets into warped frames. Every effect is a
// WarpFilter; the kernel, mesh and pose packages do the geometry.
package filter

import (
	"image"
	"strings"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
)

// WarpFilter applies one face effect to a frame.
//
// Apply never modifies frame and returns an image of the same size. A nil
// landmark set, or one that lacks the points the filter needs, yields an
// unmodified copy.
type WarpFilter interface {
	Name() string
	Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA
}

// Resetter is implemented by filters that keep state across frames.
type Resetter interface {
	Reset()
}

// Options carries the collaborators shared by all filters.
type Options struct {
	Logger *zap.SugaredLogger
	Clock  clock.Clock
	// Smoother backs skin smoothing. Nil uses a GaussianSmoother.
	Smoother SkinSmoother
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return o
}

// base holds the name and logger every filter shares.
type base struct {
	name   string
	logger *zap.SugaredLogger
	active bool
}

func newBase(name string, opts Options) base {
	return base{name: name, logger: opts.Logger.Named(name)}
}

// Name implements WarpFilter.
func (b *base) Name() string {
	return b.name
}

// activate logs the filter parameters the first time the filter sees a face.
func (b *base) activate(params any) {
	if b.active {
		return
	}
	b.active = true
	b.logger.Infow("filter active", "params", params)
}

// usable reports whether lm covers indices and returns the frame size.
func usable(frame *image.RGBA, lm *landmark.Set, indices ...int) (int, int, bool) {
	if frame == nil || lm == nil {
		return 0, 0, false
	}
	b := frame.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return 0, 0, false
	}
	return b.Dx(), b.Dy(), lm.Covers(indices...)
}

// passthrough is the result of a filter that has nothing to do.
func passthrough(frame *image.RGBA) *image.RGBA {
	if frame == nil {
		return nil
	}
	return resample.Clone(frame)
}

// Chain runs filters in order, feeding each the previous output.
type Chain []WarpFilter

// Name joins the member names with "+".
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, f := range c {
		names[i] = f.Name()
	}
	return strings.Join(names, "+")
}

// Apply implements WarpFilter.
func (c Chain) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	out := passthrough(frame)
	for _, f := range c {
		out = f.Apply(out, lm)
	}
	return out
}

// Reset resets every member that keeps state.
func (c Chain) Reset() {
	for _, f := range c {
		if r, ok := f.(Resetter); ok {
			r.Reset()
		}
	}
}
