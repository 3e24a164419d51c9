package warpgrid

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/resample"
)

// Warper owns the grid and map buffers of one filter and turns kernels into
// a resampled frame.
type Warper struct {
	grid   *Grid
	field  *resample.Map
	roi    *resample.Map
	border resample.Border
}

// NewWarper creates a warper with the given grid resolution and border policy.
func NewWarper(resolution int, border resample.Border) *Warper {
	return &Warper{
		grid:   NewGrid(resolution),
		field:  &resample.Map{},
		roi:    &resample.Map{},
		border: border,
	}
}

// Field exposes the full-resolution sample map of the last Warp call.
func (w *Warper) Field() *resample.Map {
	return w.field
}

// Warp evaluates coarse kernels on the grid and dense kernels per pixel, then
// resamples src into a new frame. src is not modified.
func (w *Warper) Warp(src *image.RGBA, coarse, dense []kernel.Kernel) *image.RGBA {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()

	w.grid.Ensure(width, height)
	w.grid.Reset()
	for _, k := range coarse {
		w.grid.Accumulate(k)
	}
	w.grid.Upsample(w.field)
	for _, k := range dense {
		accumulateDense(w.field, k)
	}
	w.field.Clamp(width, height)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	resample.Remap(dst, src, w.field, w.border)
	return dst
}

// WarpRect applies an inverse map only inside rect; the rest of the frame is
// copied unchanged.
func (w *Warper) WarpRect(src *image.RGBA, rect image.Rectangle, k kernel.Kernel) *image.RGBA {
	b := src.Bounds()
	dst := resample.Clone(src)
	rect = rect.Intersect(frameRect(b.Dx(), b.Dy()))
	if rect.Empty() {
		return dst
	}
	w.roi.Reset(rect)
	accumulateDense(w.roi, k)
	w.roi.Clamp(b.Dx(), b.Dy())
	resample.Remap(dst, src, w.roi, w.border)
	return dst
}

func accumulateDense(m *resample.Map, k kernel.Kernel) {
	i := 0
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		for x := m.Rect.Min.X; x < m.Rect.Max.X; x++ {
			off := k.Offset(r2.Point{X: float64(x), Y: float64(y)})
			if !math.IsNaN(off.X) && !math.IsNaN(off.Y) {
				m.X[i] += float32(off.X)
				m.Y[i] += float32(off.Y)
			}
			i++
		}
	}
}

func frameRect(width, height int) image.Rectangle {
	return image.Rect(0, 0, width, height)
}
