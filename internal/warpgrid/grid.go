// Package warpgrid evaluates displacement kernels on a coarse lattice and
// upsamples the result into a full-resolution sample map.
package warpgrid

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/resample"
)

// DefaultResolution is the node count along the shorter frame axis.
const DefaultResolution = 80

// Grid is a coarse lattice of sample offsets aligned to the frame corners.
type Grid struct {
	resolution    int
	width, height int
	cols, rows    int
	xs, ys        []float64

	// per-pixel interpolation tables
	colIdx, rowIdx []int
	colT, rowT     []float64

	DX, DY []float64
}

// NewGrid creates an empty grid. Buffers are allocated on the first Ensure.
func NewGrid(resolution int) *Grid {
	if resolution < 2 {
		resolution = DefaultResolution
	}
	return &Grid{resolution: resolution}
}

// Ensure sizes the grid for a frame, re-deriving the lattice only when the
// frame size changed. It reports whether a rebuild happened.
func (g *Grid) Ensure(width, height int) bool {
	if width == g.width && height == g.height && g.cols > 0 {
		return false
	}
	g.width, g.height = width, height
	g.cols, g.rows = Shape(g.resolution, width, height)

	g.xs = linspace(float64(width-1), g.cols)
	g.ys = linspace(float64(height-1), g.rows)
	g.colIdx, g.colT = interpTable(width, g.cols)
	g.rowIdx, g.rowT = interpTable(height, g.rows)

	g.DX = make([]float64, g.cols*g.rows)
	g.DY = make([]float64, g.cols*g.rows)
	return true
}

// Shape returns the lattice size for a frame: resolution nodes on the shorter
// axis, the aspect-matched count on the other, never more nodes than pixels.
func Shape(resolution, width, height int) (cols, rows int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if width >= height {
		rows = resolution
		cols = int(math.Round(float64(resolution) * float64(width) / float64(height)))
	} else {
		cols = resolution
		rows = int(math.Round(float64(resolution) * float64(height) / float64(width)))
	}
	return clampCount(cols, width), clampCount(rows, height)
}

// Size returns the lattice dimensions.
func (g *Grid) Size() (cols, rows int) {
	return g.cols, g.rows
}

// Node returns the frame position of node (c, r).
func (g *Grid) Node(c, r int) r2.Point {
	return r2.Point{X: g.xs[c], Y: g.ys[r]}
}

// Reset zeroes all offsets.
func (g *Grid) Reset() {
	for i := range g.DX {
		g.DX[i] = 0
		g.DY[i] = 0
	}
}

// Accumulate adds the kernel's offset at every node. Non-finite offsets are
// dropped.
func (g *Grid) Accumulate(k kernel.Kernel) {
	i := 0
	for r := 0; r < g.rows; r++ {
		y := g.ys[r]
		for c := 0; c < g.cols; c++ {
			off := k.Offset(r2.Point{X: g.xs[c], Y: y})
			if !math.IsNaN(off.X) && !math.IsNaN(off.Y) && !math.IsInf(off.X, 0) && !math.IsInf(off.Y, 0) {
				g.DX[i] += off.X
				g.DY[i] += off.Y
			}
			i++
		}
	}
}

// Upsample resets m to the full frame and writes identity plus the bilinearly
// interpolated offsets into it.
func (g *Grid) Upsample(m *resample.Map) {
	m.Reset(frameRect(g.width, g.height))
	i := 0
	for y := 0; y < g.height; y++ {
		r0 := g.rowIdx[y]
		r1 := min(r0+1, g.rows-1)
		ty := g.rowT[y]
		for x := 0; x < g.width; x++ {
			c0 := g.colIdx[x]
			c1 := min(c0+1, g.cols-1)
			tx := g.colT[x]

			i00 := r0*g.cols + c0
			i10 := r0*g.cols + c1
			i01 := r1*g.cols + c0
			i11 := r1*g.cols + c1

			dx := (g.DX[i00]*(1-tx)+g.DX[i10]*tx)*(1-ty) + (g.DX[i01]*(1-tx)+g.DX[i11]*tx)*ty
			dy := (g.DY[i00]*(1-tx)+g.DY[i10]*tx)*(1-ty) + (g.DY[i01]*(1-tx)+g.DY[i11]*tx)*ty
			m.X[i] += float32(dx)
			m.Y[i] += float32(dy)
			i++
		}
	}
}

// At returns the offset stored at node (c, r).
func (g *Grid) At(c, r int) r2.Point {
	i := r*g.cols + c
	return r2.Point{X: g.DX[i], Y: g.DY[i]}
}

func linspace(end float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		return out
	}
	for i := range out {
		out[i] = end * float64(i) / float64(n-1)
	}
	return out
}

// interpTable maps each pixel coordinate to its left node and blend factor.
func interpTable(size, nodes int) ([]int, []float64) {
	idx := make([]int, size)
	t := make([]float64, size)
	if nodes < 2 || size < 2 {
		return idx, t
	}
	step := float64(nodes-1) / float64(size-1)
	for p := 0; p < size; p++ {
		f := float64(p) * step
		i := int(math.Floor(f))
		if i >= nodes-1 {
			i = nodes - 1
			f = float64(i)
		}
		idx[p] = i
		t[p] = f - float64(i)
	}
	return idx, t
}

func clampCount(n, size int) int {
	if n > size {
		n = size
	}
	if n < 2 {
		n = 2
	}
	return n
}
