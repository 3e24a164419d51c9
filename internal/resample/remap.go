// Package resample performs inverse-mapped bilinear sampling of RGBA frames.
package resample

import (
	"image"
	"math"
)

// Border selects how samples outside the frame are extended.
type Border int

const (
	// Reflect101 mirrors without repeating the edge pixel (gfedcb|abcdefgh|gfedcba).
	Reflect101 Border = iota
	// Replicate repeats the edge pixel (aaaaaa|abcdefgh|hhhhhhh).
	Replicate
)

// String implements fmt.Stringer.
func (b Border) String() string {
	switch b {
	case Reflect101:
		return "reflect101"
	case Replicate:
		return "replicate"
	default:
		return "unknown"
	}
}

// Map holds absolute source coordinates for every pixel of Rect, row-major.
type Map struct {
	Rect image.Rectangle
	X, Y []float32
}

// NewMap allocates an identity map over rect.
func NewMap(rect image.Rectangle) *Map {
	m := &Map{}
	m.Reset(rect)
	return m
}

// Reset resizes m to rect, reusing buffers when possible, and fills it with
// the identity mapping.
func (m *Map) Reset(rect image.Rectangle) {
	n := rect.Dx() * rect.Dy()
	if cap(m.X) < n {
		m.X = make([]float32, n)
		m.Y = make([]float32, n)
	}
	m.X = m.X[:n]
	m.Y = m.Y[:n]
	m.Rect = rect

	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			m.X[i] = float32(x)
			m.Y[i] = float32(y)
			i++
		}
	}
}

// Clamp limits every coordinate to [0,w-1] x [0,h-1]. Non-finite entries are
// replaced by the identity coordinate.
func (m *Map) Clamp(width, height int) {
	maxX := float32(width - 1)
	maxY := float32(height - 1)
	i := 0
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		for x := m.Rect.Min.X; x < m.Rect.Max.X; x++ {
			sx, sy := m.X[i], m.Y[i]
			if !finite32(sx) || !finite32(sy) {
				sx, sy = float32(x), float32(y)
			}
			m.X[i] = clamp32(sx, 0, maxX)
			m.Y[i] = clamp32(sy, 0, maxY)
			i++
		}
	}
}

// Remap writes dst pixels inside m.Rect by sampling src at the mapped
// coordinates. dst and src must have the same bounds and must not alias.
// Pixels outside m.Rect are left untouched.
func Remap(dst, src *image.RGBA, m *Map, border Border) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	rect := m.Rect.Intersect(b)

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := (y - m.Rect.Min.Y) * m.Rect.Dx()
		dOff := dst.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			i := row + x - m.Rect.Min.X
			sample(dst.Pix[dOff:dOff+4], src, float64(m.X[i]), float64(m.Y[i]), w, h, border)
			dOff += 4
		}
	}
}

// sample bilinearly interpolates src at frame-relative (sx, sy) into out.
func sample(out []uint8, src *image.RGBA, sx, sy float64, w, h int, border Border) {
	x0f := math.Floor(sx)
	y0f := math.Floor(sy)
	fx := sx - x0f
	fy := sy - y0f
	x0 := int(x0f)
	y0 := int(y0f)

	x1 := Index(x0+1, w, border)
	y1 := Index(y0+1, h, border)
	x0 = Index(x0, w, border)
	y0 = Index(y0, h, border)

	min := src.Rect.Min
	p00 := src.PixOffset(min.X+x0, min.Y+y0)
	p10 := src.PixOffset(min.X+x1, min.Y+y0)
	p01 := src.PixOffset(min.X+x0, min.Y+y1)
	p11 := src.PixOffset(min.X+x1, min.Y+y1)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	for c := 0; c < 4; c++ {
		v := float64(src.Pix[p00+c])*w00 +
			float64(src.Pix[p10+c])*w10 +
			float64(src.Pix[p01+c])*w01 +
			float64(src.Pix[p11+c])*w11
		out[c] = uint8(clamp64(v+0.5, 0, 255))
	}
}

// Index maps a possibly out-of-range coordinate into [0,n) using border.
func Index(i, n int, border Border) int {
	if i >= 0 && i < n {
		return i
	}
	if n == 1 {
		return 0
	}
	switch border {
	case Replicate:
		if i < 0 {
			return 0
		}
		return n - 1
	default:
		period := 2 * (n - 1)
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i
	}
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
