package mesh

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// minArea is the smallest triangle area, in square pixels, that is drawn.
const minArea = 1e-6

// LocalWarp moves the image content of every mesh triangle from its position
// in from to its position in to. Pixels inside a destination triangle are
// overwritten with the affinely warped source, everything else keeps the
// source pixel. Unchanged and zero-area triangles are skipped.
func LocalWarp(src *image.RGBA, m *TriangleMesh, from, to []r2.Point) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	if m.Len() == 0 || len(from) != len(to) {
		return dst
	}

	bounds := src.Bounds()
	for _, t := range m.Triangles {
		s := t.Vertices(from)
		d := t.Vertices(to)
		if s == d {
			continue
		}
		if math.Abs(TriangleArea(s[0], s[1], s[2])) < minArea ||
			math.Abs(TriangleArea(d[0], d[1], d[2])) < minArea {
			continue
		}

		mask := triangleMask(d, bounds)
		if mask == nil {
			continue
		}
		s2d, ok := affine(s, d)
		if !ok {
			continue
		}
		if dx, dy, ok := integerShift(s2d); ok {
			shift(dst, src, mask, dx, dy)
			continue
		}
		sr := boundingRect(s).Inset(-1).Intersect(bounds)
		if sr.Empty() {
			continue
		}
		draw.ApproxBiLinear.Transform(dst, s2d, src, sr, draw.Src, &draw.Options{
			DstMask: mask,
		})
	}
	return dst
}

// affine solves for the transform mapping triangle s onto triangle d. Points
// are shifted by half a pixel because draw samples at pixel centers.
func affine(s, d [3]r2.Point) (f64.Aff3, bool) {
	a := mat.NewDense(3, 3, nil)
	b := mat.NewDense(3, 2, nil)
	for i := 0; i < 3; i++ {
		a.SetRow(i, []float64{s[i].X + 0.5, s[i].Y + 0.5, 1})
		b.SetRow(i, []float64{d[i].X + 0.5, d[i].Y + 0.5})
	}
	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return f64.Aff3{}, false
		}
	}
	return f64.Aff3{
		x.At(0, 0), x.At(1, 0), x.At(2, 0),
		x.At(0, 1), x.At(1, 1), x.At(2, 1),
	}, true
}

// integerShift reports whether s2d is a pure whole-pixel translation.
// draw.Transform takes a Copy shortcut for those that misplaces the
// rectangle, so they are handled by shift.
func integerShift(s2d f64.Aff3) (dx, dy int, ok bool) {
	if s2d[0] != 1 || s2d[1] != 0 || s2d[3] != 0 || s2d[4] != 1 {
		return 0, 0, false
	}
	dx, dy = int(s2d[2]), int(s2d[5])
	return dx, dy, float64(dx) == s2d[2] && float64(dy) == s2d[5]
}

// shift copies src pixels moved by (dx, dy) into dst wherever mask is set.
func shift(dst, src *image.RGBA, mask *image.Alpha, dx, dy int) {
	b := src.Bounds()
	r := mask.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.Pix[mask.PixOffset(x, y)] == 0 {
				continue
			}
			p := image.Pt(x-dx, y-dy)
			if !p.In(b) {
				continue
			}
			dst.SetRGBA(x, y, src.RGBAAt(p.X, p.Y))
		}
	}
}

// triangleMask rasterizes the pixels whose centers lie inside or on the
// triangle. The mask has absolute frame coordinates so it can be used as a
// draw.Options.DstMask with a zero offset.
func triangleMask(v [3]r2.Point, bounds image.Rectangle) *image.Alpha {
	r := boundingRect(v).Intersect(bounds)
	if r.Empty() {
		return nil
	}
	mask := image.NewAlpha(r)
	area := TriangleArea(v[0], v[1], v[2])
	sign := 1.0
	if area < 0 {
		sign = -1
	}
	// edge tolerance keeps shared edges covered by both triangles
	tol := -1e-9 * math.Abs(area)

	filled := false
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := r2.Point{X: float64(x), Y: float64(y)}
			w0 := sign * TriangleArea(v[1], v[2], p)
			w1 := sign * TriangleArea(v[2], v[0], p)
			w2 := sign * TriangleArea(v[0], v[1], p)
			if w0 >= tol && w1 >= tol && w2 >= tol {
				mask.Pix[mask.PixOffset(x, y)] = 0xff
				filled = true
			}
		}
	}
	if !filled {
		return nil
	}
	return mask
}

func boundingRect(v [3]r2.Point) image.Rectangle {
	minX := math.Min(v[0].X, math.Min(v[1].X, v[2].X))
	minY := math.Min(v[0].Y, math.Min(v[1].Y, v[2].Y))
	maxX := math.Max(v[0].X, math.Max(v[1].X, v[2].X))
	maxY := math.Max(v[0].Y, math.Max(v[1].Y, v[2].Y))
	return image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	)
}
