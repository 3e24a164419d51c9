package extrude

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"golang.org/x/image/draw"
)

// DefaultColor is used for the tip when no skin could be sampled.
var DefaultColor = color.RGBA{R: 180, G: 140, B: 120, A: 255}

// Texture is a disk-masked skin patch. The patch alpha holds the mask.
type Texture struct {
	Patch *image.NRGBA
	Color color.RGBA
}

// Extruder stamps a tapered trail of texture copies.
type Extruder struct {
	Segments     int
	DefaultColor color.RGBA
}

// NewExtruder returns an extruder with the given number of segments.
func NewExtruder(segments int) *Extruder {
	return &Extruder{Segments: segments, DefaultColor: DefaultColor}
}

// Sample cuts a disk of radius around center out of img. The patch is clipped
// to the frame and the disk is centered at (radius, radius) of the unclipped
// square, so clipped patches keep the frame-relative mask. The color is the
// mean of the masked pixels. It returns nil when nothing could be sampled.
func (e *Extruder) Sample(img *image.RGBA, center image.Point, radius int) *Texture {
	if radius <= 0 {
		return nil
	}
	b := img.Bounds()
	square := image.Rect(center.X-radius, center.Y-radius, center.X+radius, center.Y+radius)
	roi := square.Intersect(b)
	if roi.Empty() {
		return nil
	}

	dc := gg.NewContext(roi.Dx(), roi.Dy())
	dc.DrawCircle(float64(square.Min.X-roi.Min.X+radius), float64(square.Min.Y-roi.Min.Y+radius), float64(radius))
	dc.SetRGB(1, 1, 1)
	dc.Fill()
	mask, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil
	}

	patch := image.NewNRGBA(image.Rect(0, 0, roi.Dx(), roi.Dy()))
	var sumR, sumG, sumB, weight float64
	for y := 0; y < roi.Dy(); y++ {
		for x := 0; x < roi.Dx(); x++ {
			a := mask.Pix[mask.PixOffset(x, y)+3]
			if a == 0 {
				continue
			}
			c := img.RGBAAt(roi.Min.X+x, roi.Min.Y+y)
			patch.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: a})
			w := float64(a) / 255
			sumR += float64(c.R) * w
			sumG += float64(c.G) * w
			sumB += float64(c.B) * w
			weight += w
		}
	}

	col := e.DefaultColor
	if weight > 0 {
		col = color.RGBA{
			R: uint8(math.Round(sumR / weight)),
			G: uint8(math.Round(sumG / weight)),
			B: uint8(math.Round(sumB / weight)),
			A: 255,
		}
	}
	return &Texture{Patch: patch, Color: col}
}

// Stamp draws Segments copies of tex along the ray from anchor toward target,
// length pixels long, tapering from base to tip width, then a tip disk of
// radius tip in the texture color. Copies that would leave the frame and
// copies narrower than 2 pixels are skipped. dst is modified in place.
func (e *Extruder) Stamp(dst *image.RGBA, tex *Texture, anchor, target r2.Point, length float64, base, tip int) {
	if tex == nil || tex.Patch == nil || e.Segments <= 0 {
		return
	}
	dir := target.Sub(anchor)
	mag := dir.Norm()
	if mag < 1e-9 || math.IsNaN(mag) || math.IsInf(mag, 0) {
		return
	}
	dir = dir.Mul(1 / mag)

	b := dst.Bounds()
	for i := 0; i < e.Segments; i++ {
		t := float64(i) / float64(e.Segments)
		pos := anchor.Add(dir.Mul(length * t))
		width := int(float64(base)*(1-t) + float64(tip)*t)
		if width < 2 {
			continue
		}

		size := width * 2
		x1 := int(pos.X) - size/2
		y1 := int(pos.Y) - size/2
		r := image.Rect(x1, y1, x1+size, y1+size)
		if r.Min.X < b.Min.X || r.Min.Y < b.Min.Y || r.Max.X >= b.Max.X || r.Max.Y >= b.Max.Y {
			continue
		}
		resized := imaging.Resize(tex.Patch, size, size, imaging.Linear)
		draw.Draw(dst, r, resized, image.Point{}, draw.Over)
	}

	end := anchor.Add(dir.Mul(length))
	tx, ty := int(end.X), int(end.Y)
	if tx < b.Min.X || ty < b.Min.Y || tx >= b.Max.X || ty >= b.Max.Y || tip <= 0 {
		return
	}
	dc := gg.NewContextForRGBA(dst)
	dc.DrawCircle(float64(tx)+0.5, float64(ty)+0.5, float64(tip))
	dc.SetColor(tex.Color)
	dc.Fill()
}
