package resample

import (
	"image"
	"image/draw"
)

// Clone returns a byte-identical copy of src.
func Clone(src *image.RGBA) *image.RGBA {
	dst := &image.RGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}

// ToRGBA returns img as *image.RGBA at origin (0,0), copying when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
