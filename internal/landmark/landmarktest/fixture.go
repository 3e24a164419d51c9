// Package landmarktest provides synthetic faces and images for tests.
package landmarktest

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/landmark"
)

// Face places the anchor landmarks of an upright frontal face. All values are
// in pixels; ForeheadY and ChinY define the face height.
type Face struct {
	Width, Height int
	CenterX       float64
	ForeheadY     float64
	ChinY         float64
}

// Frontal returns a symmetric upright face centered horizontally.
func Frontal(width, height int, foreheadY, chinY float64) *landmark.Set {
	return Face{
		Width:     width,
		Height:    height,
		CenterX:   float64(width) / 2,
		ForeheadY: foreheadY,
		ChinY:     chinY,
	}.Set()
}

// Pixels returns the pixel positions of every mesh point.
func (f Face) Pixels() []r2.Point {
	h := f.ChinY - f.ForeheadY
	cx := f.CenterX
	at := func(dx, dy float64) r2.Point {
		return r2.Point{X: cx + dx*h, Y: f.ForeheadY + dy*h}
	}

	pts := make([]r2.Point, landmark.MeshSize)

	// Filler points on a sunflower spiral inside the face ellipse.
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range pts {
		r := math.Sqrt((float64(i) + 0.5) / float64(len(pts)))
		theta := float64(i) * golden
		pts[i] = at(0.42*r*math.Cos(theta), 0.5+0.5*r*math.Sin(theta))
	}

	// Contours are ellipses starting at their first index, so named corners
	// placed below stay on them.
	ring := func(r landmark.Region, center r2.Point, rx, ry, start float64) {
		idx := landmark.Indices(r)
		for k, i := range idx {
			theta := start + 2*math.Pi*float64(k)/float64(len(idx))
			pts[i] = at(center.X+rx*math.Cos(theta), center.Y+ry*math.Sin(theta))
		}
	}
	ring(landmark.FaceOval, r2.Point{X: 0, Y: 0.5}, 0.42, 0.5, -math.Pi/2)
	ring(landmark.LeftEyeContour, r2.Point{X: -0.17, Y: 0.38}, 0.07, 0.03, math.Pi)
	ring(landmark.RightEyeContour, r2.Point{X: 0.17, Y: 0.38}, 0.07, 0.03, 0)
	ring(landmark.LipsContour, r2.Point{X: 0, Y: 0.78}, 0.18, 0.05, math.Pi)

	set := func(r landmark.Region, p r2.Point) {
		pts[landmark.Index(r)] = p
	}
	set(landmark.Forehead, at(0, 0))
	set(landmark.Chin, at(0, 1))
	set(landmark.NoseBridge, at(0, 0.33))
	set(landmark.NoseTip, at(0, 0.55))
	set(landmark.NoseBottom, at(0, 0.58))
	set(landmark.LeftEyeOuter, at(-0.24, 0.38))
	set(landmark.RightEyeOuter, at(0.24, 0.38))
	set(landmark.LeftIris, at(-0.17, 0.38))
	set(landmark.RightIris, at(0.17, 0.38))
	set(landmark.LeftTemple, at(-0.42, 0.45))
	set(landmark.RightTemple, at(0.42, 0.45))
	set(landmark.LeftCheekbone, at(-0.40, 0.40))
	set(landmark.RightCheekbone, at(0.40, 0.40))
	set(landmark.LeftJaw, at(-0.33, 0.80))
	set(landmark.RightJaw, at(0.33, 0.80))
	set(landmark.LeftMouth, at(-0.18, 0.78))
	set(landmark.RightMouth, at(0.18, 0.78))
	set(landmark.UpperLip, at(0, 0.76))
	set(landmark.LowerLip, at(0, 0.80))
	return pts
}

// Set returns the face as a normalized landmark set.
func (f Face) Set() *landmark.Set {
	return FromPixels(f.Pixels(), f.Width, f.Height)
}

// FromPixels normalizes pixel positions into a set.
func FromPixels(pts []r2.Point, width, height int) *landmark.Set {
	out := make([]landmark.Point, len(pts))
	for i, p := range pts {
		out[i] = landmark.Point{X: p.X / float64(width), Y: p.Y / float64(height)}
	}
	return landmark.NewSet(out)
}

// Collapsed returns a set whose points all sit at one pixel.
func Collapsed(width, height int, at r2.Point) *landmark.Set {
	pts := make([]r2.Point, landmark.MeshSize)
	for i := range pts {
		pts[i] = at
	}
	return FromPixels(pts, width, height)
}

// Gradient returns an image whose red channel ramps along x, green along y and
// blue along x+y. Bilinear resampling of it is exact up to rounding.
func Gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: uint8((x + y) * 255 / max(width+height-2, 1)),
				A: 255,
			})
		}
	}
	return img
}

// Checker returns a high-contrast checkerboard with square cells of size cell.
func Checker(width, height, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(40)
			if (x/cell+y/cell)%2 == 0 {
				v = 220
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	return img
}
