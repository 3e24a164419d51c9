package kernel

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/faceframe"
)

// EllipseBulge magnifies the inside of an ellipse by inverse mapping:
// src = center + (p-center)/scale, with scale = 1 + Puff*(1-nd^2)^2 where nd
// is the elliptical distance measured along the frame axes. The scale is 1 on
// the boundary, so the warp is continuous there.
type EllipseBulge struct {
	Frame   faceframe.Frame
	RadiusX float64
	RadiusY float64
	Puff    float64
}

// Source returns the sample position for p.
func (k EllipseBulge) Source(p r2.Point) r2.Point {
	return p.Add(k.Offset(p))
}

// Offset implements Kernel.
func (k EllipseBulge) Offset(p r2.Point) r2.Point {
	if k.RadiusX <= eps || k.RadiusY <= eps || k.Puff == 0 {
		return zero
	}
	lx, ly := k.Frame.Local(p)
	nx, ny := lx/k.RadiusX, ly/k.RadiusY
	nd2 := nx*nx + ny*ny
	if nd2 >= 1 {
		return zero
	}
	falloff := (1 - nd2) * (1 - nd2)
	scale := 1 + k.Puff*falloff
	if scale <= eps {
		return zero
	}
	d := p.Sub(k.Frame.Origin)
	return d.Mul(1/scale - 1)
}

// Bounds returns the pixel rectangle that contains the ellipse.
func (k EllipseBulge) Bounds() image.Rectangle {
	o := k.Frame.Origin
	// half extents of a rotated ellipse
	rx := math.Hypot(k.RadiusX*k.Frame.Right.X, k.RadiusY*k.Frame.Up.X)
	ry := math.Hypot(k.RadiusX*k.Frame.Right.Y, k.RadiusY*k.Frame.Up.Y)
	return image.Rect(
		int(math.Floor(o.X-rx)), int(math.Floor(o.Y-ry)),
		int(math.Ceil(o.X+rx))+1, int(math.Ceil(o.Y+ry))+1,
	)
}
