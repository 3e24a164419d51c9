// Package faceframe builds rotation-aware local coordinate systems from
// landmark anchors so warps follow the head.
package faceframe

import (
	"math"

	"github.com/golang/geo/r2"
)

// Epsilon guards divisions by anchor distances.
const Epsilon = 1e-6

// DefaultUp is used when the anchors coincide. Image y grows downward.
var DefaultUp = r2.Point{X: 0, Y: -1}

// Frame is an orthonormal face-local basis anchored at Origin.
// Right is always Up rotated by 90 degrees: (-Up.Y, Up.X).
type Frame struct {
	Origin r2.Point
	Up     r2.Point
	Right  r2.Point
	// Scale is the anchor distance the frame was built from.
	Scale float64
	// Degenerate is set when the anchors were closer than Epsilon.
	Degenerate bool
}

// Build derives a frame whose Up points from downRef to upRef. The origin
// is downRef.
func Build(upRef, downRef r2.Point) Frame {
	v := upRef.Sub(downRef)
	scale := v.Norm()
	f := Frame{Origin: downRef, Scale: scale}
	if scale > Epsilon && finite(scale) {
		f.Up = v.Mul(1 / scale)
	} else {
		f.Up = DefaultUp
		f.Degenerate = true
	}
	f.Right = rotate90(f.Up)
	return f
}

// FromLateral derives a frame whose Right points from left to right. The
// origin is the midpoint and Scale is the lateral distance.
func FromLateral(left, right r2.Point) Frame {
	v := right.Sub(left)
	scale := v.Norm()
	f := Frame{Origin: left.Add(right).Mul(0.5), Scale: scale}
	if scale > Epsilon && finite(scale) {
		r := v.Mul(1 / scale)
		// Right = (-Up.Y, Up.X)  =>  Up = (Right.Y, -Right.X)
		f.Up = r2.Point{X: r.Y, Y: -r.X}
	} else {
		f.Up = DefaultUp
		f.Degenerate = true
	}
	f.Right = rotate90(f.Up)
	return f
}

// At returns a copy of the frame re-anchored at origin.
func (f Frame) At(origin r2.Point) Frame {
	f.Origin = origin
	return f
}

// Local projects p onto the frame axes relative to the origin.
// y is positive toward Up.
func (f Frame) Local(p r2.Point) (x, y float64) {
	d := p.Sub(f.Origin)
	return d.Dot(f.Right), d.Dot(f.Up)
}

// Vector converts a local displacement into image space.
func (f Frame) Vector(x, y float64) r2.Point {
	return f.Right.Mul(x).Add(f.Up.Mul(y))
}

// Global converts local coordinates into an image-space point.
func (f Frame) Global(x, y float64) r2.Point {
	return f.Origin.Add(f.Vector(x, y))
}

func rotate90(p r2.Point) r2.Point {
	return r2.Point{X: -p.Y, Y: p.X}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
