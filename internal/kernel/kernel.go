// Package kernel contains the displacement kernels behind the face warps.
//
// A kernel maps an image position to a sample offset: the warped pixel at p
// is read from p + Offset(p). Kernels are plain values built per frame from
// landmark anchors and hold no state between frames. Every kernel returns a
// zero offset outside its support.
package kernel

import (
	"math"

	"github.com/golang/geo/r2"
)

// Kernel maps an image position to a sample offset in pixels.
type Kernel interface {
	Offset(p r2.Point) r2.Point
}

// Func adapts a function to Kernel.
type Func func(p r2.Point) r2.Point

// Offset implements Kernel.
func (f Func) Offset(p r2.Point) r2.Point {
	return f(p)
}

const eps = 1e-6

var zero r2.Point

func pow(base, exp float64) float64 {
	if exp == 2 {
		return base * base
	}
	return math.Pow(base, exp)
}
