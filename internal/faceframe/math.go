package faceframe

import (
	"math"

	"github.com/golang/geo/r2"
)

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Smoothstep is the cubic Hermite ramp on [0,1]; input is clamped first.
func Smoothstep(v float64) float64 {
	v = Clamp(v, 0, 1)
	return v * v * (3 - 2*v)
}

// Finite reports whether both coordinates are real numbers.
func Finite(p r2.Point) bool {
	return finite(p.X) && finite(p.Y)
}

// Distance returns |a-b|.
func Distance(a, b r2.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
