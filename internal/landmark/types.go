// Package landmark holds the face mesh points consumed by the warp filters
// and the sources that produce them.
package landmark

import (
	"github.com/golang/geo/r2"
)

// MeshSize is the number of points in a refined face mesh (468 + 10 iris).
const MeshSize = 478

// Point is a normalized landmark coordinate. X and Y are in [0,1] relative to
// frame width and height; Z is relative depth scaled like X.
type Point struct {
	X, Y, Z float64
}

// Set is one detected face. It is immutable once created.
type Set struct {
	points []Point
}

// NewSet copies points into a new Set.
func NewSet(points []Point) *Set {
	cp := make([]Point, len(points))
	copy(cp, points)
	return &Set{points: cp}
}

// Len returns the number of points
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// At returns the normalized point at index i.
func (s *Set) At(i int) Point {
	return s.points[i]
}

// Covers reports whether every index is present in the set.
func (s *Set) Covers(indices ...int) bool {
	n := s.Len()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return false
		}
	}
	return true
}

// Pixel denormalizes point i into frame pixel space.
func (s *Set) Pixel(i, width, height int) r2.Point {
	p := s.points[i]
	return r2.Point{X: p.X * float64(width), Y: p.Y * float64(height)}
}

// Pixels denormalizes all points.
func (s *Set) Pixels(width, height int) []r2.Point {
	out := make([]r2.Point, len(s.points))
	for i, p := range s.points {
		out[i] = r2.Point{X: p.X * float64(width), Y: p.Y * float64(height)}
	}
	return out
}

// Mean returns the pixel-space centroid of the given indices.
func (s *Set) Mean(width, height int, indices ...int) r2.Point {
	var sum r2.Point
	if len(indices) == 0 {
		return sum
	}
	for _, idx := range indices {
		sum = sum.Add(s.Pixel(idx, width, height))
	}
	return sum.Mul(1 / float64(len(indices)))
}

// Points returns a copy of the normalized points.
func (s *Set) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}
