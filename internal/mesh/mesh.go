// Package mesh triangulates landmark clouds and warps images piecewise
// affinely over the triangles.
package mesh

import (
	"math"

	"github.com/fogleman/delaunay"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

var (
	// ErrTooFewPoints is returned when fewer than three points are given.
	ErrTooFewPoints = errors.New("triangulation needs at least 3 points")
	// ErrCollinear is returned when all points lie on one line.
	ErrCollinear = errors.New("triangulation points are collinear")
)

// Triangle is a triple of point indices.
type Triangle [3]int

// TriangleMesh is a triangulation of a landmark cloud. Indices refer to the
// point slice it was built from, so the same mesh can be evaluated on source
// and displaced positions.
type TriangleMesh struct {
	Triangles []Triangle
	Hull      []int
}

// New computes the Delaunay triangulation of points. Coincident points are
// kept in the index space but not triangulated.
func New(points []r2.Point) (*TriangleMesh, error) {
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}
	in := make([]delaunay.Point, len(points))
	for i, p := range points {
		in[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	tr, err := delaunay.Triangulate(in)
	if err != nil || len(tr.Triangles) == 0 {
		return nil, errors.Wrapf(ErrCollinear, "failed to triangulate %d points", len(points))
	}

	m := &TriangleMesh{
		Triangles: make([]Triangle, 0, len(tr.Triangles)/3),
		Hull:      ConvexHull(points),
	}
	for i := 0; i+2 < len(tr.Triangles); i += 3 {
		m.Triangles = append(m.Triangles, Triangle{tr.Triangles[i], tr.Triangles[i+1], tr.Triangles[i+2]})
	}
	return m, nil
}

// Len returns the number of triangles.
func (m *TriangleMesh) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Triangles)
}

// Vertices returns the positions of triangle t in points.
func (t Triangle) Vertices(points []r2.Point) [3]r2.Point {
	return [3]r2.Point{points[t[0]], points[t[1]], points[t[2]]}
}

// Area returns the total unsigned area of the mesh evaluated at points.
func (m *TriangleMesh) Area(points []r2.Point) float64 {
	var sum float64
	for _, t := range m.Triangles {
		v := t.Vertices(points)
		sum += math.Abs(TriangleArea(v[0], v[1], v[2]))
	}
	return sum
}

// TriangleArea returns the signed area of abc.
func TriangleArea(a, b, c r2.Point) float64 {
	return 0.5 * b.Sub(a).Cross(c.Sub(a))
}

// PolygonArea returns the unsigned shoelace area of the polygon through the
// indexed points.
func PolygonArea(points []r2.Point, indices []int) float64 {
	n := len(indices)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := points[indices[i]]
		q := points[indices[(i+1)%n]]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

// HullArea returns the area of the convex hull of points.
func HullArea(points []r2.Point) float64 {
	return PolygonArea(points, ConvexHull(points))
}

// ConvexHull returns the indices of the convex hull by gift wrapping,
// starting at the leftmost point. Collinear points on hull edges are skipped.
func ConvexHull(points []r2.Point) []int {
	n := len(points)
	if n < 3 {
		hull := make([]int, n)
		for i := range hull {
			hull[i] = i
		}
		return hull
	}

	start := 0
	for i := 1; i < n; i++ {
		if points[i].X < points[start].X ||
			(points[i].X == points[start].X && points[i].Y < points[start].Y) {
			start = i
		}
	}

	hull := []int{}
	p := start
	for len(hull) < n {
		hull = append(hull, p)

		q := -1
		for i := 0; i < n; i++ {
			if points[i] == points[p] {
				continue
			}
			if q < 0 {
				q = i
				continue
			}
			switch orientation(points[p], points[i], points[q]) {
			case counterClockwise:
				q = i
			case collinear:
				if squaredDistance(points[p], points[i]) > squaredDistance(points[p], points[q]) {
					q = i
				}
			}
		}

		if q < 0 || points[q] == points[start] {
			break
		}
		p = q
	}
	return hull
}

const (
	collinear = iota
	clockwise
	counterClockwise
)

func squaredDistance(a, b r2.Point) float64 {
	return a.Sub(b).Dot(a.Sub(b))
}

func orientation(p, q, r r2.Point) int {
	val := (q.Y-p.Y)*(r.X-q.X) - (q.X-p.X)*(r.Y-q.Y)

	if math.Abs(val) < 1e-9 {
		return collinear
	}
	if val > 0 {
		return clockwise
	}
	return counterClockwise
}

// RadialPush moves every point closer than radius to anchor away from it by
// (p-anchor)*(1-d/radius)^2*strength. Other points are copied unchanged.
func RadialPush(points []r2.Point, anchor r2.Point, radius, strength float64) []r2.Point {
	out := make([]r2.Point, len(points))
	copy(out, points)
	if radius <= 1e-6 || strength == 0 {
		return out
	}
	for i, p := range points {
		v := p.Sub(anchor)
		dist := v.Norm()
		if dist >= radius {
			continue
		}
		nd := dist / radius
		falloff := (1 - nd) * (1 - nd)
		out[i] = p.Add(v.Mul(falloff * strength))
	}
	return out
}
