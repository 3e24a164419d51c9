package mesh

import (
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/dudu/facewarp/internal/landmark/landmarktest"
)

func lattice(cols, rows int, step float64, origin r2.Point) []r2.Point {
	pts := make([]r2.Point, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			// a small shear avoids cocircular quads
			pts = append(pts, r2.Point{
				X: origin.X + float64(c)*step + float64(r)*0.01,
				Y: origin.Y + float64(r)*step + float64(c)*0.013,
			})
		}
	}
	return pts
}

func TestTriangulateSquare(t *testing.T) {
	pts := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	m, err := New(pts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Len(), test.ShouldEqual, 2)
	test.That(t, len(m.Hull), test.ShouldEqual, 4)
	test.That(t, m.Area(pts), test.ShouldAlmostEqual, 100.0)
}

func TestTriangulateErrors(t *testing.T) {
	_, err := New([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	test.That(t, err, test.ShouldEqual, ErrTooFewPoints)

	_, err = New([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 5, Y: 5}})
	test.That(t, errors.Is(err, ErrCollinear), test.ShouldBeTrue)

	_, err = New([]r2.Point{{X: 3, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 3}})
	test.That(t, err, test.ShouldNotBeNil)
}

// circumcircle returns the center and squared radius of abc.
func circumcircle(a, b, c r2.Point) (r2.Point, float64) {
	d := b.Sub(a)
	e := c.Sub(a)
	bl := d.Dot(d)
	cl := e.Dot(e)
	k := 0.5 / d.Cross(e)
	center := r2.Point{X: a.X + (e.Y*bl-d.Y*cl)*k, Y: a.Y + (d.X*cl-e.X*bl)*k}
	return center, squaredDistance(center, a)
}

func TestTriangulationIsDelaunay(t *testing.T) {
	pts := landmarktest.Frontal(640, 480, 100, 300).Pixels(640, 480)
	m, err := New(pts)
	test.That(t, err, test.ShouldBeNil)

	// no point lies strictly inside a triangle's circumcircle
	for _, tri := range m.Triangles {
		v := tri.Vertices(pts)
		center, r := circumcircle(v[0], v[1], v[2])
		for _, p := range pts {
			test.That(t, squaredDistance(center, p), test.ShouldBeGreaterThanOrEqualTo, r*(1-1e-9))
		}
	}
}

func TestDuplicatePointsCoverHull(t *testing.T) {
	// integer grids with every point repeated
	var pts []r2.Point
	for y := 0; y < 6; y++ {
		for x := 0; x < 7; x++ {
			p := r2.Point{X: float64(x * 10), Y: float64(y * 10)}
			pts = append(pts, p, p)
		}
	}
	m, err := New(pts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Area(pts), test.ShouldAlmostEqual, 60.0*50.0, 1e-6)
	test.That(t, PolygonArea(pts, m.Hull), test.ShouldAlmostEqual, 60.0*50.0, 1e-6)
}

func TestMeshCoversHull(t *testing.T) {
	pts := landmarktest.Frontal(640, 480, 100, 300).Pixels(640, 480)
	m, err := New(pts)
	test.That(t, err, test.ShouldBeNil)

	hull := HullArea(pts)
	test.That(t, hull, test.ShouldBeGreaterThan, 0)
	test.That(t, m.Area(pts), test.ShouldAlmostEqual, hull, 1e-6*hull)
	test.That(t, PolygonArea(pts, m.Hull), test.ShouldAlmostEqual, hull, 1e-6*hull)
}

func TestPushedMeshCoversHull(t *testing.T) {
	pts := lattice(12, 12, 20, r2.Point{X: 50, Y: 40})
	m, err := New(pts)
	test.That(t, err, test.ShouldBeNil)

	center := r2.Point{X: 160, Y: 150}
	pushed := RadialPush(pts, center, 60, 0.3)
	hull := HullArea(pts)
	test.That(t, HullArea(pushed), test.ShouldAlmostEqual, hull, 1e-9*hull)
	test.That(t, m.Area(pushed), test.ShouldAlmostEqual, hull, 1e-6*hull)
	for _, tri := range m.Triangles {
		v := tri.Vertices(pts)
		w := tri.Vertices(pushed)
		// no triangle folds over
		test.That(t, math.Signbit(TriangleArea(v[0], v[1], v[2])), test.ShouldEqual,
			math.Signbit(TriangleArea(w[0], w[1], w[2])))
	}
}

func TestConvexHull(t *testing.T) {
	pts := []r2.Point{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10},
		{X: 0, Y: 10}, {X: 5, Y: 5}, {X: 0, Y: 0},
	}
	hull := ConvexHull(pts)
	test.That(t, len(hull), test.ShouldEqual, 4)
	test.That(t, PolygonArea(pts, hull), test.ShouldAlmostEqual, 100.0)
	test.That(t, HullArea(pts[:2]), test.ShouldEqual, 0.0)
}

func TestRadialPush(t *testing.T) {
	anchor := r2.Point{X: 100, Y: 100}
	pts := []r2.Point{{X: 100, Y: 100}, {X: 110, Y: 100}, {X: 150, Y: 100}, {X: 100, Y: 300}}
	out := RadialPush(pts, anchor, 50, 1.6)

	test.That(t, out[0], test.ShouldResemble, pts[0])
	// d=10: falloff 0.64, moves 10*0.64*1.6
	test.That(t, out[1].X, test.ShouldAlmostEqual, 110+10*0.64*1.6)
	test.That(t, out[1].Y, test.ShouldAlmostEqual, 100.0)
	test.That(t, out[2], test.ShouldResemble, pts[2])
	test.That(t, out[3], test.ShouldResemble, pts[3])
	// input is not modified
	test.That(t, pts[1].X, test.ShouldEqual, 110.0)

	test.That(t, RadialPush(pts, anchor, 50, 0), test.ShouldResemble, pts)
}

func TestLocalWarpIdentity(t *testing.T) {
	src := landmarktest.Checker(120, 100, 6)
	pts := lattice(5, 5, 20, r2.Point{X: 10, Y: 10})
	m, err := New(pts)
	test.That(t, err, test.ShouldBeNil)

	out := LocalWarp(src, m, pts, pts)
	test.That(t, out.Pix, test.ShouldResemble, src.Pix)
}

func TestLocalWarpTranslatesTriangle(t *testing.T) {
	src := landmarktest.Gradient(100, 100)
	from := []r2.Point{{X: 10, Y: 10}, {X: 60, Y: 10}, {X: 10, Y: 60}}
	to := []r2.Point{{X: 30, Y: 30}, {X: 80, Y: 30}, {X: 30, Y: 80}}
	m := &TriangleMesh{Triangles: []Triangle{{0, 1, 2}}}

	out := LocalWarp(src, m, from, to)

	// inside the destination the content is shifted by (20, 20)
	test.That(t, out.RGBAAt(40, 40), test.ShouldResemble, src.RGBAAt(20, 20))
	test.That(t, out.RGBAAt(35, 50), test.ShouldResemble, src.RGBAAt(15, 30))
	// outside it is untouched
	test.That(t, out.RGBAAt(90, 90), test.ShouldResemble, src.RGBAAt(90, 90))
	test.That(t, out.RGBAAt(5, 5), test.ShouldResemble, src.RGBAAt(5, 5))
}

func TestLocalWarpSkipsDegenerate(t *testing.T) {
	src := landmarktest.Gradient(50, 50)
	from := []r2.Point{{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}}
	to := []r2.Point{{X: 12, Y: 10}, {X: 22, Y: 20}, {X: 32, Y: 30}}
	m := &TriangleMesh{Triangles: []Triangle{{0, 1, 2}}}
	out := LocalWarp(src, m, from, to)
	test.That(t, out.Pix, test.ShouldResemble, src.Pix)

	test.That(t, LocalWarp(src, nil, from, to).Pix, test.ShouldResemble, src.Pix)
}

func TestTriangleMask(t *testing.T) {
	v := [3]r2.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 4}}
	mask := triangleMask(v, image.Rect(0, 0, 10, 10))
	test.That(t, mask.Bounds(), test.ShouldResemble, image.Rect(0, 0, 5, 5))
	test.That(t, mask.AlphaAt(0, 0).A, test.ShouldEqual, uint8(0xff))
	test.That(t, mask.AlphaAt(2, 2).A, test.ShouldEqual, uint8(0xff))
	test.That(t, mask.AlphaAt(3, 3).A, test.ShouldEqual, uint8(0))

	test.That(t, triangleMask(v, image.Rect(20, 20, 30, 30)), test.ShouldBeNil)
}

func TestLocalWarpScalesTriangle(t *testing.T) {
	src := landmarktest.Gradient(200, 200)
	from := []r2.Point{{X: 20, Y: 20}, {X: 60, Y: 20}, {X: 20, Y: 60}}
	to := []r2.Point{{X: 20, Y: 20}, {X: 100, Y: 20}, {X: 20, Y: 100}}
	m := &TriangleMesh{Triangles: []Triangle{{0, 1, 2}}}

	out := LocalWarp(src, m, from, to)

	// destination (60, 40) reads source (40, 30) under a 2x scale about (20, 20)
	got := out.RGBAAt(60, 40)
	want := src.RGBAAt(40, 30)
	test.That(t, math.Abs(float64(got.R)-float64(want.R)), test.ShouldBeLessThanOrEqualTo, 1)
	test.That(t, math.Abs(float64(got.G)-float64(want.G)), test.ShouldBeLessThanOrEqualTo, 1)
	test.That(t, out.RGBAAt(150, 150), test.ShouldResemble, src.RGBAAt(150, 150))
}
