package warpgrid

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/dudu/facewarp/internal/faceframe"
	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/landmark/landmarktest"
	"github.com/dudu/facewarp/internal/resample"
)

func TestShape(t *testing.T) {
	cols, rows := Shape(80, 640, 480)
	test.That(t, rows, test.ShouldEqual, 80)
	test.That(t, cols, test.ShouldEqual, 107)

	cols, rows = Shape(60, 480, 640)
	test.That(t, cols, test.ShouldEqual, 60)
	test.That(t, rows, test.ShouldEqual, 80)

	cols, rows = Shape(80, 10, 5)
	test.That(t, cols, test.ShouldEqual, 10)
	test.That(t, rows, test.ShouldEqual, 5)
}

func TestEnsureIsLazy(t *testing.T) {
	g := NewGrid(40)
	test.That(t, g.Ensure(320, 240), test.ShouldBeTrue)
	test.That(t, g.Ensure(320, 240), test.ShouldBeFalse)
	cols, rows := g.Size()
	test.That(t, rows, test.ShouldEqual, 40)
	test.That(t, cols, test.ShouldEqual, 53)

	test.That(t, g.Ensure(240, 320), test.ShouldBeTrue)
	cols, rows = g.Size()
	test.That(t, cols, test.ShouldEqual, 40)
	test.That(t, rows, test.ShouldEqual, 53)

	// corners are aligned with the frame
	test.That(t, g.Node(0, 0), test.ShouldResemble, r2.Point{X: 0, Y: 0})
	last := g.Node(cols-1, rows-1)
	test.That(t, last.X, test.ShouldAlmostEqual, 239.0)
	test.That(t, last.Y, test.ShouldAlmostEqual, 319.0)
}

func TestUpsampleInterpolates(t *testing.T) {
	g := NewGrid(2)
	g.Ensure(5, 5)
	cols, rows := g.Size()
	test.That(t, cols, test.ShouldEqual, 2)
	test.That(t, rows, test.ShouldEqual, 2)

	// a kernel that is linear in x reproduces exactly
	g.Accumulate(kernel.Func(func(p r2.Point) r2.Point {
		return r2.Point{X: p.X / 4, Y: 0}
	}))
	m := &resample.Map{}
	g.Upsample(m)
	test.That(t, m.Rect, test.ShouldResemble, image.Rect(0, 0, 5, 5))
	for x := 0; x < 5; x++ {
		test.That(t, float64(m.X[2*5+x]), test.ShouldAlmostEqual, float64(x)+float64(x)/4, 1e-5)
		test.That(t, m.Y[2*5+x], test.ShouldEqual, float32(2))
	}

	g.Reset()
	test.That(t, g.At(1, 1), test.ShouldResemble, r2.Point{})
}

func TestWarpWithoutKernelsIsIdentity(t *testing.T) {
	src := landmarktest.Gradient(64, 48)
	w := NewWarper(16, resample.Reflect101)
	out := w.Warp(src, nil, nil)
	test.That(t, out.Pix, test.ShouldResemble, src.Pix)
}

func TestWarpDenseElongate(t *testing.T) {
	// 640x480, forehead y=100, chin y=300, strength 0.5
	forehead := r2.Point{X: 320, Y: 100}
	frame := faceframe.Build(forehead, r2.Point{X: 320, Y: 300}).At(forehead)
	k := kernel.Elongate{Frame: frame, Strength: 0.5, Band: 0.35}

	src := landmarktest.Gradient(640, 480)
	w := NewWarper(DefaultResolution, resample.Reflect101)
	w.Warp(src, nil, []kernel.Kernel{k})

	m := w.Field()
	// the forehead row samples 0.5 face heights further down
	expected := 200.0
	for _, x := range []int{0, 160, 320, 639} {
		test.That(t, float64(m.Y[100*640+x]), test.ShouldAlmostEqual, expected, 1.0)
		test.That(t, float64(m.X[100*640+x]), test.ShouldAlmostEqual, float64(x), 1e-4)
	}
	// rows above the forehead are untouched
	test.That(t, m.Y[99*640+320], test.ShouldEqual, float32(99))
}

func TestWarpClampsSamples(t *testing.T) {
	src := landmarktest.Gradient(32, 24)
	w := NewWarper(8, resample.Replicate)
	push := kernel.Func(func(p r2.Point) r2.Point { return r2.Point{X: 1000, Y: -1000} })
	w.Warp(src, []kernel.Kernel{push}, nil)

	m := w.Field()
	for i := range m.X {
		test.That(t, m.X[i], test.ShouldBeBetweenOrEqual, float32(0), float32(31))
		test.That(t, m.Y[i], test.ShouldBeBetweenOrEqual, float32(0), float32(23))
	}
}

func TestWarpRectOnlyTouchesROI(t *testing.T) {
	src := landmarktest.Checker(64, 64, 4)
	w := NewWarper(8, resample.Reflect101)
	center := r2.Point{X: 32, Y: 32}
	k := kernel.EllipseBulge{
		Frame:   faceframe.Build(center.Add(r2.Point{Y: -1}), center),
		RadiusX: 10, RadiusY: 12, Puff: 0.8,
	}
	out := w.WarpRect(src, k.Bounds(), k)

	test.That(t, out.RGBAAt(2, 2), test.ShouldResemble, src.RGBAAt(2, 2))
	test.That(t, out.RGBAAt(60, 5), test.ShouldResemble, src.RGBAAt(60, 5))
	diff := 0
	for i := range out.Pix {
		if out.Pix[i] != src.Pix[i] {
			diff++
		}
	}
	test.That(t, diff, test.ShouldBeGreaterThan, 0)

	// a rectangle fully outside the frame copies the frame
	same := w.WarpRect(src, image.Rect(100, 100, 120, 120), k)
	test.That(t, same.Pix, test.ShouldResemble, src.Pix)
}
