package kernel

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/dudu/facewarp/internal/faceframe"
)

var (
	forehead = r2.Point{X: 320, Y: 100}
	chin     = r2.Point{X: 320, Y: 300}
	upright  = faceframe.Build(forehead, chin)
)

func ring(center r2.Point, radius float64, n int) []r2.Point {
	pts := make([]r2.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r2.Point{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
	}
	return pts
}

func TestElongateForeheadRow(t *testing.T) {
	k := Elongate{Frame: upright.At(forehead), Strength: 0.5, Band: 0.35}

	// t = 0 at the forehead row: pull = -200*0.5*(1-0)
	off := k.Offset(r2.Point{X: 320, Y: 100})
	test.That(t, off.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, off.Y, test.ShouldAlmostEqual, 100.0)

	// halfway down the band: t=0.5, weight=0.75
	off = k.Offset(r2.Point{X: 100, Y: 135})
	test.That(t, off.Y, test.ShouldAlmostEqual, 200*0.5*0.25)

	// above the forehead and below the band: untouched
	test.That(t, k.Offset(r2.Point{X: 320, Y: 99}), test.ShouldResemble, r2.Point{})
	test.That(t, k.Offset(r2.Point{X: 320, Y: 170}), test.ShouldResemble, r2.Point{})

	k.Strength = 0
	test.That(t, k.Offset(r2.Point{X: 320, Y: 120}), test.ShouldResemble, r2.Point{})
}

func TestJawTaper(t *testing.T) {
	k := JawTaper{
		Frame: upright.At(forehead), FaceWidth: 160,
		Strength: 0.25, Start: 0.6, Exponent: 1.5, Spread: 0.8,
	}
	// above the zone
	test.That(t, k.Offset(r2.Point{X: 400, Y: 200}), test.ShouldResemble, r2.Point{})
	// at the chin row the zone has ended
	test.That(t, k.Offset(r2.Point{X: 400, Y: 300}), test.ShouldResemble, r2.Point{})

	right := k.Offset(r2.Point{X: 400, Y: 280})
	left := k.Offset(r2.Point{X: 240, Y: 280})
	test.That(t, right.X, test.ShouldBeLessThan, 0)
	test.That(t, left.X, test.ShouldAlmostEqual, -right.X)
	test.That(t, right.Y, test.ShouldAlmostEqual, 0.0)

	center := k.Offset(r2.Point{X: 320, Y: 280})
	test.That(t, center.Norm(), test.ShouldAlmostEqual, 0.0)
}

func TestRadialZeroAtAndBeyondRadius(t *testing.T) {
	anchor := r2.Point{X: 300, Y: 250}
	k := RadialPinchOrBulge{
		Frame: upright.At(anchor), Radius: 80,
		StrengthX: 3.5, StrengthY: 1, Lift: 24,
	}
	for _, r := range []float64{80.5, 81, 120, 500} {
		for _, p := range ring(anchor, r, 36) {
			test.That(t, Magnitude(k, p), test.ShouldEqual, 0.0)
		}
	}
	// magnitude shrinks toward the boundary
	prev := math.Inf(1)
	for _, r := range []float64{40, 55, 70, 79.9} {
		m := Magnitude(k, r2.Point{X: anchor.X + r, Y: anchor.Y})
		test.That(t, m, test.ShouldBeLessThanOrEqualTo, prev)
		prev = m
	}
	test.That(t, prev, test.ShouldBeLessThan, 1e-3)
}

func TestRadialPinchAndBulge(t *testing.T) {
	anchor := r2.Point{X: 300, Y: 250}
	pinch := RadialPinchOrBulge{Frame: upright.At(anchor), Radius: 100, StrengthX: 0.5, StrengthY: 0.5}
	p := r2.Point{X: 330, Y: 250}
	off := pinch.Offset(p)
	test.That(t, off.X, test.ShouldBeGreaterThan, 0)

	bulge := pinch
	bulge.Invert = true
	test.That(t, bulge.Offset(p).X, test.ShouldAlmostEqual, -off.X)

	// lift moves samples along Up, which is -y for an upright face
	lift := RadialPinchOrBulge{Frame: upright.At(anchor), Radius: 100, StrengthX: 2, Lift: 5}
	test.That(t, lift.Offset(anchor).Y, test.ShouldAlmostEqual, -10.0)

	zero := RadialPinchOrBulge{Frame: upright.At(anchor), Radius: 100}
	test.That(t, zero.Offset(p).Norm(), test.ShouldEqual, 0.0)
}

func TestRadialLiftScalesWithStrength(t *testing.T) {
	anchor := r2.Point{X: 300, Y: 250}
	k := RadialPinchOrBulge{Frame: upright.At(anchor), Radius: 100, Lift: 24}
	for _, p := range append(ring(anchor, 30, 12), anchor) {
		test.That(t, k.Offset(p).Norm(), test.ShouldEqual, 0.0)
	}

	k.StrengthX = 0.5
	half := k.Offset(anchor).Y
	k.StrengthX = 1
	test.That(t, k.Offset(anchor).Y, test.ShouldAlmostEqual, 2*half)
	test.That(t, half, test.ShouldAlmostEqual, -12.0)

	// the larger axis sets the lift
	k.StrengthX = -0.25
	k.StrengthY = 0.5
	test.That(t, k.Offset(anchor).Y, test.ShouldAlmostEqual, half)
}

func TestRadialFollowsRotation(t *testing.T) {
	anchor := r2.Point{X: 200, Y: 200}
	tilted := faceframe.Build(r2.Point{X: 300, Y: 200}, anchor)
	a := RadialPinchOrBulge{Frame: upright.At(anchor), Radius: 100, StrengthX: 1, StrengthY: 0.2}
	b := RadialPinchOrBulge{Frame: tilted, Radius: 100, StrengthX: 1, StrengthY: 0.2}

	// a point 30px along local +x in each frame
	pa := upright.At(anchor).Global(30, 10)
	pb := tilted.Global(30, 10)
	oa := a.Offset(pa)
	ob := b.Offset(pb)
	test.That(t, oa.Norm(), test.ShouldAlmostEqual, ob.Norm())

	ax, ay := upright.At(anchor).Local(pa.Add(oa))
	bx, by := tilted.Local(pb.Add(ob))
	test.That(t, ax, test.ShouldAlmostEqual, bx)
	test.That(t, ay, test.ShouldAlmostEqual, by)
}

func TestSquareMap(t *testing.T) {
	center := r2.Point{X: 320, Y: 200}
	k := SquareMap{Frame: upright.At(center), Radius: 100, Factor: 0.85, Strength: 1}

	// on an axis the square and circle radii agree
	test.That(t, k.Offset(r2.Point{X: 420, Y: 200}).Norm(), test.ShouldAlmostEqual, 0.0)

	// on the diagonal the sample moves toward the center
	d := 100 / math.Sqrt2
	p := r2.Point{X: center.X + d, Y: center.Y - d}
	off := k.Offset(p)
	test.That(t, off.X, test.ShouldBeLessThan, 0)
	test.That(t, off.Y, test.ShouldBeGreaterThan, 0)

	// inner core and beyond the reach are untouched
	test.That(t, k.Offset(r2.Point{X: center.X + 20, Y: center.Y + 20}).Norm(), test.ShouldEqual, 0.0)
	for _, q := range ring(center, 151, 24) {
		test.That(t, Magnitude(k, q), test.ShouldEqual, 0.0)
	}
	test.That(t, k.Offset(center).Norm(), test.ShouldEqual, 0.0)

	k.Strength = 0
	test.That(t, k.Offset(p).Norm(), test.ShouldEqual, 0.0)
}

func TestAnisotropicTaperAntiClone(t *testing.T) {
	bridge := r2.Point{X: 320, Y: 200}
	frame := faceframe.Build(r2.Point{X: 320, Y: 120}, bridge)
	k := AnisotropicTaper{
		Frame: frame, RadiusScale: 3.5, Strength: 1.2,
		ScaleX: 0.5, ScaleY: 2.5, Threshold: 0.7, Ramp: 0.5, Limit: 0.48, MinWeight: 0.01,
	}
	size := frame.Scale

	// below the threshold the brows are untouched
	test.That(t, k.Offset(r2.Point{X: 320, Y: 160}).Norm(), test.ShouldEqual, 0.0)
	test.That(t, k.Offset(r2.Point{X: 320, Y: 260}).Norm(), test.ShouldEqual, 0.0)

	pulled := false
	for y := 0.0; y < 200; y += 4 {
		for x := 120.0; x <= 520; x += 8 {
			p := r2.Point{X: x, Y: y}
			off := k.Offset(p)
			if off.Norm() == 0 {
				continue
			}
			pulled = true
			_, srcY := frame.Local(p.Add(off))
			test.That(t, srcY, test.ShouldBeGreaterThanOrEqualTo, 0.48*size-1e-9)
		}
	}
	test.That(t, pulled, test.ShouldBeTrue)

	for _, q := range ring(bridge, 3.5*size+1, 36) {
		test.That(t, Magnitude(k, q), test.ShouldEqual, 0.0)
	}

	k.Strength = 0
	test.That(t, k.Offset(r2.Point{X: 320, Y: 40}).Norm(), test.ShouldEqual, 0.0)
}

func TestEllipseBulge(t *testing.T) {
	center := r2.Point{X: 200, Y: 200}
	k := EllipseBulge{Frame: upright.At(center), RadiusX: 40, RadiusY: 60, Puff: 0.65}

	test.That(t, k.Offset(center).Norm(), test.ShouldEqual, 0.0)

	p := r2.Point{X: 220, Y: 200}
	src := k.Source(p)
	test.That(t, src.X, test.ShouldBeLessThan, 220)
	test.That(t, src.X, test.ShouldBeGreaterThan, 200)
	test.That(t, src.Y, test.ShouldAlmostEqual, 200.0)

	// outside the ellipse but inside its circumscribed circle
	test.That(t, k.Offset(r2.Point{X: 241, Y: 200}).Norm(), test.ShouldEqual, 0.0)
	test.That(t, k.Offset(r2.Point{X: 200, Y: 259}).Norm(), test.ShouldBeGreaterThan, 0)

	b := k.Bounds()
	test.That(t, b.Min.X, test.ShouldBeLessThanOrEqualTo, 160)
	test.That(t, b.Max.X, test.ShouldBeGreaterThanOrEqualTo, 240)
	test.That(t, b.Min.Y, test.ShouldBeLessThanOrEqualTo, 140)
	test.That(t, b.Max.Y, test.ShouldBeGreaterThanOrEqualTo, 260)
	test.That(t, b.Dx(), test.ShouldBeLessThan, 90)

	k.Puff = 0
	test.That(t, k.Offset(p).Norm(), test.ShouldEqual, 0.0)
}

func TestSmileSymmetry(t *testing.T) {
	mid := r2.Point{X: 320, Y: 360}
	frame := faceframe.FromLateral(r2.Point{X: 260, Y: 240}, r2.Point{X: 380, Y: 240}).At(mid)
	k := Smile{Frame: frame, Radius: 70, Strength: 1, ArcPower: 2.7, Stretch: 0.72, Lift: 0.85, Sigma: 0.8}

	r := k.Offset(r2.Point{X: 355, Y: 360})
	l := k.Offset(r2.Point{X: 285, Y: 360})
	test.That(t, r.Y, test.ShouldBeGreaterThan, 0)
	test.That(t, r.X, test.ShouldBeLessThan, 0)
	test.That(t, l.X, test.ShouldAlmostEqual, -r.X)
	test.That(t, l.Y, test.ShouldAlmostEqual, r.Y)

	// centre line and boundary are fixed
	test.That(t, k.Offset(r2.Point{X: 320, Y: 380}).Norm(), test.ShouldAlmostEqual, 0.0)
	for _, q := range ring(mid, 70.5, 36) {
		test.That(t, Magnitude(k, q), test.ShouldEqual, 0.0)
	}
	near := k.Offset(r2.Point{X: 389.9, Y: 360})
	test.That(t, near.Norm(), test.ShouldBeLessThan, 0.2)
}
