package filter

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/dudu/facewarp/internal/extrude"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/landmark/landmarktest"
	"github.com/dudu/facewarp/internal/logging"
)

const (
	width  = 640
	height = 480
)


func frontal() *landmark.Set {
	return landmarktest.Frontal(width, height, 100, 300)
}

func maxDiff(a, b *image.RGBA) int {
	worst := 0
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}

// regionDiff is maxDiff restricted to r.
func regionDiff(a, b *image.RGBA, r image.Rectangle) int {
	worst := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := a.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				d := int(a.Pix[i+c]) - int(b.Pix[i+c])
				if d < 0 {
					d = -d
				}
				worst = max(worst, d)
			}
		}
	}
	return worst
}

type flatSmoother struct {
	calls int
}

func (f *flatSmoother) Smooth(frame *image.RGBA) (*image.RGBA, error) {
	f.calls++
	out := image.NewRGBA(frame.Bounds())
	for i := 0; i < len(out.Pix); i += 4 {
		copy(out.Pix[i:i+4], []uint8{10, 200, 30, 255})
	}
	return out, nil
}

func TestNames(t *testing.T) {
	names := Names()
	test.That(t, len(names), test.ShouldEqual, 9)
	test.That(t, names[0], test.ShouldEqual, AlienName)
	test.That(t, names[len(names)-1], test.ShouldEqual, SquirrelCheeksName)
}

func TestNilLandmarksCopyFrame(t *testing.T) {
	src := landmarktest.Gradient(width, height)
	for _, name := range Names() {
		f, err := New(name, nil, Options{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, f.Name(), test.ShouldEqual, name)

		out := f.Apply(src, nil)
		test.That(t, out.Pix, test.ShouldResemble, src.Pix)
		test.That(t, &out.Pix[0] == &src.Pix[0], test.ShouldBeFalse)
	}
}

func TestZeroStrengthIsIdentity(t *testing.T) {
	src := landmarktest.Gradient(width, height)
	lm := frontal()
	for _, name := range Names() {
		f, err := New(name, map[string]any{"strength": 0}, Options{Clock: clock.NewMock()})
		test.That(t, err, test.ShouldBeNil)
		out := f.Apply(src, lm)
		test.That(t, out.Bounds(), test.ShouldResemble, src.Bounds())
		test.That(t, maxDiff(out, src), test.ShouldEqual, 0)
	}
}

func TestZeroStrengthDisablesSecondaryTerms(t *testing.T) {
	src := landmarktest.Gradient(width, height)
	lm := frontal()

	alien := DefaultAlienParams()
	alien.Strength = 0
	alien.JawStrength = 1
	alien.Overlay = true
	test.That(t, maxDiff(NewAlien(alien, Options{}).Apply(src, lm), src), test.ShouldEqual, 0)

	chin := DefaultSharpChinParams()
	chin.Strength = 0
	chin.Drop = 1
	test.That(t, maxDiff(NewSharpChin(chin, Options{}).Apply(src, lm), src), test.ShouldEqual, 0)

	eyes := DefaultBigEyesParams()
	eyes.Strength = 0
	eyes.SmoothSkin = true
	test.That(t, maxDiff(NewBigEyes(eyes, Options{}).Apply(src, lm), src), test.ShouldEqual, 0)

	// the jaw and chin terms come back with the main strength
	alien.Strength = 0.05
	test.That(t, maxDiff(NewAlien(alien, Options{}).Apply(src, lm), src), test.ShouldBeGreaterThan, 0)
	chin.Strength = 0.05
	test.That(t, maxDiff(NewSharpChin(chin, Options{}).Apply(src, lm), src), test.ShouldBeGreaterThan, 0)
}

func TestDefaultsChangeFrame(t *testing.T) {
	src := landmarktest.Gradient(width, height)
	before := append([]uint8(nil), src.Pix...)
	lm := frontal()
	for _, name := range Names() {
		f, err := New(name, nil, Options{Clock: clock.NewMock()})
		test.That(t, err, test.ShouldBeNil)
		out := f.Apply(src, lm)
		test.That(t, out.Bounds(), test.ShouldResemble, src.Bounds())
		test.That(t, maxDiff(out, src), test.ShouldBeGreaterThan, 0)
		// the input frame is never written
		test.That(t, src.Pix, test.ShouldResemble, before)
	}
}

func TestCollapsedLandmarks(t *testing.T) {
	src := landmarktest.Gradient(width, height)
	lm := landmarktest.Collapsed(width, height, r2.Point{X: 300, Y: 200})
	for _, name := range Names() {
		f, err := New(name, nil, Options{Clock: clock.NewMock()})
		test.That(t, err, test.ShouldBeNil)
		out := f.Apply(src, lm)
		test.That(t, out.Bounds(), test.ShouldResemble, src.Bounds())
		test.That(t, maxDiff(out, src), test.ShouldEqual, 0)
	}
}

func TestShortLandmarkSet(t *testing.T) {
	src := landmarktest.Gradient(64, 48)
	lm := landmark.NewSet(make([]landmark.Point, 10))
	for _, name := range Names() {
		f, err := New(name, nil, Options{})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, f.Apply(src, lm).Pix, test.ShouldResemble, src.Pix)
	}
}

func TestAlienForeheadRow(t *testing.T) {
	p := DefaultAlienParams()
	p.Strength = 0.5
	p.JawStrength = 0
	a := NewAlien(p, Options{})
	a.Apply(landmarktest.Gradient(width, height), frontal())

	// face height 200, so the forehead row samples 100 px further down
	m := a.Warper().Field()
	for _, x := range []int{0, 200, 320, 639} {
		test.That(t, float64(m.Y[100*width+x]), test.ShouldAlmostEqual, 200.0, 1.0)
	}
	test.That(t, m.Y[99*width+320], test.ShouldEqual, float32(99))
	// rows below the band are untouched
	test.That(t, m.Y[180*width+320], test.ShouldEqual, float32(180))
}

func TestAlienOverlay(t *testing.T) {
	src := landmarktest.Gradient(width, height)
	lm := frontal()
	p := DefaultAlienParams()
	p.Overlay = true
	out := NewAlien(p, Options{}).Apply(src, lm)

	// both eye centers are painted near black
	for _, x := range []int{286, 354} {
		c := out.RGBAAt(x, 176)
		test.That(t, int(c.R)+int(c.G)+int(c.B), test.ShouldBeLessThan, 3*60)
	}

	// a cheek between the stretched band and the jaw turns green
	before := src.RGBAAt(260, 215)
	after := out.RGBAAt(260, 215)
	test.That(t, int(before.G)-int(before.R), test.ShouldBeLessThan, 20)
	test.That(t, int(after.G)-int(after.R), test.ShouldBeGreaterThan, 40)

	// below the chin and off to the side nothing moves or changes color
	test.That(t, out.RGBAAt(20, 400), test.ShouldResemble, src.RGBAAt(20, 400))

	p.Overlay = false
	plain := NewAlien(p, Options{}).Apply(src, lm)
	test.That(t, plain.RGBAAt(260, 215), test.ShouldResemble, before)
}

func TestBigEyesSmoothSkin(t *testing.T) {
	src := landmarktest.Checker(width, height, 3)
	lm := frontal()
	plain := NewBigEyes(DefaultBigEyesParams(), Options{}).Apply(src, lm)

	p := DefaultBigEyesParams()
	p.SmoothSkin = true
	smooth := NewBigEyes(p, Options{}).Apply(src, lm)

	// the cheek is inside the oval and outside both lenses
	cheek := image.Rect(255, 218, 266, 229)
	test.That(t, regionDiff(plain, smooth, cheek), test.ShouldBeGreaterThan, 0)
	test.That(t, regionDiff(plain, smooth, image.Rect(0, 0, 100, 100)), test.ShouldEqual, 0)
	test.That(t, regionDiff(plain, smooth, image.Rect(540, 380, 640, 480)), test.ShouldEqual, 0)

	// an injected smoother replaces the gaussian one
	fake := &flatSmoother{}
	out := NewBigEyes(p, Options{Smoother: fake}).Apply(src, lm)
	test.That(t, fake.calls, test.ShouldEqual, 1)
	test.That(t, out.RGBAAt(260, 224), test.ShouldResemble, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	test.That(t, out.RGBAAt(5, 5), test.ShouldResemble, src.RGBAAt(5, 5))
}

func TestSharpChinHalfStrengthTwice(t *testing.T) {
	src := landmarktest.Gradient(width, height)
	lm := frontal()

	full := DefaultSharpChinParams()
	full.Strength = 0.4
	full.Drop = 0
	half := full
	half.Strength = 0.2

	once := NewSharpChin(full, Options{}).Apply(src, lm)
	h := NewSharpChin(half, Options{})
	twice := h.Apply(h.Apply(src, lm), lm)

	test.That(t, maxDiff(once, src), test.ShouldBeGreaterThan, 0)
	test.That(t, maxDiff(once, twice), test.ShouldBeLessThanOrEqualTo, 3)
}

func TestCheeksSmoothing(t *testing.T) {
	s := NewSquirrelCheeks(DefaultSquirrelCheeksParams(), Options{})
	src := landmarktest.Gradient(width, height)

	s.Apply(src, frontal())
	test.That(t, s.left.Initialized(), test.ShouldBeTrue)
	first := s.left.Value()

	// the face moves down by 20 px; the smoothed center moves half way
	moved := landmarktest.Frontal(width, height, 120, 320)
	s.Apply(src, moved)
	second := s.left.Value()
	test.That(t, second[1]-first[1], test.ShouldAlmostEqual, 10.0, 1e-6)

	s.Reset()
	test.That(t, s.left.Initialized(), test.ShouldBeFalse)
	test.That(t, s.right.Initialized(), test.ShouldBeFalse)

	// a new frame size restarts the average
	s.Apply(src, frontal())
	s.Apply(landmarktest.Gradient(320, 240), landmarktest.Frontal(320, 240, 50, 150))
	test.That(t, s.left.Value()[1], test.ShouldAlmostEqual, cheekCenter(
		r2.Point{X: 160 - 0.18*100, Y: 50 + 0.78*100},
		r2.Point{X: 160 - 0.33*100, Y: 50 + 0.80*100},
		r2.Point{X: 160 - 0.40*100, Y: 50 + 0.40*100},
	).Y, 1e-6)
}

func TestPinocchioGrows(t *testing.T) {
	clk := clock.NewMock()
	p := NewPinocchio(DefaultPinocchioParams(), Options{Clock: clk})
	src := landmarktest.Gradient(width, height)
	lm := frontal()

	test.That(t, p.Timer().State(clk.Now()), test.ShouldEqual, extrude.NotStarted)
	short := p.Apply(src, lm)
	test.That(t, p.Timer().State(clk.Now()), test.ShouldEqual, extrude.Growing)

	clk.Add(time.Minute)
	long := p.Apply(src, lm)
	test.That(t, p.Timer().State(clk.Now()), test.ShouldEqual, extrude.Saturated)
	test.That(t, maxDiff(short, long), test.ShouldBeGreaterThan, 0)

	p.Reset()
	test.That(t, p.Timer().State(clk.Now()), test.ShouldEqual, extrude.NotStarted)
	again := p.Apply(src, lm)
	test.That(t, again.Pix, test.ShouldResemble, short.Pix)
}

func TestChain(t *testing.T) {
	chain, err := NewChain([]string{CubeHeadName, PinocchioName}, map[string]map[string]any{
		PinocchioName: {"duration": "10s"},
	}, Options{Clock: clock.NewMock()})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain.Name(), test.ShouldEqual, "cube_head+pinocchio")
	test.That(t, chain[1].(*Pinocchio).params.Duration, test.ShouldEqual, 10*time.Second)

	src := landmarktest.Gradient(width, height)
	lm := frontal()
	out := chain.Apply(src, lm)
	test.That(t, maxDiff(out, src), test.ShouldBeGreaterThan, 0)

	p := chain[1].(*Pinocchio)
	test.That(t, p.Timer().State(time.Time{}), test.ShouldNotEqual, extrude.NotStarted)
	chain.Reset()
	test.That(t, p.Timer().State(time.Time{}), test.ShouldEqual, extrude.NotStarted)

	test.That(t, Chain{}.Apply(src, lm).Pix, test.ShouldResemble, src.Pix)
}

func TestNewErrors(t *testing.T) {
	_, err := New("moustache", nil, Options{})
	test.That(t, errors.Is(err, ErrUnknownFilter), test.ShouldBeTrue)

	_, err = New(BigEyesName, map[string]any{"strength": 1.5}, Options{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid params")

	_, err = New(CubeHeadName, map[string]any{"strenght": 0.5}, Options{})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = New(PinocchioName, map[string]any{"min_length": 300}, Options{})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewChain([]string{AlienName, "nope"}, nil, Options{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeParams(t *testing.T) {
	p := DefaultCubeHeadParams()
	err := DecodeParams(map[string]any{"factor": "0.5", "grid_resolution": 40.0}, &p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Factor, test.ShouldEqual, 0.5)
	test.That(t, p.GridResolution, test.ShouldEqual, 40)
	test.That(t, p.Strength, test.ShouldEqual, 1.0)

	err = DecodeParams(map[string]any{"grid_resolution": 4}, &p)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestActivationLoggedOnce(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	f, err := New(CubeHeadName, nil, Options{Logger: logger})
	test.That(t, err, test.ShouldBeNil)

	src := landmarktest.Gradient(width, height)
	f.Apply(src, nil)
	test.That(t, logs.FilterMessage("filter active").Len(), test.ShouldEqual, 0)

	f.Apply(src, frontal())
	f.Apply(src, frontal())
	test.That(t, logs.FilterMessage("filter active").Len(), test.ShouldEqual, 1)
}
