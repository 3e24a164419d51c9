package pipeline

import (
	"context"
	"image"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/dudu/facewarp/internal/filter"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/landmark/landmarktest"
	"github.com/dudu/facewarp/internal/logging"
)

const (
	width  = 320
	height = 240
)

// slowSource advances the clock on every detection.
type slowSource struct {
	landmark.Source
	clk *clock.Mock
	d   time.Duration
	err error
}

func (s *slowSource) Detect(img image.Image) (*landmark.Set, error) {
	s.clk.Add(s.d)
	if s.err != nil {
		return nil, s.err
	}
	return s.Source.Detect(img)
}

type sliceFrames struct {
	frames []*image.RGBA
}

func (f *sliceFrames) Next() (*image.RGBA, error) {
	if len(f.frames) == 0 {
		return nil, io.EOF
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, nil
}

func (f *sliceFrames) Close() error { return nil }

type scriptedDisplay struct {
	keys     []int
	shown    int
	overlays [][]string
}

func (d *scriptedDisplay) Show(_ *image.RGBA, overlay []string) {
	d.shown++
	d.overlays = append(d.overlays, overlay)
}

func (d *scriptedDisplay) WaitKey(int) int {
	if len(d.keys) == 0 {
		return -1
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k
}

func (d *scriptedDisplay) Close() error { return nil }

func newTestPipeline(t *testing.T, names ...string) (*Pipeline, *clock.Mock, *slowSource) {
	t.Helper()
	clk := clock.NewMock()
	chain, err := filter.NewChain(names, nil, filter.Options{Clock: clk})
	test.That(t, err, test.ShouldBeNil)
	src := &slowSource{
		Source: landmark.NewReplay([]*landmark.Set{landmarktest.Frontal(width, height, 50, 150)}),
		clk:    clk,
		d:      4 * time.Millisecond,
	}
	p, err := New(src, chain, Options{Clock: clk})
	test.That(t, err, test.ShouldBeNil)
	return p, clk, src
}

func frames(n int) *sliceFrames {
	f := &sliceFrames{}
	for i := 0; i < n; i++ {
		f.frames = append(f.frames, landmarktest.Gradient(width, height))
	}
	return f
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, []filter.WarpFilter{filter.Chain{}}, Options{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(landmark.NewReplay(nil), nil, Options{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestProcess(t *testing.T) {
	p, _, _ := newTestPipeline(t, filter.CubeHeadName)
	src := landmarktest.Gradient(width, height)

	out, err := p.Process(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds(), test.ShouldResemble, src.Bounds())
	test.That(t, out.Pix, test.ShouldNotResemble, src.Pix)

	timing := p.LastTiming()
	test.That(t, timing.Detection, test.ShouldEqual, 4*time.Millisecond)
	test.That(t, timing.Total, test.ShouldEqual, 4*time.Millisecond)

	overlay := p.Overlay()
	test.That(t, overlay[0], test.ShouldEqual, "Filter: cube_head")
	test.That(t, overlay[1], test.ShouldContainSubstring, "D:4ms")
	test.That(t, overlay[1], test.ShouldContainSubstring, "(250.0 FPS)")
}

func TestProcessDetectionError(t *testing.T) {
	p, _, src := newTestPipeline(t, filter.CubeHeadName)
	src.err = errors.New("camera unplugged")
	frame := landmarktest.Gradient(width, height)

	out, err := p.Process(frame)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "camera unplugged")
	test.That(t, out.Pix, test.ShouldResemble, frame.Pix)
}

func TestNextAndReset(t *testing.T) {
	p, clk, _ := newTestPipeline(t, filter.PinocchioName, filter.AlienName)
	test.That(t, p.Filter().Name(), test.ShouldEqual, filter.PinocchioName)

	_, err := p.Process(landmarktest.Gradient(width, height))
	test.That(t, err, test.ShouldBeNil)
	nose := p.Filter().(*filter.Pinocchio)
	clk.Add(10 * time.Second)
	test.That(t, nose.Timer().Elapsed(clk.Now()), test.ShouldBeGreaterThan, 0)

	test.That(t, p.Next(), test.ShouldEqual, filter.AlienName)
	test.That(t, p.Next(), test.ShouldEqual, filter.PinocchioName)
	// switching back restarts the growth
	test.That(t, nose.Timer().Elapsed(clk.Now()), test.ShouldEqual, time.Duration(0))
}

func TestRunHeadless(t *testing.T) {
	p, _, _ := newTestPipeline(t, filter.AlienName)
	err := p.Run(context.Background(), frames(5), nil)
	test.That(t, err, test.ShouldBeNil)

	s := p.Summary()
	test.That(t, s.Frames, test.ShouldEqual, 5)
	test.That(t, s.Detection.Mean, test.ShouldEqual, 4*time.Millisecond)
}

func TestRunKeys(t *testing.T) {
	p, _, _ := newTestPipeline(t, filter.AlienName, filter.BigEyesName)
	display := &scriptedDisplay{keys: []int{-1, KeyNext, KeyReset, KeyQuit, -1}}

	err := p.Run(context.Background(), frames(10), display)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, display.shown, test.ShouldEqual, 4)
	test.That(t, p.Filter().Name(), test.ShouldEqual, filter.BigEyesName)
	test.That(t, display.overlays[0][0], test.ShouldEqual, "Filter: alien")
	test.That(t, display.overlays[2][0], test.ShouldEqual, "Filter: big_eyes")
}

func TestRunCancelled(t *testing.T) {
	p, _, _ := newTestPipeline(t, filter.AlienName)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Run(ctx, frames(3), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Summary().Frames, test.ShouldEqual, 0)
}

func TestRunLogsFrameErrors(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	clk := clock.NewMock()
	src := &slowSource{clk: clk, err: errors.New("no model")}
	p, err := New(src, []filter.WarpFilter{filter.Chain{}}, Options{Clock: clk, Logger: logger})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.Run(context.Background(), frames(3), nil), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("frame not warped").Len(), test.ShouldEqual, 3)
	test.That(t, p.Summary().Frames, test.ShouldEqual, 3)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(100)
	test.That(t, r.Summary(), test.ShouldResemble, Summary{})

	for i := 1; i <= 200; i++ {
		// the first hundred are pushed out of the window
		d := time.Hour
		if i > 100 {
			d = time.Duration(i-100) * time.Millisecond
		}
		r.Add(Timing{Detection: d, Total: d})
	}

	s := r.Summary()
	test.That(t, s.Frames, test.ShouldEqual, 200)
	test.That(t, ms(s.Total.Mean), test.ShouldAlmostEqual, 50.5, 1e-9)
	test.That(t, ms(s.Total.P50), test.ShouldAlmostEqual, 50.5, 1e-9)
	test.That(t, ms(s.Total.P95), test.ShouldBeBetweenOrEqual, 94.0, 97.0)
	test.That(t, s.Filter.Mean, test.ShouldEqual, time.Duration(0))
	test.That(t, s.Total.String(), test.ShouldStartWith, "mean 50.5ms")
}
