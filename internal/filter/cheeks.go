package filter

import (
	"image"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/faceframe"
	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
	"github.com/dudu/facewarp/internal/smoothing"
	"github.com/dudu/facewarp/internal/warpgrid"
)

// SquirrelCheeksParams tunes the cheek puff.
type SquirrelCheeksParams struct {
	Puff float64 `mapstructure:"strength" validate:"gte=0,lte=3"`
	// RadiusScale multiplies the base radius of 0.35 jaw widths.
	RadiusScale float64 `mapstructure:"radius_scale" validate:"gt=0,lte=3"`
	// Aspect is the vertical to horizontal radius ratio.
	Aspect float64 `mapstructure:"aspect" validate:"gt=0,lte=4"`
	// SmoothingAlpha is the weight of the previous frame's ellipse.
	SmoothingAlpha float64 `mapstructure:"smoothing_alpha" validate:"gte=0,lt=1"`
}

// DefaultSquirrelCheeksParams returns the tuned cheek defaults.
func DefaultSquirrelCheeksParams() SquirrelCheeksParams {
	return SquirrelCheeksParams{
		Puff:           0.65,
		RadiusScale:    1.3,
		Aspect:         1.2,
		SmoothingAlpha: 0.5,
	}
}

// cheekRadius is the cheek radius in jaw widths before RadiusScale.
const cheekRadius = 0.35

// SquirrelCheeks inflates both cheeks with an elliptical bulge. The ellipse
// of each cheek is smoothed across frames so the puff does not jitter.
type SquirrelCheeks struct {
	base
	params SquirrelCheeksParams
	warper *warpgrid.Warper
	left   *smoothing.Accumulator
	right  *smoothing.Accumulator
	size   image.Point
}

// NewSquirrelCheeks creates the cheek filter.
func NewSquirrelCheeks(params SquirrelCheeksParams, opts Options) *SquirrelCheeks {
	opts = opts.withDefaults()
	return &SquirrelCheeks{
		base:   newBase(SquirrelCheeksName, opts),
		params: params,
		warper: warpgrid.NewWarper(warpgrid.DefaultResolution, resample.Replicate),
		left:   smoothing.New(params.SmoothingAlpha),
		right:  smoothing.New(params.SmoothingAlpha),
	}
}

var cheekAnchors = landmark.IndicesOf(
	landmark.Forehead, landmark.Chin,
	landmark.LeftMouth, landmark.RightMouth,
	landmark.LeftJaw, landmark.RightJaw,
	landmark.LeftCheekbone, landmark.RightCheekbone,
)

// Apply implements WarpFilter.
func (s *SquirrelCheeks) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, cheekAnchors...)
	if !ok {
		return passthrough(frame)
	}
	s.activate(s.params)

	if size := image.Pt(w, h); size != s.size {
		if s.size != (image.Point{}) {
			s.logger.Debugw("frame size changed, resetting cheek smoothing", "from", s.size, "to", size)
		}
		s.Reset()
		s.size = size
	}

	px := func(r landmark.Region) r2.Point {
		return lm.Pixel(landmark.Index(r), w, h)
	}
	up := faceframe.Build(px(landmark.Forehead), px(landmark.Chin))
	jawL, jawR := px(landmark.LeftJaw), px(landmark.RightJaw)
	rx := faceframe.Distance(jawL, jawR) * cheekRadius * s.params.RadiusScale
	ry := rx * s.params.Aspect

	out := resample.ToRGBA(frame)
	cheeks := []struct {
		acc                   *smoothing.Accumulator
		mouth, jaw, cheekbone r2.Point
	}{
		{s.left, px(landmark.LeftMouth), jawL, px(landmark.LeftCheekbone)},
		{s.right, px(landmark.RightMouth), jawR, px(landmark.RightCheekbone)},
	}
	for _, c := range cheeks {
		center := cheekCenter(c.mouth, c.jaw, c.cheekbone)
		v := c.acc.Update(center.X, center.Y, rx, ry)
		k := kernel.EllipseBulge{
			Frame:   up.At(r2.Point{X: v[0], Y: v[1]}),
			RadiusX: v[2],
			RadiusY: v[3],
			Puff:    s.params.Puff,
		}
		out = s.warper.WarpRect(out, k.Bounds(), k)
	}
	return out
}

// Reset implements Resetter.
func (s *SquirrelCheeks) Reset() {
	s.left.Reset()
	s.right.Reset()
}

// cheekCenter blends the mouth corner, mid jaw and cheekbone into the
// center of the cheek.
func cheekCenter(mouth, jaw, cheekbone r2.Point) r2.Point {
	return r2.Point{
		X: mouth.X*0.3 + jaw.X*0.5 + cheekbone.X*0.2,
		Y: mouth.Y*0.35 + jaw.Y*0.35 + cheekbone.Y*0.3,
	}
}
