package filter

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/faceframe"
	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
	"github.com/dudu/facewarp/internal/warpgrid"
)

// SharpChinParams tunes the V-line chin. Distances are in units of the nose
// bridge to chin distance.
type SharpChinParams struct {
	// Strength pinches the sides of the chin toward its center line.
	Strength float64 `mapstructure:"strength" validate:"gte=0,lte=10"`
	// Drop pulls the chin down, per unit of Strength.
	Drop           float64 `mapstructure:"drop" validate:"gte=0,lte=1"`
	RadiusScale    float64 `mapstructure:"radius_scale" validate:"gt=0,lte=3"`
	Exponent       float64 `mapstructure:"falloff_exponent" validate:"gt=0,lte=8"`
	GridResolution int     `mapstructure:"grid_resolution" validate:"gte=8,lte=400"`
}

// DefaultSharpChinParams returns the tuned chin defaults.
func DefaultSharpChinParams() SharpChinParams {
	return SharpChinParams{
		Strength:       3.5,
		Drop:           0.035,
		RadiusScale:    0.5,
		Exponent:       2,
		GridResolution: 60,
	}
}

// SharpChin narrows and lengthens the chin with a horizontal pinch.
type SharpChin struct {
	base
	params SharpChinParams
	warper *warpgrid.Warper
}

// NewSharpChin creates the chin filter.
func NewSharpChin(params SharpChinParams, opts Options) *SharpChin {
	opts = opts.withDefaults()
	return &SharpChin{
		base:   newBase(SharpChinName, opts),
		params: params,
		warper: warpgrid.NewWarper(params.GridResolution, resample.Reflect101),
	}
}

var sharpChinAnchors = landmark.IndicesOf(landmark.NoseBridge, landmark.Chin)

// Apply implements WarpFilter.
func (s *SharpChin) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, sharpChinAnchors...)
	if !ok {
		return passthrough(frame)
	}
	s.activate(s.params)

	f := faceframe.Build(
		lm.Pixel(landmark.Index(landmark.NoseBridge), w, h),
		lm.Pixel(landmark.Index(landmark.Chin), w, h),
	)
	k := kernel.RadialPinchOrBulge{
		Frame:     f,
		Radius:    f.Scale * s.params.RadiusScale,
		StrengthX: s.params.Strength,
		Lift:      f.Scale * s.params.Drop,
		Exponent:  s.params.Exponent,
	}
	return s.warper.Warp(resample.ToRGBA(frame), []kernel.Kernel{k}, nil)
}

// BigEyesParams tunes the eye magnifier.
type BigEyesParams struct {
	// Strength is the bulge amount; the eye center is magnified by
	// 1/(1-Strength).
	Strength float64 `mapstructure:"strength" validate:"gte=0,lt=1"`
	// RadiusScale is the lens radius in inter-iris distances.
	RadiusScale float64 `mapstructure:"radius_scale" validate:"gt=0,lte=2"`
	Exponent    float64 `mapstructure:"falloff_exponent" validate:"gt=0,lte=8"`
	// SmoothSkin softens the face oval, minus eyes and lips, before the
	// lenses are applied.
	SmoothSkin bool    `mapstructure:"smooth_skin"`
	SkinSigma  float64 `mapstructure:"skin_sigma" validate:"gt=0,lte=20"`
}

// DefaultBigEyesParams returns the eye defaults.
func DefaultBigEyesParams() BigEyesParams {
	return BigEyesParams{
		Strength:    0.35,
		RadiusScale: 0.55,
		Exponent:    2,
		SkinSigma:   1.5,
	}
}

// BigEyes magnifies both eyes around the iris centers. Each lens only
// touches its own square of the frame.
type BigEyes struct {
	base
	params   BigEyesParams
	warper   *warpgrid.Warper
	smoother SkinSmoother
}

// NewBigEyes creates the eye filter.
func NewBigEyes(params BigEyesParams, opts Options) *BigEyes {
	opts = opts.withDefaults()
	smoother := opts.Smoother
	if smoother == nil {
		smoother = GaussianSmoother{Sigma: params.SkinSigma}
	}
	return &BigEyes{
		base:     newBase(BigEyesName, opts),
		params:   params,
		warper:   warpgrid.NewWarper(warpgrid.DefaultResolution, resample.Reflect101),
		smoother: smoother,
	}
}

var bigEyesAnchors = landmark.IndicesOf(landmark.Forehead, landmark.Chin, landmark.LeftIris, landmark.RightIris)

// Apply implements WarpFilter.
func (b *BigEyes) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, bigEyesAnchors...)
	if !ok {
		return passthrough(frame)
	}
	b.activate(b.params)

	up := faceframe.Build(
		lm.Pixel(landmark.Index(landmark.Forehead), w, h),
		lm.Pixel(landmark.Index(landmark.Chin), w, h),
	)
	left := lm.Pixel(landmark.Index(landmark.LeftIris), w, h)
	right := lm.Pixel(landmark.Index(landmark.RightIris), w, h)
	radius := faceframe.Distance(left, right) * b.params.RadiusScale

	out := resample.ToRGBA(frame)
	if b.params.SmoothSkin && b.params.Strength > 0 && lm.Covers(skinAnchors...) {
		out = b.smoothSkin(out, lm, w, h)
	}
	for _, eye := range []r2.Point{left, right} {
		k := kernel.RadialPinchOrBulge{
			Frame:     up.At(eye),
			Radius:    radius,
			StrengthX: b.params.Strength,
			StrengthY: b.params.Strength,
			Exponent:  b.params.Exponent,
			Invert:    true,
		}
		out = b.warper.WarpRect(out, squareAround(eye, radius), k)
	}
	return out
}

func (b *BigEyes) smoothSkin(frame *image.RGBA, lm *landmark.Set, w, h int) *image.RGBA {
	smoothed, err := b.smoother.Smooth(frame)
	if err != nil {
		b.logger.Debugw("skipping skin smoothing", "error", err)
		return frame
	}
	return blendMasked(frame, smoothed, skinMask(lm, w, h))
}

// squareAround returns the pixel square that contains the disk at c.
func squareAround(c r2.Point, radius float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(c.X-radius)), int(math.Floor(c.Y-radius)),
		int(math.Ceil(c.X+radius))+1, int(math.Ceil(c.Y+radius))+1,
	)
}
