package filter

import (
	"image"

	"github.com/dudu/facewarp/internal/faceframe"
	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
	"github.com/dudu/facewarp/internal/warpgrid"
)

// PermanentSmileParams tunes the smile.
type PermanentSmileParams struct {
	Strength float64 `mapstructure:"strength" validate:"gte=0,lte=1.5"`
	// RadiusScale is the effect radius in mouth widths.
	RadiusScale float64 `mapstructure:"radius_scale" validate:"gt=0,lte=3"`
	Sigma       float64 `mapstructure:"sigma" validate:"gt=0,lte=5"`
	ArcPower    float64 `mapstructure:"arc_power" validate:"gt=0,lte=8"`
	Stretch     float64 `mapstructure:"stretch" validate:"gte=0,lte=2"`
	Lift        float64 `mapstructure:"lift" validate:"gte=0,lte=2"`
}

// DefaultPermanentSmileParams returns the tuned smile defaults.
func DefaultPermanentSmileParams() PermanentSmileParams {
	return PermanentSmileParams{
		Strength:    1.0,
		RadiusScale: 1.0,
		Sigma:       0.8,
		ArcPower:    2.7,
		Stretch:     0.72,
		Lift:        0.85,
	}
}

// PermanentSmile lifts the mouth corners. The frame follows the eye line so
// the corners move along the head's own axes.
type PermanentSmile struct {
	base
	params PermanentSmileParams
	warper *warpgrid.Warper
}

// NewPermanentSmile creates the smile filter.
func NewPermanentSmile(params PermanentSmileParams, opts Options) *PermanentSmile {
	opts = opts.withDefaults()
	return &PermanentSmile{
		base:   newBase(PermanentSmileName, opts),
		params: params,
		warper: warpgrid.NewWarper(warpgrid.DefaultResolution, resample.Replicate),
	}
}

var smileAnchors = landmark.IndicesOf(
	landmark.LeftMouth, landmark.RightMouth, landmark.LeftEyeOuter, landmark.RightEyeOuter,
)

// Apply implements WarpFilter.
func (p *PermanentSmile) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, smileAnchors...)
	if !ok {
		return passthrough(frame)
	}
	p.activate(p.params)

	left := lm.Pixel(landmark.Index(landmark.LeftMouth), w, h)
	right := lm.Pixel(landmark.Index(landmark.RightMouth), w, h)
	mid := left.Add(right).Mul(0.5)
	eyes := faceframe.FromLateral(
		lm.Pixel(landmark.Index(landmark.LeftEyeOuter), w, h),
		lm.Pixel(landmark.Index(landmark.RightEyeOuter), w, h),
	)

	radius := faceframe.Distance(left, right) * p.params.RadiusScale
	k := kernel.Smile{
		Frame:    eyes.At(mid),
		Radius:   radius,
		Strength: p.params.Strength,
		ArcPower: p.params.ArcPower,
		Stretch:  p.params.Stretch,
		Lift:     p.params.Lift,
		Sigma:    p.params.Sigma,
	}
	return p.warper.WarpRect(resample.ToRGBA(frame), squareAround(mid, radius), k)
}
