package filter

import (
	"image"
	"math"

	"github.com/dudu/facewarp/internal/faceframe"
	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
	"github.com/dudu/facewarp/internal/warpgrid"
)

// AlienParams tunes the alien head: an elongated cranium over a slim jaw.
type AlienParams struct {
	// Strength is the cranium pull in face heights at the forehead row.
	Strength float64 `mapstructure:"strength" validate:"gte=0,lte=2"`
	// Band is the height of the stretched band in face heights.
	Band float64 `mapstructure:"band" validate:"gt=0,lte=1"`
	// JawStrength narrows the jaw per unit of Strength; 0 disables it.
	JawStrength float64 `mapstructure:"jaw_strength" validate:"gte=0,lte=1"`
	// JawStart is where the narrowing begins, in face heights below the forehead.
	JawStart    float64 `mapstructure:"jaw_start" validate:"gte=0,lt=1"`
	JawExponent float64 `mapstructure:"jaw_exponent" validate:"gt=0,lte=5"`
	JawSpread   float64 `mapstructure:"jaw_spread" validate:"gt=0,lte=5"`
	// Overlay tints the face green and paints large black eyes.
	Overlay  bool    `mapstructure:"overlay"`
	EyeScale float64 `mapstructure:"eye_scale" validate:"gt=0,lte=4"`
}

// DefaultAlienParams returns the tuned alien defaults.
func DefaultAlienParams() AlienParams {
	return AlienParams{
		Strength:    0.55,
		Band:        0.35,
		JawStrength: 0.45,
		JawStart:    0.6,
		JawExponent: 1.5,
		JawSpread:   0.8,
		EyeScale:    1.7,
	}
}

// Alien stretches the head upward and tapers the jaw. Both kernels have hard
// row edges, so they are evaluated per pixel.
type Alien struct {
	base
	params AlienParams
	warper *warpgrid.Warper
}

// NewAlien creates the alien filter.
func NewAlien(params AlienParams, opts Options) *Alien {
	opts = opts.withDefaults()
	return &Alien{
		base:   newBase(AlienName, opts),
		params: params,
		warper: warpgrid.NewWarper(warpgrid.DefaultResolution, resample.Reflect101),
	}
}

var alienAnchors = landmark.IndicesOf(landmark.Forehead, landmark.Chin, landmark.LeftTemple, landmark.RightTemple)

// Apply implements WarpFilter.
func (a *Alien) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, alienAnchors...)
	if !ok {
		return passthrough(frame)
	}
	a.activate(a.params)

	forehead := lm.Pixel(landmark.Index(landmark.Forehead), w, h)
	chin := lm.Pixel(landmark.Index(landmark.Chin), w, h)
	left := lm.Pixel(landmark.Index(landmark.LeftTemple), w, h)
	right := lm.Pixel(landmark.Index(landmark.RightTemple), w, h)

	f := faceframe.Build(forehead, chin).At(forehead)
	dense := []kernel.Kernel{
		kernel.Elongate{Frame: f, Strength: a.params.Strength, Band: a.params.Band},
		kernel.JawTaper{
			Frame:     f,
			FaceWidth: faceframe.Distance(left, right),
			Strength:  math.Min(a.params.JawStrength*a.params.Strength, 1),
			Start:     a.params.JawStart,
			Exponent:  a.params.JawExponent,
			Spread:    a.params.JawSpread,
		},
	}
	src := resample.ToRGBA(frame)
	overlay := a.params.Overlay && a.params.Strength > 0 && lm.Covers(alienOverlayAnchors...)
	if overlay {
		src = tintSkin(src, lm, w, h)
	}
	out := a.warper.Warp(src, nil, dense)
	if overlay {
		// the eyes sit below the stretched band, so unwarped landmarks place them
		paintAlienEyes(out, lm, w, h, a.params.EyeScale)
	}
	return out
}

// Warper exposes the sample field of the last frame.
func (a *Alien) Warper() *warpgrid.Warper {
	return a.warper
}
