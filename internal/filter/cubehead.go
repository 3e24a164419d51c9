package filter

import (
	"image"

	"github.com/dudu/facewarp/internal/faceframe"
	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
	"github.com/dudu/facewarp/internal/warpgrid"
)

// CubeHeadParams tunes the cube head.
type CubeHeadParams struct {
	Strength float64 `mapstructure:"strength" validate:"gte=0,lte=2"`
	// Factor blends the round outline toward the square one.
	Factor float64 `mapstructure:"factor" validate:"gte=0,lte=1"`
	// The radius is the mean of HeightScale face heights and WidthScale
	// temple distances.
	HeightScale    float64 `mapstructure:"height_scale" validate:"gt=0,lte=3"`
	WidthScale     float64 `mapstructure:"width_scale" validate:"gt=0,lte=3"`
	GridResolution int     `mapstructure:"grid_resolution" validate:"gte=8,lte=400"`
}

// DefaultCubeHeadParams returns the tuned cube head defaults.
func DefaultCubeHeadParams() CubeHeadParams {
	return CubeHeadParams{
		Strength:       1.0,
		Factor:         0.85,
		HeightScale:    0.55,
		WidthScale:     0.65,
		GridResolution: 80,
	}
}

// CubeHead squares the head outline around the nose bridge.
type CubeHead struct {
	base
	params CubeHeadParams
	warper *warpgrid.Warper
}

// NewCubeHead creates the cube head filter.
func NewCubeHead(params CubeHeadParams, opts Options) *CubeHead {
	opts = opts.withDefaults()
	return &CubeHead{
		base:   newBase(CubeHeadName, opts),
		params: params,
		warper: warpgrid.NewWarper(params.GridResolution, resample.Reflect101),
	}
}

var cubeHeadAnchors = landmark.IndicesOf(
	landmark.Forehead, landmark.Chin, landmark.NoseBridge, landmark.LeftTemple, landmark.RightTemple,
)

// Apply implements WarpFilter.
func (c *CubeHead) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, cubeHeadAnchors...)
	if !ok {
		return passthrough(frame)
	}
	c.activate(c.params)

	up := faceframe.Build(
		lm.Pixel(landmark.Index(landmark.Forehead), w, h),
		lm.Pixel(landmark.Index(landmark.Chin), w, h),
	)
	temples := faceframe.Distance(
		lm.Pixel(landmark.Index(landmark.LeftTemple), w, h),
		lm.Pixel(landmark.Index(landmark.RightTemple), w, h),
	)
	radius := (up.Scale*c.params.HeightScale + temples*c.params.WidthScale) / 2

	k := kernel.SquareMap{
		Frame:    up.At(lm.Pixel(landmark.Index(landmark.NoseBridge), w, h)),
		Radius:   radius,
		Factor:   c.params.Factor,
		Strength: c.params.Strength,
	}
	return c.warper.Warp(resample.ToRGBA(frame), []kernel.Kernel{k}, nil)
}
