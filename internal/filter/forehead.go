package filter

import (
	"image"

	"github.com/dudu/facewarp/internal/faceframe"
	"github.com/dudu/facewarp/internal/kernel"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
	"github.com/dudu/facewarp/internal/warpgrid"
)

// GiantForeheadParams tunes the forehead growth. Distances are in units of
// the nose bridge to hairline distance.
type GiantForeheadParams struct {
	Strength    float64 `mapstructure:"strength" validate:"gte=0,lte=3"`
	RadiusScale float64 `mapstructure:"radius_scale" validate:"gt=0,lte=10"`
	ScaleX      float64 `mapstructure:"scale_x" validate:"gte=0,lte=5"`
	ScaleY      float64 `mapstructure:"scale_y" validate:"gte=0,lte=5"`
	// Threshold and Ramp place the smoothstep that protects the brows.
	Threshold float64 `mapstructure:"threshold" validate:"gte=0,lte=2"`
	Ramp      float64 `mapstructure:"ramp" validate:"gt=0,lte=2"`
	// Limit is the lowest point a grown forehead may sample from.
	Limit          float64 `mapstructure:"limit" validate:"gte=0,lte=2"`
	MinWeight      float64 `mapstructure:"min_weight" validate:"gte=0,lt=1"`
	GridResolution int     `mapstructure:"grid_resolution" validate:"gte=8,lte=400"`
}

// DefaultGiantForeheadParams returns the tuned forehead defaults.
func DefaultGiantForeheadParams() GiantForeheadParams {
	return GiantForeheadParams{
		Strength:       1.2,
		RadiusScale:    3.5,
		ScaleX:         0.5,
		ScaleY:         2.5,
		Threshold:      0.70,
		Ramp:           0.5,
		Limit:          0.48,
		MinWeight:      0.01,
		GridResolution: 80,
	}
}

// GiantForehead pulls the hairline up with an anisotropic taper anchored at
// the nose bridge.
type GiantForehead struct {
	base
	params GiantForeheadParams
	warper *warpgrid.Warper
}

// NewGiantForehead creates the forehead filter.
func NewGiantForehead(params GiantForeheadParams, opts Options) *GiantForehead {
	opts = opts.withDefaults()
	return &GiantForehead{
		base:   newBase(GiantForeheadName, opts),
		params: params,
		warper: warpgrid.NewWarper(params.GridResolution, resample.Reflect101),
	}
}

var foreheadAnchors = landmark.IndicesOf(landmark.Forehead, landmark.NoseBridge)

// Apply implements WarpFilter.
func (g *GiantForehead) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, foreheadAnchors...)
	if !ok {
		return passthrough(frame)
	}
	g.activate(g.params)

	p := g.params
	k := kernel.AnisotropicTaper{
		Frame: faceframe.Build(
			lm.Pixel(landmark.Index(landmark.Forehead), w, h),
			lm.Pixel(landmark.Index(landmark.NoseBridge), w, h),
		),
		RadiusScale: p.RadiusScale,
		Strength:    p.Strength,
		ScaleX:      p.ScaleX,
		ScaleY:      p.ScaleY,
		Threshold:   p.Threshold,
		Ramp:        p.Ramp,
		Limit:       p.Limit,
		MinWeight:   p.MinWeight,
	}
	return g.warper.Warp(resample.ToRGBA(frame), []kernel.Kernel{k}, nil)
}
