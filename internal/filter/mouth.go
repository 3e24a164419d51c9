package filter

import (
	"image"

	"github.com/dudu/facewarp/internal/faceframe"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/mesh"
	"github.com/dudu/facewarp/internal/resample"
)

// BigMouthParams tunes the mouth enlargement.
type BigMouthParams struct {
	Strength float64 `mapstructure:"strength" validate:"gte=0,lte=5"`
	// RadiusScale is the push radius in face heights.
	RadiusScale float64 `mapstructure:"radius_scale" validate:"gt=0,lte=2"`
}

// DefaultBigMouthParams returns the tuned mouth defaults.
func DefaultBigMouthParams() BigMouthParams {
	return BigMouthParams{
		Strength:    1.6,
		RadiusScale: 0.6,
	}
}

// BigMouth pushes the mesh points around the mouth outward and redraws the
// affected triangles of a Delaunay mesh over the landmarks.
type BigMouth struct {
	base
	params BigMouthParams
}

// NewBigMouth creates the mouth filter.
func NewBigMouth(params BigMouthParams, opts Options) *BigMouth {
	opts = opts.withDefaults()
	return &BigMouth{
		base:   newBase(BigMouthName, opts),
		params: params,
	}
}

var (
	mouthCenter  = landmark.IndicesOf(landmark.UpperLip, landmark.LowerLip, landmark.LeftMouth, landmark.RightMouth)
	mouthAnchors = append(landmark.IndicesOf(landmark.Forehead, landmark.Chin), mouthCenter...)
)

// Apply implements WarpFilter.
func (b *BigMouth) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, mouthAnchors...)
	if !ok {
		return passthrough(frame)
	}
	b.activate(b.params)

	src := lm.Pixels(w, h)
	center := lm.Mean(w, h, mouthCenter...)
	height := faceframe.Distance(
		lm.Pixel(landmark.Index(landmark.Forehead), w, h),
		lm.Pixel(landmark.Index(landmark.Chin), w, h),
	)
	dst := mesh.RadialPush(src, center, height*b.params.RadiusScale, b.params.Strength)

	m, err := mesh.New(src)
	if err != nil {
		b.logger.Debugw("skipping mouth warp", "error", err)
		return passthrough(frame)
	}
	return mesh.LocalWarp(resample.ToRGBA(frame), m, src, dst)
}
