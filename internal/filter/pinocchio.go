package filter

import (
	"image"
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dudu/facewarp/internal/extrude"
	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/pose"
	"github.com/dudu/facewarp/internal/resample"
)

// PinocchioParams tunes the growing nose. Widths are in pixels for a face
// whose nose bridge to nose bottom distance is ReferenceHeight pixels.
type PinocchioParams struct {
	// Strength scales the nose length; 0 disables the effect.
	Strength        float64       `mapstructure:"strength" validate:"gte=0,lte=4"`
	Duration        time.Duration `mapstructure:"duration" validate:"gte=0"`
	MinLength       float64       `mapstructure:"min_length" validate:"gte=0"`
	MaxLength       float64       `mapstructure:"max_length" validate:"gtefield=MinLength"`
	BaseWidth       float64       `mapstructure:"base_width" validate:"gt=0"`
	TipWidth        float64       `mapstructure:"tip_width" validate:"gte=0"`
	Segments        int           `mapstructure:"segments" validate:"gte=1,lte=500"`
	ReferenceHeight float64       `mapstructure:"reference_height" validate:"gt=0"`
	// Depth is how far in front of the face the nose points, in model units.
	Depth float64 `mapstructure:"depth" validate:"gt=0"`
}

// DefaultPinocchioParams returns the tuned nose defaults.
func DefaultPinocchioParams() PinocchioParams {
	return PinocchioParams{
		Strength:        1.0,
		Duration:        30 * time.Second,
		MinLength:       20,
		MaxLength:       250,
		BaseWidth:       30,
		TipWidth:        8,
		Segments:        60,
		ReferenceHeight: 60,
		Depth:           pose.DefaultDepth,
	}
}

// Pinocchio grows a textured nose out of the face along the head direction.
// The nose length follows a growth timer driven by the injected clock.
type Pinocchio struct {
	base
	params    PinocchioParams
	clock     clock.Clock
	timer     *extrude.GrowthTimer
	extruder  *extrude.Extruder
	projector *pose.Projector
}

// NewPinocchio creates the nose filter.
func NewPinocchio(params PinocchioParams, opts Options) *Pinocchio {
	opts = opts.withDefaults()
	projector := pose.NewProjector()
	projector.Depth = params.Depth
	return &Pinocchio{
		base:      newBase(PinocchioName, opts),
		params:    params,
		clock:     opts.Clock,
		timer:     extrude.NewGrowthTimer(params.Duration, params.MinLength, params.MaxLength),
		extruder:  extrude.NewExtruder(params.Segments),
		projector: projector,
	}
}

var pinocchioAnchors = append(
	landmark.IndicesOf(landmark.NoseBridge, landmark.NoseBottom),
	pose.Anchors()...,
)

// Apply implements WarpFilter.
func (p *Pinocchio) Apply(frame *image.RGBA, lm *landmark.Set) *image.RGBA {
	w, h, ok := usable(frame, lm, pinocchioAnchors...)
	if !ok || p.params.Strength == 0 {
		return passthrough(frame)
	}
	p.activate(p.params)

	elapsed := p.timer.Elapsed(p.clock.Now())
	length := p.timer.Length(elapsed) * p.params.Strength

	bridge := lm.Pixel(landmark.Index(landmark.NoseBridge), w, h)
	bottom := lm.Pixel(landmark.Index(landmark.NoseBottom), w, h)
	scale := math.Abs(bridge.Y-bottom.Y) / p.params.ReferenceHeight
	baseWidth := int(p.params.BaseWidth * scale)
	tipWidth := int(p.params.TipWidth * scale)

	tip := lm.Pixel(landmark.Index(landmark.NoseTip), w, h)
	target, err := p.projector.Target(lm, w, h)
	if err != nil {
		p.logger.Debugw("head pose not solved, using the nose tip", "error", err)
	}

	out := resample.Clone(resample.ToRGBA(frame))
	anchor := image.Pt(int(tip.X), int(tip.Y))
	tex := p.extruder.Sample(out, anchor, baseWidth/2)
	if tex == nil {
		return out
	}
	p.extruder.Stamp(out, tex, tip, target, length, baseWidth, tipWidth)
	return out
}

// Reset implements Resetter. The nose starts growing again from MinLength.
func (p *Pinocchio) Reset() {
	p.timer.Reset()
}

// Timer exposes the growth timer.
func (p *Pinocchio) Timer() *extrude.GrowthTimer {
	return p.timer
}
