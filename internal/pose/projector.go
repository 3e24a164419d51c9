package pose

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/dudu/facewarp/internal/landmark"
)

// Projector finds where a point straight out of the face lands in the frame.
type Projector struct {
	Model   []r3.Vector
	Indices []int
	// Depth is the distance in front of the model origin, in model units.
	Depth  float64
	Solver SolverConfig
}

// NewProjector returns a projector for GenericFace and its landmark anchors.
func NewProjector() *Projector {
	return &Projector{
		Model:   GenericFace,
		Indices: Anchors(),
		Depth:   DefaultDepth,
		Solver:  DefaultSolverConfig,
	}
}

// Estimate solves the head pose for a landmark set.
func (p *Projector) Estimate(lm *landmark.Set, width, height int) (*Estimate, error) {
	if !lm.Covers(p.Indices...) {
		return nil, errors.New("landmark set is missing pose anchors")
	}
	image := make([]r2.Point, len(p.Indices))
	for i, idx := range p.Indices {
		image[i] = lm.Pixel(idx, width, height)
	}
	return Solve(p.Model, image, Approximate(width, height), p.Solver)
}

// Target returns the projection of (0, 0, Depth) under the solved pose. When
// the pose cannot be solved it returns the first anchor (the nose tip) and
// the solver error; the returned point is usable either way.
func (p *Projector) Target(lm *landmark.Set, width, height int) (r2.Point, error) {
	var fallback r2.Point
	if len(p.Indices) > 0 && lm.Covers(p.Indices[0]) {
		fallback = lm.Pixel(p.Indices[0], width, height)
	}
	est, err := p.Estimate(lm, width, height)
	if err != nil {
		return fallback, err
	}
	target, ok := est.Project(Approximate(width, height), r3.Vector{Z: p.Depth})
	if !ok {
		return fallback, ErrBehindCamera
	}
	return target, nil
}
