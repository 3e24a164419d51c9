package kernel

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/faceframe"
)

// Smile lifts and stretches the mouth corners. Frame is anchored at the
// mouth midpoint with Right along the eye line; Radius is the mouth width.
//
// With u = lx/Radius, the corner arc |u|^ArcPower concentrates the effect at
// the corners. A Gaussian of width Sigma, shifted so it reaches zero at the
// radius, fades it out.
type Smile struct {
	Frame    faceframe.Frame
	Radius   float64
	Strength float64
	ArcPower float64
	Stretch  float64
	Lift     float64
	Sigma    float64
}

// Offset implements Kernel.
func (k Smile) Offset(p r2.Point) r2.Point {
	if k.Radius <= eps || k.Sigma <= eps || k.Strength == 0 {
		return zero
	}
	lx, ly := k.Frame.Local(p)
	nd := math.Hypot(lx, ly) / k.Radius
	if nd >= 1 {
		return zero
	}

	s2 := k.Sigma * k.Sigma
	edge := math.Exp(-1 / s2)
	g := (math.Exp(-nd*nd/s2) - edge) / (1 - edge)

	u := faceframe.Clamp(lx/k.Radius, -1, 1)
	arc := math.Pow(math.Abs(u), k.ArcPower)
	amount := k.Radius * k.Strength * arc * g

	lift := amount * k.Lift
	stretch := amount * k.Stretch
	if u < 0 {
		stretch = -stretch
	}
	// sample from below the corners and closer to the center
	return k.Frame.Vector(-stretch, -lift)
}
