package kernel

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/faceframe"
)

// SquareReach is how far past Radius the square mapping fades out.
const SquareReach = 1.5

// SquareMap pushes the round head outline toward a square in face-local
// coordinates. A point at distance d and angle θ moves toward the square
// radius d*max(|cosθ|,|sinθ|), blended by Factor*Strength times a smoothstep
// ring that starts at 0.3 radius and fades out between 1.0 and SquareReach
// radius.
type SquareMap struct {
	Frame    faceframe.Frame
	Radius   float64
	Factor   float64
	Strength float64
}

// Offset implements Kernel.
func (k SquareMap) Offset(p r2.Point) r2.Point {
	if k.Radius <= eps || k.Strength == 0 {
		return zero
	}
	lx, ly := k.Frame.Local(p)
	dist := math.Hypot(lx, ly)
	if dist <= eps {
		return zero
	}
	nd := dist / k.Radius
	if nd >= SquareReach {
		return zero
	}

	mask := faceframe.Smoothstep((math.Min(nd, SquareReach) - 0.3) / 0.7)
	mask *= faceframe.Clamp((SquareReach-nd)/0.5, 0, 1)
	f := k.Factor * k.Strength * mask
	if f == 0 {
		return zero
	}

	denom := math.Max(math.Abs(lx), math.Abs(ly)) / dist
	square := dist * denom
	rNew := dist*(1-f) + square*f
	ratio := rNew / dist
	return k.Frame.Vector(lx*(ratio-1), ly*(ratio-1))
}
