package kernel

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/faceframe"
)

// AnisotropicTaper grows the forehead. Frame is anchored at the nose bridge
// with Up toward the hairline and Scale the bridge-to-hairline distance.
//
// The weight is a radial falloff (1-d/(RadiusScale*scale))^2 times a
// smoothstep ramp along Up that starts at Threshold scales above the anchor,
// so the eyebrows stay put. Samples are pulled toward the anchor, ScaleX
// times Strength horizontally and ScaleY times Strength vertically. The
// anti-clone clamp then keeps every sample at least Limit scales above the
// anchor, otherwise the brows would be copied into the grown forehead.
type AnisotropicTaper struct {
	Frame       faceframe.Frame
	RadiusScale float64
	Strength    float64
	ScaleX      float64
	ScaleY      float64
	Threshold   float64
	Ramp        float64
	Limit       float64
	MinWeight   float64
}

// Offset implements Kernel.
func (k AnisotropicTaper) Offset(p r2.Point) r2.Point {
	size := k.Frame.Scale
	radius := size * k.RadiusScale
	if size <= eps || radius <= eps || k.Ramp <= eps {
		return zero
	}
	lx, ly := k.Frame.Local(p)
	dist := math.Hypot(lx, ly)

	radial := faceframe.Clamp(1-dist/radius, 0, 1)
	radial *= radial
	dir := faceframe.Smoothstep((ly/size - k.Threshold) / k.Ramp)
	w := radial * dir
	if w <= k.MinWeight {
		return zero
	}

	pullX := -lx * w * k.Strength * k.ScaleX
	pullY := -ly * w * k.Strength * k.ScaleY

	srcY := ly + pullY
	if violation := k.Limit*size - srcY; violation > 0 {
		pullY += violation
	}
	return k.Frame.Vector(pullX, pullY)
}
