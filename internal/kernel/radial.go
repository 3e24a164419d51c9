package kernel

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/faceframe"
)

// RadialPinchOrBulge displaces points around the frame origin with weight
// (1-dist/Radius)^Exponent.
//
// With positive strengths the sample point moves away from the anchor, which
// pinches the image toward it; Invert flips that into a bulge. StrengthX and
// StrengthY scale the face-local axes separately. Lift adds a weighted shift
// along Up of Lift pixels per unit of the larger strength, so a kernel with
// both strengths at zero is the identity.
type RadialPinchOrBulge struct {
	Frame     faceframe.Frame
	Radius    float64
	StrengthX float64
	StrengthY float64
	Lift      float64
	Exponent  float64
	Invert    bool
}

// Offset implements Kernel.
func (k RadialPinchOrBulge) Offset(p r2.Point) r2.Point {
	if k.Radius <= eps {
		return zero
	}
	lx, ly := k.Frame.Local(p)
	dist := math.Hypot(lx, ly)
	if dist >= k.Radius {
		return zero
	}
	exp := k.Exponent
	if exp <= 0 {
		exp = 2
	}
	w := pow(1-dist/k.Radius, exp)

	sign := 1.0
	if k.Invert {
		sign = -1
	}
	ox := sign * lx * w * k.StrengthX
	lift := k.Lift * math.Max(math.Abs(k.StrengthX), math.Abs(k.StrengthY))
	oy := sign*ly*w*k.StrengthY + lift*w
	return k.Frame.Vector(ox, oy)
}

// Magnitude returns |Offset(p)|.
func Magnitude(k Kernel, p r2.Point) float64 {
	return k.Offset(p).Norm()
}
