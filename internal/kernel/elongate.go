package kernel

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/dudu/facewarp/internal/faceframe"
)

// Elongate stretches the cranium. Frame must be anchored at the forehead with
// Up pointing away from the chin and Scale equal to the face height.
//
// Rows in a band from the anchor toward the chin, Band face heights long,
// sample from further down: at band parameter t the pull is
// -height*Strength*(1-(1-(1-t)^2)). The band has a hard edge at the anchor,
// so this kernel belongs on a dense map rather than the coarse grid.
type Elongate struct {
	Frame    faceframe.Frame
	Strength float64
	Band     float64
}

// Offset implements Kernel.
func (e Elongate) Offset(p r2.Point) r2.Point {
	height := e.Frame.Scale
	band := height * e.Band
	if e.Strength == 0 || band <= eps {
		return zero
	}
	_, ly := e.Frame.Local(p)
	down := -ly
	if down < 0 || down >= band {
		return zero
	}
	t := down / band
	weight := 1 - (1-t)*(1-t)
	disp := -height * e.Strength * (1 - weight)
	return e.Frame.Up.Mul(disp)
}

// JawTaper narrows the lower face toward the face center line. Frame is the
// same forehead-anchored frame as Elongate. Between Start face heights below
// the forehead and the chin, each row is pulled inward by
// lx * t^Exponent * Strength * exp(-|lx| / (Spread*FaceWidth)).
type JawTaper struct {
	Frame     faceframe.Frame
	FaceWidth float64
	Strength  float64
	Start     float64
	Exponent  float64
	Spread    float64
}

// Offset implements Kernel.
func (j JawTaper) Offset(p r2.Point) r2.Point {
	height := j.Frame.Scale
	spread := j.Spread * j.FaceWidth
	if j.Strength == 0 || height <= eps || spread <= eps {
		return zero
	}
	lx, ly := j.Frame.Local(p)
	down := -ly
	top := j.Start * height
	if down < top || down >= height || height-top <= eps {
		return zero
	}
	t := (down - top) / (height - top)
	s := pow(t, j.Exponent) * j.Strength
	lateral := math.Exp(-math.Abs(lx) / spread)
	return j.Frame.Right.Mul(-lx * s * lateral)
}
