// Package skin provides the OpenCV skin smoother used by the live loop.
package skin

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/filter"
	"github.com/dudu/facewarp/internal/resample"
)

// Bilateral is an edge-preserving filter.SkinSmoother.
type Bilateral struct {
	Diameter   int
	SigmaColor float64
	SigmaSpace float64
}

var _ filter.SkinSmoother = Bilateral{}

// DefaultBilateral keeps skin texture soft without bleeding across the jaw
// line.
func DefaultBilateral() Bilateral {
	return Bilateral{Diameter: 5, SigmaColor: 75, SigmaSpace: 75}
}

// Smooth implements filter.SkinSmoother.
func (b Bilateral) Smooth(frame *image.RGBA) (*image.RGBA, error) {
	src, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	if err := gocv.BilateralFilter(src, &dst, b.Diameter, b.SigmaColor, b.SigmaSpace); err != nil {
		return nil, fmt.Errorf("bilateral filter failed: %w", err)
	}

	img, err := dst.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert smoothed frame: %w", err)
	}
	return resample.ToRGBA(img), nil
}
