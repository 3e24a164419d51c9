package filter

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/dudu/facewarp/internal/landmark"
	"github.com/dudu/facewarp/internal/resample"
)

// SkinSmoother blurs a whole frame. Filters that smooth skin blend its output
// back only inside the face oval.
type SkinSmoother interface {
	Smooth(frame *image.RGBA) (*image.RGBA, error)
}

// GaussianSmoother is a SkinSmoother without OpenCV. It softens edges more
// than a bilateral filter does.
type GaussianSmoother struct {
	Sigma float64
}

// Smooth implements SkinSmoother.
func (g GaussianSmoother) Smooth(frame *image.RGBA) (*image.RGBA, error) {
	return resample.ToRGBA(imaging.Blur(frame, g.Sigma)), nil
}

var (
	faceOval    = landmark.Indices(landmark.FaceOval)
	leftEye     = landmark.Indices(landmark.LeftEyeContour)
	rightEye    = landmark.Indices(landmark.RightEyeContour)
	lips        = landmark.Indices(landmark.LipsContour)
	skinAnchors = landmark.IndicesOf(landmark.FaceOval, landmark.LeftEyeContour, landmark.RightEyeContour, landmark.LipsContour)
)

// skinMask covers the face oval minus the eyes and lips.
func skinMask(lm *landmark.Set, w, h int) *image.Alpha {
	return polygonMask(lm, w, h, faceOval, leftEye, rightEye, lips)
}

// polygonMask fills the outline contour and leaves its holes out.
func polygonMask(lm *landmark.Set, w, h int, outline []int, holes ...[]int) *image.Alpha {
	dc := gg.NewContext(w, h)
	dc.SetFillRule(gg.FillRuleEvenOdd)
	for _, contour := range append([][]int{outline}, holes...) {
		for i, idx := range contour {
			p := lm.Pixel(idx, w, h)
			if i == 0 {
				dc.MoveTo(p.X, p.Y)
			} else {
				dc.LineTo(p.X, p.Y)
			}
		}
		dc.ClosePath()
	}
	dc.SetRGB(1, 1, 1)
	dc.Fill()
	return dc.AsMask()
}

// blendMasked returns a copy of frame with the opaque image over drawn
// through mask.
func blendMasked(frame, over *image.RGBA, mask image.Image) *image.RGBA {
	b := frame.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, frame, b.Min, draw.Src)
	draw.DrawMask(out, b, over, b.Min, mask, b.Min, draw.Over)
	return out
}
