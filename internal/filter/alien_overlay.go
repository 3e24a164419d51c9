package filter

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"golang.org/x/image/draw"

	"github.com/dudu/facewarp/internal/landmark"
)

var alienGreen = color.RGBA{R: 80, G: 180, B: 60, A: 255}

var alienOverlayAnchors = landmark.IndicesOf(landmark.FaceOval, landmark.LeftEyeContour, landmark.RightEyeContour)

// tintSkin mixes 65% alien green into the face oval. The oval edge is
// feathered.
func tintSkin(frame *image.RGBA, lm *landmark.Set, w, h int) *image.RGBA {
	b := frame.Bounds()
	tinted := image.NewRGBA(b)
	draw.Draw(tinted, b, frame, b.Min, draw.Src)
	draw.DrawMask(tinted, b, image.NewUniform(alienGreen), image.Point{},
		image.NewUniform(color.Alpha{A: 166}), image.Point{}, draw.Over)

	feather := imaging.Blur(polygonMask(lm, w, h, faceOval), 2.5)
	return blendMasked(frame, tinted, feather)
}

// paintAlienEyes draws glossy black ellipses over both eyes, scale times the
// eye contour box and at least 40x30 px, directly onto frame.
func paintAlienEyes(frame *image.RGBA, lm *landmark.Set, w, h int, scale float64) {
	dc := gg.NewContextForRGBA(frame)
	for _, contour := range [][]int{leftEye, rightEye} {
		pts := make([]r2.Point, len(contour))
		for i, idx := range contour {
			pts[i] = lm.Pixel(idx, w, h)
		}
		box := r2.RectFromPoints(pts...)
		c := box.Center()
		rx := max(box.Size().X*scale, 40) / 2
		ry := max(box.Size().Y*scale, 30) / 2

		dc.DrawEllipse(c.X, c.Y, rx, ry)
		dc.SetRGBA255(15, 15, 15, 217)
		dc.Fill()
		dc.DrawEllipse(c.X, c.Y, rx+2, ry+2)
		dc.SetRGBA255(5, 5, 5, 217)
		dc.SetLineWidth(2)
		dc.Stroke()

		// gloss
		dc.DrawEllipse(c.X-2*rx*0.15, c.Y-2*ry*0.2, rx*0.25, ry*0.35)
		dc.SetRGBA255(220, 220, 220, 77)
		dc.Fill()
		dc.DrawCircle(c.X+2*rx*0.1, c.Y+2*ry*0.15, 2*rx*0.08)
		dc.SetRGBA255(255, 255, 255, 51)
		dc.Fill()
	}
}
