// Package detector runs the ONNX face detector and face mesh models.
package detector

// Point is a pixel position in the source frame.
type Point struct {
	X, Y float32
}

// BoundingBox is a face box in source pixels.
type BoundingBox struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Area returns box area
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Square returns a square box around the center whose side is the longer
// edge times scale.
func (b BoundingBox) Square(scale float32) BoundingBox {
	c := b.Center()
	half := max(b.Width(), b.Height()) * scale / 2
	return BoundingBox{X1: c.X - half, Y1: c.Y - half, X2: c.X + half, Y2: c.Y + half}
}

// Keypoints are the five SCRFD keypoints.
type Keypoints struct {
	LeftEye    Point
	RightEye   Point
	Nose       Point
	LeftMouth  Point
	RightMouth Point
}

// Face is one SCRFD detection.
type Face struct {
	BoundingBox BoundingBox
	Keypoints   Keypoints
	Score       float32
}

// Largest returns the face with the biggest box, or false for no faces.
func Largest(faces []Face) (Face, bool) {
	if len(faces) == 0 {
		return Face{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.BoundingBox.Area() > best.BoundingBox.Area() {
			best = f
		}
	}
	return best, true
}
