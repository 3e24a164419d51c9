// Package pose estimates head rotation from face landmarks with a generic 3D
// face model and projects model-space points back into the frame.
package pose

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is returned for unusable camera parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not valid")

// Intrinsics holds the pinhole parameters used to project camera-space
// points. Lens distortion is assumed to be zero.
type Intrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// Approximate returns intrinsics for an uncalibrated camera: the focal length
// is the frame width and the principal point is the frame center.
func Approximate(width, height int) Intrinsics {
	return Intrinsics{
		Width:  width,
		Height: height,
		Fx:     float64(width),
		Fy:     float64(width),
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
	}
}

// CheckValid checks that the intrinsics can be used for projection.
func (in Intrinsics) CheckValid() error {
	if in.Width <= 0 || in.Height <= 0 {
		return errors.Wrap(ErrNoIntrinsics, fmt.Sprintf("invalid size (%d, %d)", in.Width, in.Height))
	}
	if in.Fx <= 0 || in.Fy <= 0 {
		return errors.Wrap(ErrNoIntrinsics, fmt.Sprintf("invalid focal length (%v, %v)", in.Fx, in.Fy))
	}
	if in.Ppx < 0 || in.Ppy < 0 {
		return errors.Wrap(ErrNoIntrinsics, fmt.Sprintf("invalid principal point (%v, %v)", in.Ppx, in.Ppy))
	}
	return nil
}

// Project maps a camera-space point onto the image plane. It reports false
// for points at or behind the camera.
func (in Intrinsics) Project(p r3.Vector) (r2.Point, bool) {
	if p.Z <= 1e-9 {
		return r2.Point{}, false
	}
	return r2.Point{
		X: p.X/p.Z*in.Fx + in.Ppx,
		Y: p.Y/p.Z*in.Fy + in.Ppy,
	}, true
}

// CameraMatrix returns the 3x3 camera matrix
//
//	[[fx 0  ppx],
//	 [0  fy ppy],
//	 [0  0  1]]
func (in Intrinsics) CameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		in.Fx, 0, in.Ppx,
		0, in.Fy, in.Ppy,
		0, 0, 1,
	})
}
