// Package camera reads webcam frames with OpenCV.
package camera

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dudu/facewarp/internal/resample"
)

// Capture manages webcam capture and implements pipeline.FrameSource.
type Capture struct {
	webcam   *gocv.VideoCapture
	frame    gocv.Mat
	deviceID int
	width    int
	height   int
	mu       sync.Mutex
}

// NewCapture opens a camera at 720p.
func NewCapture(deviceID int, targetFPS int) (*Capture, error) {
	return NewCaptureWithResolution(deviceID, targetFPS, 1280, 720)
}

// NewCaptureWithResolution opens a camera asking for the given resolution.
// The camera may pick another one; Width and Height report what it chose.
func NewCaptureWithResolution(deviceID int, targetFPS int, width, height int) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	webcam.Set(gocv.VideoCaptureFPS, float64(targetFPS))

	return &Capture{
		webcam:   webcam,
		frame:    gocv.NewMat(),
		deviceID: deviceID,
		width:    int(webcam.Get(gocv.VideoCaptureFrameWidth)),
		height:   int(webcam.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Read captures a frame into the provided Mat
func (c *Capture) Read(frame *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return false
	}
	return c.webcam.Read(frame)
}

// Next returns the next frame as RGBA, or nil when the camera had none ready.
func (c *Capture) Next() (*image.RGBA, error) {
	if !c.Read(&c.frame) || c.frame.Empty() {
		return nil, nil
	}
	img, err := c.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return resample.ToRGBA(img), nil
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// Close releases the camera
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		err := c.webcam.Close()
		c.webcam = nil
		c.frame.Close()
		return err
	}
	return nil
}
