package pipeline

import "image"

// FrameSource yields input frames. A nil frame with a nil error means no
// frame was ready; io.EOF ends the run.
type FrameSource interface {
	Next() (*image.RGBA, error)
	Close() error
}

// Display shows processed frames and reports key presses.
type Display interface {
	Show(frame *image.RGBA, overlay []string)
	// WaitKey returns the pressed key code or -1.
	WaitKey(delayMs int) int
	Close() error
}

// Keys handled by Run.
const (
	KeyNext   = 'n'
	KeyReset  = 'r'
	KeyQuit   = 'q'
	KeyEscape = 27
)
