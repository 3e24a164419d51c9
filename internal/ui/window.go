// Package ui shows the preview window.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

var overlayColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// Window manages the preview display and implements pipeline.Display.
type Window struct {
	window     *gocv.Window
	name       string
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewWindow creates a new preview window
func NewWindow(name string, width, height int) *Window {
	window := gocv.NewWindow(name)
	// Force window to appear on macOS
	window.ResizeWindow(width, height)
	window.MoveWindow(100, 100)
	return &Window{
		window:    window,
		name:      name,
		lastFrame: time.Now(),
	}
}

// Show displays a frame with the FPS counter and the overlay lines below it.
func (w *Window) Show(frame *image.RGBA, overlay []string) {
	w.frameCount++
	now := time.Now()

	// FPS is recomputed once per second
	elapsed := now.Sub(w.lastFrame)
	if elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return
	}
	defer mat.Close()

	lines := append([]string{fmt.Sprintf("FPS: %.1f", w.fps)}, overlay...)
	for i, line := range lines {
		gocv.PutText(&mat, line, image.Pt(10, 30+30*i),
			gocv.FontHersheyPlain, 1.5, overlayColor, 2)
	}

	w.window.IMShow(mat)
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// FPS returns current frames per second
func (w *Window) FPS() float64 {
	return w.fps
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
