// Package ui shows scored images in an OpenCV preview window.
package ui

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/facescore/internal/pipeline"
)

var (
	okColor    = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	errorColor = color.RGBA{R: 255, G: 80, B: 80, A: 255}
)

// Window manages the preview display
type Window struct {
	window *gocv.Window
	name   string
}

// NewWindow creates a new preview window
func NewWindow(name string) *Window {
	window := gocv.NewWindow(name)
	// Force window to appear on macOS
	window.ResizeWindow(600, 650)
	window.MoveWindow(100, 100)
	return &Window{
		window: window,
		name:   name,
	}
}

// Show displays a completed request: the image (or a blank canvas when
// there is none) with the score and status drawn on top.
func (w *Window) Show(d pipeline.Display) error {
	var frame gocv.Mat
	if d.Image != nil {
		mat, err := gocv.ImageToMatRGB(d.Image)
		if err != nil {
			return fmt.Errorf("failed to convert image: %w", err)
		}
		frame = mat
	} else {
		frame = gocv.NewMatWithSize(450, 550, gocv.MatTypeCV8UC3)
	}
	defer frame.Close()

	textColor := okColor
	if d.IsFailure() {
		textColor = errorColor
	}

	gocv.PutText(&frame, "Score: "+d.ScoreText, image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, textColor, 2)
	gocv.PutText(&frame, pipeline.StatusCategory(d.Status), image.Pt(10, frame.Rows()-15),
		gocv.FontHersheyPlain, 1.4, textColor, 2)

	w.window.IMShow(frame)
	return nil
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// Closed reports whether the user closed the window.
func (w *Window) Closed() bool {
	return w.window.GetWindowProperty(gocv.WindowPropertyVisible) < 1
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
