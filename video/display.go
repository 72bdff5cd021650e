package video

import (
	"gocv.io/x/gocv"
)

// Display shows frames in a desktop window
type Display struct {
	window *gocv.Window
	// delay is the key wait in milliseconds between frames
	delay int
}

// NewDisplay opens a window with the given title.  Frames are shown paced to
// fps.
func NewDisplay(title string, fps float64) *Display {

	delay := 1
	if fps > 0 {
		delay = int(1000 / fps)
		if delay < 1 {
			delay = 1
		}
	}

	return &Display{
		window: gocv.NewWindow(title),
		delay:  delay,
	}
}

// Show displays the frame and returns false when the user asked to stop by
// pressing q or escape
func (d *Display) Show(img gocv.Mat) bool {

	d.window.IMShow(img)

	switch d.window.WaitKey(d.delay) {
	case 'q', 27:
		return false
	}

	return true
}

// Close closes the window
func (d *Display) Close() error {
	return d.window.Close()
}
