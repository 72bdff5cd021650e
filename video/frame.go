package video

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is a single decoded video frame
type Frame struct {
	// Index is the 1-based position of the frame in the stream
	Index int
	// Timestamp is the presentation time from the start of the stream
	Timestamp time.Duration
	// Image is the BGR frame, owned by whoever holds the Frame
	Image gocv.Mat
}

// Close releases the frame image
func (f *Frame) Close() error {
	return f.Image.Close()
}
