package detect

import (
	"context"
	"fmt"

	"github.com/swdee/go-fightdetect/pose"
	"github.com/swdee/go-fightdetect/video"
)

// Detector finds people and their pose keypoints in a frame.  Implementations
// must be safe for concurrent use and must not keep the frame image beyond
// the call.
type Detector interface {
	Detect(ctx context.Context, frame video.Frame) ([]pose.Detection, error)
}

// DetectorFunc adapts a function to the Detector interface
type DetectorFunc func(ctx context.Context, frame video.Frame) ([]pose.Detection, error)

// Detect calls f(ctx, frame)
func (f DetectorFunc) Detect(ctx context.Context, frame video.Frame) ([]pose.Detection, error) {
	return f(ctx, frame)
}

// DetectorError is a detector failure on a single frame
type DetectorError struct {
	Frame int
	Err   error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector failed on frame %d: %v", e.Frame, e.Err)
}

func (e *DetectorError) Unwrap() error {
	return e.Err
}
