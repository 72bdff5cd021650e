package video

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// DefaultCodec is the FourCC used for annotated mp4 output
const DefaultCodec = "mp4v"

// Encoder writes frames to a video file.  The file is created on the first
// frame, so an encoder that never receives a frame leaves nothing on disk.
type Encoder struct {
	path   string
	codec  string
	fps    float64
	size   image.Point
	writer *gocv.VideoWriter
	frames int
	closed bool
}

// CreateEncoder returns an Encoder writing to path with the given FourCC
// codec, frame rate and frame size
func CreateEncoder(path, codec string, fps float64, size image.Point) (*Encoder, error) {

	if len(codec) != 4 {
		return nil, fmt.Errorf("codec %q is not a FourCC code", codec)
	}

	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid frame size %v", size)
	}

	if fps <= 0 {
		fps = defaultFPS
	}

	return &Encoder{
		path:  path,
		codec: codec,
		fps:   fps,
		size:  size,
	}, nil
}

// Path returns the output file
func (e *Encoder) Path() string {
	return e.path
}

// Frames returns the number of frames written
func (e *Encoder) Frames() int {
	return e.frames
}

// Write appends a frame.  Frames of a different size are resized.
func (e *Encoder) Write(img gocv.Mat) error {

	if e.closed {
		return errors.New("encoder is closed")
	}

	if img.Empty() {
		return errors.New("cannot encode empty frame")
	}

	if e.writer == nil {
		w, err := gocv.VideoWriterFile(e.path, e.codec, e.fps, e.size.X, e.size.Y, true)

		if err != nil {
			return fmt.Errorf("failed to create video %s: %w", e.path, err)
		}

		if !w.IsOpened() {
			w.Close()
			os.Remove(e.path)
			return fmt.Errorf("no encoder for codec %s could open %s", e.codec, e.path)
		}

		e.writer = w
	}

	if img.Cols() != e.size.X || img.Rows() != e.size.Y {
		resized := gocv.NewMat()
		defer resized.Close()

		gocv.Resize(img, &resized, e.size, 0, 0, gocv.InterpolationLinear)
		img = resized
	}

	if err := e.writer.Write(img); err != nil {
		return fmt.Errorf("failed to write frame to %s: %w", e.path, err)
	}

	e.frames++

	return nil
}

// Close finalises the video file.  If no frame was written the file is
// removed.  It is safe to call more than once.
func (e *Encoder) Close() error {

	if e.closed {
		return nil
	}

	e.closed = true

	if e.writer == nil {
		return nil
	}

	err := e.writer.Close()
	e.writer = nil

	if e.frames == 0 {
		if rmErr := os.Remove(e.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return errors.Join(err, rmErr)
		}
	}

	return err
}

// Discard closes the encoder and removes the output file regardless of how
// many frames were written
func (e *Encoder) Discard() error {

	err := e.Close()

	if rmErr := os.Remove(e.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return errors.Join(err, rmErr)
	}

	return err
}
