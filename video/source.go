package video

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"gocv.io/x/gocv"
)

// defaultFPS is assumed when the container does not report a frame rate
const defaultFPS = 25.0

// Source reads frames in order from a video file
type Source struct {
	path    string
	capture *gocv.VideoCapture
	fps     float64
	size    image.Point
	// index of the last frame returned
	index int
	// first holds the frame read by Open to prove the stream decodes
	first *Frame
}

// Open opens the video file at path and reads its first frame.  Failures
// are returned as *DecodeError.
func Open(path string) (*Source, error) {

	if _, err := os.Stat(path); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	capture, err := gocv.VideoCaptureFile(path)

	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, &DecodeError{Path: path, Err: errors.New("no decoder could open the file")}
	}

	s := &Source{
		path:    path,
		capture: capture,
		fps:     capture.Get(gocv.VideoCaptureFPS),
	}

	if s.fps <= 0 || s.fps > 1000 {
		s.fps = defaultFPS
	}

	first, err := s.read()

	if err != nil {
		s.Close()

		if errors.Is(err, io.EOF) {
			err = errors.New("stream has no decodable frame")
		}

		return nil, &DecodeError{Path: path, Err: err}
	}

	s.first = &first
	s.size = image.Pt(first.Image.Cols(), first.Image.Rows())

	return s, nil
}

// read decodes the next non empty frame
func (s *Source) read() (Frame, error) {

	if s.capture == nil {
		return Frame{}, fmt.Errorf("video %s is closed", s.path)
	}

	for {
		img := gocv.NewMat()

		if ok := s.capture.Read(&img); !ok {
			img.Close()
			return Frame{}, io.EOF
		}

		// skip frames the decoder could not fill
		if img.Empty() {
			img.Close()
			continue
		}

		s.index++

		ts := time.Duration(s.capture.Get(gocv.VideoCapturePosMsec) * float64(time.Millisecond))

		if ts <= 0 {
			ts = time.Duration(float64(s.index-1) / s.fps * float64(time.Second))
		}

		return Frame{Index: s.index, Timestamp: ts, Image: img}, nil
	}
}

// Next returns the next frame, or io.EOF once the stream is exhausted.  The
// caller owns the returned frame and must Close it.
func (s *Source) Next() (Frame, error) {

	if s.first != nil {
		f := *s.first
		s.first = nil
		return f, nil
	}

	return s.read()
}

// FPS returns the frame rate of the stream
func (s *Source) FPS() float64 {
	return s.fps
}

// Size returns the width and height of the frames
func (s *Source) Size() image.Point {
	return s.size
}

// Path returns the file the source reads from
func (s *Source) Path() string {
	return s.path
}

// Close releases the decoder.  It is safe to call more than once.
func (s *Source) Close() error {

	if s.first != nil {
		s.first.Close()
		s.first = nil
	}

	if s.capture == nil {
		return nil
	}

	err := s.capture.Close()
	s.capture = nil

	return err
}
