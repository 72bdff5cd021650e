package tracker

import (
	"math"

	"github.com/swdee/go-fightdetect/pose"
)

// Xyah (center x, center y, aspect ratio, height) is the measurement space
// of the Kalman filter
type Xyah [4]float64

// Rect represents a rectangle in Tlwh (top, left, width, height) format
type Rect struct {
	X, Y, W, H float32
}

// RectFromBox converts a detection box into a Rect
func RectFromBox(b pose.BoxRect) Rect {
	return Rect{X: b.Left, Y: b.Top, W: b.Width(), H: b.Height()}
}

// RectFromXyah creates a Rect from Xyah (center x, center y, aspect ratio,
// height) format
func RectFromXyah(xyah Xyah) Rect {
	width := xyah[2] * xyah[3]
	return Rect{
		X: float32(xyah[0] - width/2),
		Y: float32(xyah[1] - xyah[3]/2),
		W: float32(width),
		H: float32(xyah[3]),
	}
}

// Box returns the rectangle as a pose.BoxRect
func (r Rect) Box() pose.BoxRect {
	return pose.NewBoxRect(r.X, r.Y, r.W, r.H)
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() float32 {
	return r.X + r.W
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() float32 {
	return r.Y + r.H
}

// Xyah converts the rectangle to Xyah format
func (r Rect) Xyah() Xyah {
	return Xyah{
		float64(r.X + r.W/2),
		float64(r.Y + r.H/2),
		float64(r.W / r.H),
		float64(r.H),
	}
}

// IoU calculates the Intersection over Union with another rectangle using
// inclusive pixel dimensions
func (r Rect) IoU(other Rect) float32 {

	iw := float32(math.Min(float64(r.BRX()), float64(other.BRX())) -
		math.Max(float64(r.X), float64(other.X)) + 1)

	if iw <= 0 {
		return 0
	}

	ih := float32(math.Min(float64(r.BRY()), float64(other.BRY())) -
		math.Max(float64(r.Y), float64(other.Y)) + 1)

	if ih <= 0 {
		return 0
	}

	ua := (r.W+1)*(r.H+1) + (other.W+1)*(other.H+1) - iw*ih

	return iw * ih / ua
}
