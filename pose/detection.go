package pose

// BoxRect are the dimensions of the bounding box of a detected person in
// source frame pixel coordinates
type BoxRect struct {
	Left   float32
	Top    float32
	Right  float32
	Bottom float32
}

// NewBoxRect creates a BoxRect from top left coordinates and dimensions
func NewBoxRect(x, y, width, height float32) BoxRect {
	return BoxRect{
		Left:   x,
		Top:    y,
		Right:  x + width,
		Bottom: y + height,
	}
}

// Width returns the width of the box
func (b BoxRect) Width() float32 {
	return b.Right - b.Left
}

// Height returns the height of the box
func (b BoxRect) Height() float32 {
	return b.Bottom - b.Top
}

// Center returns the center point of the box
func (b BoxRect) Center() Point {
	return Point{
		X: b.Left + b.Width()/2,
		Y: b.Top + b.Height()/2,
	}
}

// Point is a 2D position in frame pixel coordinates
type Point struct {
	X, Y float32
}

// KeyPoint is a single body keypoint of a pose
type KeyPoint struct {
	X     float32
	Y     float32
	Score float32
}

// Point returns the keypoint position
func (k KeyPoint) Point() Point {
	return Point{X: k.X, Y: k.Y}
}

// Detection defines the attributes of a single person detected in a frame
// by the pose model
type Detection struct {
	// ID is a unique ID assigned to the detection result
	ID int64
	// Box are the bounding box dimensions of the person
	Box BoxRect
	// Score is the confidence score of the person detected
	Score float32
	// KeyPoints are the body keypoints in COCO order
	KeyPoints []KeyPoint
}

// Clone returns a deep copy of the detection
func (d Detection) Clone() Detection {
	c := d
	c.KeyPoints = CloneKeyPoints(d.KeyPoints)
	return c
}

// CloneKeyPoints returns a copy of the keypoint slice
func CloneKeyPoints(kps []KeyPoint) []KeyPoint {
	if kps == nil {
		return nil
	}

	out := make([]KeyPoint, len(kps))
	copy(out, kps)
	return out
}
