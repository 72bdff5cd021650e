package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-fightdetect/tracker"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	// LineSame defines if the color of the trail line should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleSame defines if the color of the midpoint circle should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at CircleColor
	CircleSame   bool
	CircleColor  color.RGBA
	CircleRadius int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      false,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleSame:    true,
		CircleColor:   Pink,
		CircleRadius:  3,
	}
}

// Trail draws the center history of a track ending in a dot on its current
// position
func Trail(img *gocv.Mat, snap tracker.Snapshot, clr color.RGBA, style TrailStyle) {

	points := snap.Trail

	if len(points) < 2 {
		return
	}

	lineClr := clr
	circleClr := clr

	if !style.LineSame {
		lineClr = style.LineColor
	}

	if !style.CircleSame {
		circleClr = style.CircleColor
	}

	for i := 1; i < len(points); i++ {
		gocv.Line(img,
			image.Pt(int(points[i-1].X), int(points[i-1].Y)),
			image.Pt(int(points[i].X), int(points[i].Y)),
			lineClr, style.LineThickness,
		)
	}

	last := points[len(points)-1]
	gocv.Circle(img, image.Pt(int(last.X), int(last.Y)), style.CircleRadius, circleClr, -1)
}
