package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-fightdetect/pose"
)

// boxLabel is a label precalculated for drawing above a box
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// newBoxLabel calculates the placement of a text label on top of a box
func newBoxLabel(box pose.BoxRect, text string, clr color.RGBA, font Font,
	lineThickness int) boxLabel {

	left, top, right := int(box.Left), int(box.Top), int(box.Right)

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	// Calculate the alignment of text label
	var centerX int

	switch font.Alignment {
	case Center:
		centerX = (left + right) / 2

	case Right:
		centerX = right - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = left + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	// keep labels of boxes at the top edge inside the frame
	minTop := textSize.Y + font.TopPad + font.BottomPad
	if top < minTop {
		top = minTop
	}

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-font.LeftPad,
			top-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, top),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, top-font.BottomPad),
	}
}

// draw renders the label background and text
func (l boxLabel) draw(img *gocv.Mat, font Font) {
	gocv.Rectangle(img, l.rect, l.clr, -1)
	gocv.PutTextWithParams(img, l.text, l.textPos, font.Face, font.Scale,
		font.Color, font.Thickness, font.LineType, false)
}

// Box draws the outline of a box
func Box(img *gocv.Mat, box pose.BoxRect, clr color.RGBA, lineThickness int) {
	rect := image.Rect(int(box.Left), int(box.Top), int(box.Right), int(box.Bottom))
	gocv.Rectangle(img, rect, clr, lineThickness)
}
