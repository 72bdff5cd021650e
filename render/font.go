package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// NewFace parses TTF or OTF font data into a face of the given point size
func NewFace(data []byte, size float64) (font.Face, error) {

	f, err := opentype.Parse(data)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return face, nil
}

// LoadFace reads a font file and returns a face of the given point size
func LoadFace(path string, size float64) (font.Face, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	return NewFace(data, size)
}

// putFaceText draws text with a font face into the rect region of img.  The
// text is rasterised on a transparent canvas the size of the region and
// added onto the image, so it brightens whatever is underneath.
func putFaceText(img *gocv.Mat, face font.Face, text string, rect image.Rectangle,
	clr color.RGBA) error {

	rect = rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if rect.Empty() {
		return nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(rgba, rgba.Bounds(), image.Transparent, image.Point{}, draw.Src)

	// vertically center the baseline within the region
	m := face.Metrics()
	baseline := (fixed.I(rect.Dy()) + m.Ascent - m.Descent) / 2

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(4), Y: baseline},
	}
	dr.DrawString(text)

	textMat, err := gocv.NewMatFromBytes(rect.Dy(), rect.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil {
		return fmt.Errorf("error creating Mat from RGBA: %w", err)
	}

	defer textMat.Close()

	gocv.CvtColor(textMat, &textMat, gocv.ColorRGBAToBGR)

	region := img.Region(rect)
	defer region.Close()

	gocv.AddWeighted(region, 1.0, textMat, 1.0, 0, &region)

	return nil
}
