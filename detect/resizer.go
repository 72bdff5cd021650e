package detect

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// letterboxColor is the padding color YOLO models are trained with
var letterboxColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Resizer scales images to the model input size whilst maintaining aspect
// ratio, and maps model coordinates back to the source image
type Resizer struct {
	srcWidth   int
	srcHeight  int
	destWidth  int
	destHeight int
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer for scaling images of the source size to the
// destination size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
	}

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2
	r.xPad = (r.destWidth - r.resizeW) / 2

	return r
}

// LetterBox resizes src into dest with constant color padding
func (r *Resizer) LetterBox(src gocv.Mat, dest *gocv.Mat) {

	tmp := gocv.NewMat()
	defer tmp.Close()

	gocv.Resize(src, &tmp, image.Pt(r.resizeW, r.resizeH), 0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(tmp, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, letterboxColor)
}

// ToSource maps a point in model input coordinates to the source image,
// clamped to the image bounds
func (r *Resizer) ToSource(x, y float32) (float32, float32) {
	sx := (x - float32(r.xPad)) / r.scale
	sy := (y - float32(r.yPad)) / r.scale
	return clamp(sx, 0, float32(r.srcWidth)), clamp(sy, 0, float32(r.srcHeight))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
