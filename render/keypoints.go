package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-fightdetect/pose"
)

// limbColor returns the color of the skeleton line at index i of
// pose.Skeleton
func limbColor(i int) color.RGBA {
	switch {
	case i < 5:
		return posePalette[2]
	case i < 8:
		return posePalette[1]
	case i < 12:
		return posePalette[0]
	}
	return posePalette[3]
}

// jointColor returns the color of the keypoint circle for a COCO index
func jointColor(idx int) color.RGBA {
	switch {
	case idx <= pose.RightEar:
		return posePalette[3]
	case idx <= pose.RightWrist:
		return posePalette[0]
	}
	return posePalette[2]
}

// Skeleton renders the keypoints of a single pose, keypoints with a score
// below minScore are left out along with the lines that join them
func Skeleton(img *gocv.Mat, kps []pose.KeyPoint, minScore float32,
	lineThickness int) {

	visible := func(i int) bool {
		return i < len(kps) && kps[i].Score >= minScore
	}

	for j, pair := range pose.Skeleton {
		if !visible(pair[0]) || !visible(pair[1]) {
			continue
		}

		a, b := kps[pair[0]], kps[pair[1]]

		gocv.Line(img, image.Pt(int(a.X), int(a.Y)), image.Pt(int(b.X), int(b.Y)),
			limbColor(j), lineThickness)
	}

	for j := range kps {
		if !visible(j) {
			continue
		}

		gocv.Circle(img, image.Pt(int(kps[j].X), int(kps[j].Y)), 3, jointColor(j), -1)
	}
}
