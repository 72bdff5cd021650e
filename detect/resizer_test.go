package detect

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestLetterBox(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)
		resizer.LetterBox(img, &resizedImg)

		if resizer.xPad != tc.expectedXPad || resizer.yPad != tc.expectedYPad {
			t.Errorf("src (%d, %d): expected xPad=%d, yPad=%d, got xPad=%d, yPad=%d",
				tc.srcWidth, tc.srcHeight, tc.expectedXPad, tc.expectedYPad, resizer.xPad, resizer.yPad)
		}

		if resizer.scale != tc.expectedScale {
			t.Errorf("src (%d, %d): expected scale %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale, resizer.scale)
		}

		if resizedImg.Cols() != tc.resizeWidth || resizedImg.Rows() != tc.resizeHeight {
			t.Errorf("src (%d, %d): expected output %dx%d, got %dx%d",
				tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight, resizedImg.Cols(), resizedImg.Rows())
		}

		img.Close()
		resizedImg.Close()
	}
}

func TestResizerToSource(t *testing.T) {
	r := NewResizer(1280, 720, 640, 640)

	x, y := r.ToSource(320, 320)
	if x != 640 || y != 360 {
		t.Errorf("expected center (640, 360), got (%f, %f)", x, y)
	}

	// padding maps outside the image and is clamped
	x, y = r.ToSource(0, 10)
	if x != 0 || y != 0 {
		t.Errorf("expected clamped (0, 0), got (%f, %f)", x, y)
	}
}
