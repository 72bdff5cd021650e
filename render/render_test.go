package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/swdee/go-fightdetect/behavior"
	"github.com/swdee/go-fightdetect/classify"
	"github.com/swdee/go-fightdetect/pose"
	"github.com/swdee/go-fightdetect/tracker"
	"github.com/swdee/go-fightdetect/video"
)

func snapshot(id int, x, y float32, frame int) tracker.Snapshot {
	kps := make([]pose.KeyPoint, pose.KeyPointsTotal)
	for i := range kps {
		kps[i] = pose.KeyPoint{X: x + 20, Y: y + float32(i)*5, Score: 0.9}
	}
	box := pose.NewBoxRect(x, y, 40, 100)
	return tracker.Snapshot{
		ID:         id,
		State:      tracker.Confirmed,
		Box:        box,
		KeyPoints:  kps,
		Score:      0.9,
		FirstFrame: 1,
		LastFrame:  frame,
		Trail:      []pose.Point{{X: x + 10, Y: y + 50}, box.Center()},
	}
}

func nonZero(t *testing.T, img gocv.Mat, rows int) int {
	t.Helper()
	data := img.ToBytes()
	n := 0
	limit := rows * img.Cols() * img.Channels()
	if limit > len(data) {
		limit = len(data)
	}
	for _, b := range data[:limit] {
		if b != 0 {
			n++
		}
	}
	return n
}

func TestAnnotateLeavesInputUntouched(t *testing.T) {
	img := gocv.Zeros(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	frame := video.Frame{Index: 7, Timestamp: 280 * time.Millisecond, Image: img}
	tracks := []tracker.Snapshot{snapshot(1, 60, 80, 7), snapshot(2, 120, 80, 7)}
	verdicts := []classify.Verdict{{
		Frame:      7,
		Pair:       behavior.NewPairKey(1, 2),
		Label:      classify.Fight,
		Confidence: 0.8,
	}}

	a := NewAnnotator(DefaultOptions())
	defer a.Close()

	out := a.Annotate(frame, tracks, verdicts)
	defer out.Close()

	require.False(t, out.Empty())
	assert.Equal(t, img.Rows(), out.Rows())
	assert.Equal(t, img.Cols(), out.Cols())
	assert.Positive(t, nonZero(t, out, out.Rows()))
	assert.Zero(t, nonZero(t, img, img.Rows()), "input frame was drawn on")
	assert.Equal(t, 2, len(tracks[0].Trail))
}

func TestAnnotateEmptyFrame(t *testing.T) {
	a := NewAnnotator(DefaultOptions())

	empty := gocv.NewMat()
	defer empty.Close()

	out := a.Annotate(video.Frame{Index: 1, Image: empty}, nil, nil)
	defer out.Close()

	assert.True(t, out.Empty())
}

func TestBannerWithFace(t *testing.T) {
	face, err := NewFace(goregular.TTF, 18)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.BannerFace = face
	a := NewAnnotator(opts)
	defer a.Close()

	img := gocv.Zeros(120, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	out := a.Annotate(video.Frame{Index: 1, Image: img}, nil, nil)
	defer out.Close()

	assert.Positive(t, nonZero(t, out, opts.BannerHeight))
}

func TestBannerText(t *testing.T) {
	frame := video.Frame{Index: 1510, Timestamp: 61*time.Second + 40*time.Millisecond}

	text, clr := bannerText(frame, nil)
	assert.Equal(t, "frame 1510  01:01.040  no fight", text)
	assert.Equal(t, White, clr)

	text, clr = bannerText(frame, []classify.Verdict{
		{Pair: behavior.NewPairKey(2, 1), Label: classify.Fight},
		{Pair: behavior.NewPairKey(3, 5), Label: classify.Fight},
	})
	assert.Equal(t, "frame 1510  01:01.040  FIGHT #1-#2 #3-#5", text)
	assert.Equal(t, Red, clr)
}

func TestFaceErrors(t *testing.T) {
	_, err := NewFace([]byte("not a font"), 12)
	assert.Error(t, err)

	_, err = LoadFace("does-not-exist.ttf", 12)
	assert.Error(t, err)
}

func TestTrackColor(t *testing.T) {
	assert.Equal(t, trackColor(3), trackColor(3+len(trackColors)))
	assert.Equal(t, trackColor(-3), trackColor(3))

	for id := 0; id < len(trackColors); id++ {
		assert.NotEqual(t, Red, trackColor(id))
	}
}
