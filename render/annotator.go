package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"

	"github.com/swdee/go-fightdetect/behavior"
	"github.com/swdee/go-fightdetect/classify"
	"github.com/swdee/go-fightdetect/tracker"
	"github.com/swdee/go-fightdetect/video"
)

// Options are the drawing settings of an Annotator
type Options struct {
	// Font is used for box labels, and for the banner when BannerFace is nil
	Font          Font
	LineThickness int
	Trail         TrailStyle
	// KeyPointMinScore hides keypoints scored below it
	KeyPointMinScore float32
	// BannerFace is an optional TTF face for the status banner
	BannerFace   font.Face
	BannerHeight int
}

// DefaultOptions returns the default drawing settings
func DefaultOptions() Options {
	return Options{
		Font:             DefaultFont(),
		LineThickness:    2,
		Trail:            DefaultTrailStyle(),
		KeyPointMinScore: 0.3,
		BannerHeight:     30,
	}
}

// Annotator draws tracks and fight verdicts onto frames
type Annotator struct {
	opts Options
}

// NewAnnotator returns an Annotator using the given settings
func NewAnnotator(opts Options) *Annotator {

	if opts.LineThickness < 1 {
		opts.LineThickness = 1
	}

	if opts.BannerHeight < 1 {
		opts.BannerHeight = DefaultOptions().BannerHeight
	}

	return &Annotator{opts: opts}
}

// Annotate returns a copy of the frame image with confirmed tracks, their
// skeletons and trails, links between fighting pairs and a status banner
// drawn on it.  The caller owns the returned Mat.
func (a *Annotator) Annotate(frame video.Frame, tracks []tracker.Snapshot,
	verdicts []classify.Verdict) gocv.Mat {

	img := frame.Image.Clone()

	if img.Empty() {
		return img
	}

	fighting := make(map[int]bool)
	var fights []classify.Verdict

	for _, v := range verdicts {
		if v.Label == classify.Fight {
			fighting[v.Pair.A] = true
			fighting[v.Pair.B] = true
			fights = append(fights, v)
		}
	}

	byID := make(map[int]tracker.Snapshot, len(tracks))
	labels := make([]boxLabel, 0, len(tracks))

	for _, snap := range tracks {

		if snap.State != tracker.Confirmed {
			continue
		}

		byID[snap.ID] = snap

		clr := trackColor(snap.ID)
		text := fmt.Sprintf("#%d", snap.ID)

		if fighting[snap.ID] {
			clr = Red
			text += " fight"
		}

		Trail(&img, snap, clr, a.opts.Trail)
		Box(&img, snap.Box, clr, a.opts.LineThickness)

		if snap.Matched(frame.Index) {
			Skeleton(&img, snap.KeyPoints, a.opts.KeyPointMinScore, a.opts.LineThickness)
		}

		labels = append(labels, newBoxLabel(snap.Box, text, clr, a.opts.Font,
			a.opts.LineThickness))
	}

	for _, v := range fights {
		a.link(&img, v, byID)
	}

	// labels are the top most layer so skeleton lines don't cover them
	for _, l := range labels {
		l.draw(&img, a.opts.Font)
	}

	a.banner(&img, frame, fights)

	return img
}

// link draws a line between the centers of a fighting pair with the verdict
// confidence at its midpoint
func (a *Annotator) link(img *gocv.Mat, v classify.Verdict,
	byID map[int]tracker.Snapshot) {

	sa, okA := byID[v.Pair.A]
	sb, okB := byID[v.Pair.B]

	if !okA || !okB {
		return
	}

	ca, cb := sa.Box.Center(), sb.Box.Center()
	pa := image.Pt(int(ca.X), int(ca.Y))
	pb := image.Pt(int(cb.X), int(cb.Y))

	gocv.Line(img, pa, pb, Red, a.opts.LineThickness+1)

	mid := image.Pt((pa.X+pb.X)/2, (pa.Y+pb.Y)/2)
	text := fmt.Sprintf("%.2f", v.Confidence)

	gocv.PutTextWithParams(img, text, mid, a.opts.Font.Face, a.opts.Font.Scale,
		Red, a.opts.Font.Thickness+1, a.opts.Font.LineType, false)
}

// banner draws the frame position and fight status across the top of the
// image
func (a *Annotator) banner(img *gocv.Mat, frame video.Frame,
	fights []classify.Verdict) {

	rect := image.Rect(0, 0, img.Cols(), a.opts.BannerHeight)
	gocv.Rectangle(img, rect, Black, -1)

	text, clr := bannerText(frame, fights)

	if a.opts.BannerFace != nil {
		if err := putFaceText(img, a.opts.BannerFace, text, rect, clr); err == nil {
			return
		}
	}

	f := a.opts.Font
	size := gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
	y := (a.opts.BannerHeight + size.Y) / 2

	gocv.PutTextWithParams(img, text, image.Pt(f.LeftPad, y), f.Face, f.Scale,
		clr, f.Thickness, f.LineType, false)
}

// bannerText returns the status line for a frame and its color
func bannerText(frame video.Frame, fights []classify.Verdict) (string, color.RGBA) {

	status := "no fight"
	clr := White

	if len(fights) > 0 {
		pairs := make([]string, 0, len(fights))
		for _, v := range fights {
			pairs = append(pairs, pairName(v.Pair))
		}
		status = "FIGHT " + strings.Join(pairs, " ")
		clr = Red
	}

	return fmt.Sprintf("frame %d  %s  %s", frame.Index, clock(frame.Timestamp), status), clr
}

func pairName(k behavior.PairKey) string {
	return fmt.Sprintf("#%d-#%d", k.A, k.B)
}

// clock formats a stream position as mm:ss.mmm
func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}

// Close releases the banner face
func (a *Annotator) Close() error {
	if a.opts.BannerFace != nil {
		return a.opts.BannerFace.Close()
	}
	return nil
}
