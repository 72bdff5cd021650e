package behavior

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/swdee/go-fightdetect/pose"
)

// sample is one observation of a track
type sample struct {
	frame     int
	box       pose.BoxRect
	keyPoints []pose.KeyPoint
	// displacement is the normalised mean keypoint movement per frame since
	// the previous sample, NaN when it could not be measured
	displacement float64
	// swing is the normalised limb movement relative to the torso per frame
	// since the previous sample, NaN when it could not be measured
	swing float64
}

// window is the bounded history of a single track
type window struct {
	samples  []sample
	features Features
}

// pairSample is one observation of the distance between two tracks
type pairSample struct {
	frame    int
	distance float64
}

// pairWindow is the bounded history of a pair of tracks
type pairWindow struct {
	samples []pairSample
}

// dist returns the euclidean distance between two points
func dist(a, b pose.Point) float64 {
	return floats.Distance(
		[]float64{float64(a.X), float64(a.Y)},
		[]float64{float64(b.X), float64(b.Y)},
		2,
	)
}

// scale returns the normalisation length for movement between two samples
func scale(a, b pose.BoxRect) float64 {
	return float64(a.Height()+b.Height()) / 2
}

// displacement measures the mean movement of keypoints visible in both
// samples, normalised by box height and frame gap
func displacement(prev, cur sample, minScore float32) float64 {

	gap := float64(cur.frame - prev.frame)
	h := scale(prev.box, cur.box)

	if gap <= 0 || h <= 0 {
		return math.NaN()
	}

	var moves []float64

	for i := range cur.keyPoints {
		if i >= len(prev.keyPoints) {
			break
		}

		p, c := prev.keyPoints[i], cur.keyPoints[i]

		if p.Score < minScore || c.Score < minScore {
			continue
		}

		moves = append(moves, dist(p.Point(), c.Point()))
	}

	if len(moves) == 0 {
		return math.NaN()
	}

	return stat.Mean(moves, nil) / h / gap
}

// limbSwing measures the mean movement of wrists and ankles relative to the
// torso center, normalised by box height and frame gap
func limbSwing(prev, cur sample, minScore float32) float64 {

	gap := float64(cur.frame - prev.frame)
	h := scale(prev.box, cur.box)

	if gap <= 0 || h <= 0 {
		return math.NaN()
	}

	pt, ok := pose.Centroid(prev.keyPoints, pose.Torso, minScore)
	if !ok {
		return math.NaN()
	}

	ct, ok := pose.Centroid(cur.keyPoints, pose.Torso, minScore)
	if !ok {
		return math.NaN()
	}

	var moves []float64

	for _, idx := range pose.Limbs {
		if idx >= len(prev.keyPoints) || idx >= len(cur.keyPoints) {
			continue
		}

		p, c := prev.keyPoints[idx], cur.keyPoints[idx]

		if p.Score < minScore || c.Score < minScore {
			continue
		}

		rp := pose.Point{X: p.X - pt.X, Y: p.Y - pt.Y}
		rc := pose.Point{X: c.X - ct.X, Y: c.Y - ct.Y}

		moves = append(moves, dist(rp, rc))
	}

	if len(moves) == 0 {
		return math.NaN()
	}

	return stat.Mean(moves, nil) / h / gap
}

// meanValid returns the mean of the non NaN values and whether there were any
func meanValid(values []float64) (float64, bool) {

	valid := make([]float64, 0, len(values))

	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}

	if len(valid) == 0 {
		return 0, false
	}

	return stat.Mean(valid, nil), true
}

// closingSpeed returns the mean decrease in distance per frame over the pair
// history, positive when the tracks approach each other
func (pw *pairWindow) closingSpeed() float64 {

	if len(pw.samples) < 2 {
		return 0
	}

	speeds := make([]float64, 0, len(pw.samples)-1)

	for i := 1; i < len(pw.samples); i++ {
		prev, cur := pw.samples[i-1], pw.samples[i]
		gap := float64(cur.frame - prev.frame)
		speeds = append(speeds, (prev.distance-cur.distance)/gap)
	}

	return stat.Mean(speeds, nil)
}
