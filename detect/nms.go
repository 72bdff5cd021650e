package detect

import (
	"math"
	"sort"

	"github.com/swdee/go-fightdetect/pose"
)

// nms applies Non-Maximum Suppression, returning candidates ordered by
// descending score with any box overlapping a higher scoring box by more
// than threshold removed
func nms(cands []pose.Detection, threshold float32) []pose.Detection {

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Score > cands[j].Score
	})

	keep := make([]pose.Detection, 0, len(cands))

next:
	for _, c := range cands {
		for _, k := range keep {
			if calculateOverlap(k.Box, c.Box) > threshold {
				continue next
			}
		}
		keep = append(keep, c)
	}

	return keep
}

// calculateOverlap works out the Intersection over Union (IoU) of two boxes
// using inclusive pixel dimensions
func calculateOverlap(a, b pose.BoxRect) float32 {

	w := math.Max(0, math.Min(float64(a.Right), float64(b.Right))-math.Max(float64(a.Left), float64(b.Left))+1)
	h := math.Max(0, math.Min(float64(a.Bottom), float64(b.Bottom))-math.Max(float64(a.Top), float64(b.Top))+1)
	intersection := float32(w * h)

	area0 := (a.Right - a.Left + 1) * (a.Bottom - a.Top + 1)
	area1 := (b.Right - b.Left + 1) * (b.Bottom - b.Top + 1)

	union := area0 + area1 - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}
