package behavior

import (
	"fmt"
	"math"
	"sort"

	"github.com/swdee/go-fightdetect/pose"
	"github.com/swdee/go-fightdetect/tracker"
)

// Config holds the window policy
type Config struct {
	// WindowSize is the maximum number of samples kept per track and per pair
	WindowSize int
	// MinObservations is the number of samples needed before a track's
	// features can be evaluated
	MinObservations int
	// KeyPointMinScore is the keypoint score below which a keypoint is
	// ignored for motion measurement
	KeyPointMinScore float32
}

// DefaultConfig returns the default window policy
func DefaultConfig() Config {
	return Config{
		WindowSize:       15,
		MinObservations:  5,
		KeyPointMinScore: 0.3,
	}
}

// Validate checks the policy is consistent
func (c Config) Validate() error {
	switch {
	case c.MinObservations < 2:
		return fmt.Errorf("min observations must be at least 2, got %d", c.MinObservations)
	case c.WindowSize < c.MinObservations:
		return fmt.Errorf("window size %d smaller than min observations %d", c.WindowSize, c.MinObservations)
	case c.KeyPointMinScore < 0 || c.KeyPointMinScore > 1:
		return fmt.Errorf("keypoint min score %.2f outside [0,1]", c.KeyPointMinScore)
	}
	return nil
}

// Features are the derived motion features of a single track
type Features struct {
	TrackID int
	// Frame the features were last updated on
	Frame int
	// Observations is the number of samples in the window
	Observations int
	// Evaluable is false until the window holds MinObservations samples with
	// measurable motion.  The scalar features are meaningless until then.
	Evaluable bool
	// Intensity is the mean keypoint displacement per frame relative to the
	// box height
	Intensity float64
	// LimbSwing is the mean wrist and ankle displacement relative to the
	// torso per frame, relative to the box height
	LimbSwing float64
	// Motion is the larger of Intensity and LimbSwing
	Motion float64
	Center pose.Point
	Height float32
}

// PairKey identifies an unordered pair of tracks, A is always the lower id
type PairKey struct {
	A, B int
}

// NewPairKey returns the key for tracks a and b in either order
func NewPairKey(a, b int) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// Has reports whether the pair includes the track id
func (k PairKey) Has(id int) bool {
	return k.A == id || k.B == id
}

// String returns the pair as "a,b"
func (k PairKey) String() string {
	return fmt.Sprintf("%d,%d", k.A, k.B)
}

// PairFeatures are the interaction features between two co-present tracks
type PairFeatures struct {
	Key   PairKey
	Frame int
	// Evaluable is true when both tracks are evaluable.  Motion and
	// ClosingSpeed are unreliable otherwise.
	Evaluable bool
	// Distance between box centers divided by the mean box height
	Distance float64
	// ClosingSpeed is the mean decrease of Distance per frame over the pair
	// window
	ClosingSpeed float64
	// Motion is the larger motion of the two tracks
	Motion float64
	A, B   Features
}

// Aggregator keeps rolling windows of pose history per track and per pair of
// tracks.  It is not safe for concurrent use.
type Aggregator struct {
	cfg    Config
	tracks map[int]*window
	pairs  map[PairKey]*pairWindow
}

// NewAggregator returns an Aggregator using the given policy
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{
		cfg:    cfg,
		tracks: make(map[int]*window),
		pairs:  make(map[PairKey]*pairWindow),
	}
}

// Observe appends the snapshot of a track matched in frame to its window and
// returns the recomputed features.  Snapshots not matched in frame, or already
// observed for frame, leave the window unchanged.
func (a *Aggregator) Observe(snap tracker.Snapshot, frame int) Features {

	w, ok := a.tracks[snap.ID]

	if !snap.Matched(frame) {
		if ok {
			return w.features
		}
		return Features{TrackID: snap.ID}
	}

	if !ok {
		w = &window{features: Features{TrackID: snap.ID}}
		a.tracks[snap.ID] = w
	}

	if n := len(w.samples); n > 0 && w.samples[n-1].frame >= frame {
		return w.features
	}

	cur := sample{
		frame:        frame,
		box:          snap.Box,
		keyPoints:    pose.CloneKeyPoints(snap.KeyPoints),
		displacement: math.NaN(),
		swing:        math.NaN(),
	}

	if n := len(w.samples); n > 0 {
		prev := w.samples[n-1]
		cur.displacement = displacement(prev, cur, a.cfg.KeyPointMinScore)
		cur.swing = limbSwing(prev, cur, a.cfg.KeyPointMinScore)
	}

	w.samples = append(w.samples, cur)

	if len(w.samples) > a.cfg.WindowSize {
		w.samples = w.samples[len(w.samples)-a.cfg.WindowSize:]
	}

	a.recompute(w, frame)

	return w.features
}

// recompute derives the track features from its window
func (a *Aggregator) recompute(w *window, frame int) {

	// the oldest sample's movement refers to an evicted predecessor
	disp := make([]float64, 0, len(w.samples))
	swing := make([]float64, 0, len(w.samples))

	for _, s := range w.samples[1:] {
		disp = append(disp, s.displacement)
		swing = append(swing, s.swing)
	}

	intensity, okI := meanValid(disp)
	limb, okL := meanValid(swing)

	last := w.samples[len(w.samples)-1]

	f := &w.features
	f.Frame = frame
	f.Observations = len(w.samples)
	f.Intensity = intensity
	f.LimbSwing = limb
	f.Motion = math.Max(intensity, limb)
	f.Evaluable = len(w.samples) >= a.cfg.MinObservations && (okI || okL)
	f.Center = last.box.Center()
	f.Height = last.box.Height()
}

// Features returns the current features of a track
func (a *Aggregator) Features(id int) (Features, bool) {
	w, ok := a.tracks[id]
	if !ok {
		return Features{}, false
	}
	return w.features, true
}

// Pairs returns the features of every pair of tracks that were both observed
// in frame, ordered by pair key.  Pairs with a track that is not yet
// evaluable are returned with Evaluable false.
func (a *Aggregator) Pairs(frame int) []PairFeatures {

	var present []*window

	for _, w := range a.tracks {
		if w.features.Frame == frame && len(w.samples) > 0 &&
			w.samples[len(w.samples)-1].frame == frame {
			present = append(present, w)
		}
	}

	sort.Slice(present, func(i, j int) bool {
		return present[i].features.TrackID < present[j].features.TrackID
	})

	var out []PairFeatures

	for i := 0; i < len(present); i++ {
		for j := i + 1; j < len(present); j++ {

			fa, fb := present[i].features, present[j].features
			key := NewPairKey(fa.TrackID, fb.TrackID)
			d := pairDistance(&fa, &fb)

			pw, ok := a.pairs[key]
			if !ok {
				pw = &pairWindow{}
				a.pairs[key] = pw
			}

			if n := len(pw.samples); n == 0 || pw.samples[n-1].frame < frame {
				pw.samples = append(pw.samples, pairSample{frame: frame, distance: d})

				if len(pw.samples) > a.cfg.WindowSize {
					pw.samples = pw.samples[len(pw.samples)-a.cfg.WindowSize:]
				}
			}

			out = append(out, PairFeatures{
				Key:          key,
				Frame:        frame,
				Evaluable:    fa.Evaluable && fb.Evaluable,
				Distance:     d,
				ClosingSpeed: pw.closingSpeed(),
				Motion:       math.Max(fa.Motion, fb.Motion),
				A:            fa,
				B:            fb,
			})
		}
	}

	return out
}

// pairDistance returns the distance between two track centers divided by
// their mean height
func pairDistance(a, b *Features) float64 {

	h := float64(a.Height+b.Height) / 2

	if h <= 0 {
		return math.Inf(1)
	}

	return dist(a.Center, b.Center) / h
}

// Forget drops the window of a track and of every pair it belongs to
func (a *Aggregator) Forget(id int) {

	delete(a.tracks, id)

	for key := range a.pairs {
		if key.Has(id) {
			delete(a.pairs, key)
		}
	}
}

// Len returns the number of tracks with a window
func (a *Aggregator) Len() int {
	return len(a.tracks)
}
