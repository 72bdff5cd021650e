package tracker

import (
	"errors"
	"fmt"

	"github.com/swdee/go-fightdetect/pose"
)

// ErrFrameOrder is returned when Update is called with a frame index that does
// not increase
var ErrFrameOrder = errors.New("frame index must strictly increase")

// Config holds the tracking policy
type Config struct {
	// MinScore is the detection score below which detections are ignored
	MinScore float32
	// HighScore is the detection score from which a detection may start a
	// track.  Detections between MinScore and HighScore only extend
	// confirmed tracks.
	HighScore float32
	// MatchThreshold is the largest 1-IoU cost accepted for a match
	MatchThreshold float32
	// HitsToConfirm is the number of consecutive matches to confirm a track
	HitsToConfirm int
	// MissesToLost is the number of consecutive misses before a confirmed
	// track is considered lost
	MissesToLost int
	// MissesToTerminate is the number of consecutive misses before a track
	// is terminated
	MissesToTerminate int
	// TrailSize is the number of recent center points kept per track
	TrailSize int
	// UseKalman enables constant velocity motion prediction of boxes
	UseKalman bool
}

// DefaultConfig returns the default tracking policy
func DefaultConfig() Config {
	return Config{
		MinScore:          0.1,
		HighScore:         0.5,
		MatchThreshold:    0.8,
		HitsToConfirm:     3,
		MissesToLost:      5,
		MissesToTerminate: 30,
		TrailSize:         30,
		UseKalman:         true,
	}
}

// Validate checks the policy is consistent
func (c Config) Validate() error {
	switch {
	case c.MinScore < 0 || c.MinScore > 1:
		return fmt.Errorf("min score %.2f outside [0,1]", c.MinScore)
	case c.HighScore < c.MinScore || c.HighScore > 1:
		return fmt.Errorf("high score %.2f must be within [min score, 1]", c.HighScore)
	case c.MatchThreshold <= 0 || c.MatchThreshold >= 1:
		return fmt.Errorf("match threshold %.2f outside (0,1)", c.MatchThreshold)
	case c.HitsToConfirm < 1:
		return fmt.Errorf("hits to confirm must be at least 1, got %d", c.HitsToConfirm)
	case c.MissesToLost < 1:
		return fmt.Errorf("misses to lost must be at least 1, got %d", c.MissesToLost)
	case c.MissesToTerminate <= c.MissesToLost:
		return fmt.Errorf("misses to terminate (%d) must exceed misses to lost (%d)",
			c.MissesToTerminate, c.MissesToLost)
	case c.TrailSize < 1:
		return fmt.Errorf("trail size must be at least 1, got %d", c.TrailSize)
	}
	return nil
}

// Tracker assigns persistent identities to detections across frames.  It is
// not safe for concurrent use.
type Tracker struct {
	cfg Config
	// frame is the index of the last processed frame
	frame int
	// nextID is the last track id handed out
	nextID int
	// tracks are live tracks in ascending id order
	tracks []*track
}

// New returns a Tracker using the given policy
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Tracks returns the number of tracks created so far
func (t *Tracker) Tracks() int {
	return t.nextID
}

// Update associates the detections of a frame with the live tracks and
// returns a snapshot of every track touched by the frame.  Terminated tracks
// are returned once and then dropped.
func (t *Tracker) Update(dets []pose.Detection, frame int) ([]Snapshot, error) {

	if frame <= t.frame {
		return nil, fmt.Errorf("%w: frame %d after frame %d", ErrFrameOrder, frame, t.frame)
	}

	t.frame = frame

	// Step 1: split detections by score
	var high, low []pose.Detection

	for _, det := range dets {
		if det.Box.Width() <= 0 || det.Box.Height() <= 0 {
			continue
		}

		switch {
		case det.Score >= t.cfg.HighScore:
			high = append(high, det)
		case det.Score >= t.cfg.MinScore:
			low = append(low, det)
		}
	}

	// Step 2: predict and split tracks by state
	var active, lost []*track

	for _, tr := range t.tracks {
		tr.predict()

		if tr.state == Lost {
			lost = append(lost, tr)
		} else {
			active = append(active, tr)
		}
	}

	threshold := float64(t.cfg.MatchThreshold)

	// Step 3: first association, active tracks with high score detections
	matches, unmatchedActive, unmatchedHigh, err := linearAssignment(
		iouCost(active, rects(high)), len(active), len(high), threshold)

	if err != nil {
		return nil, fmt.Errorf("first association failed: %w", err)
	}

	for _, m := range matches {
		active[m[0]].hit(high[m[1]], frame, t.cfg)
	}

	// Step 4: second association, lost tracks with remaining high score
	// detections
	remaining := pick(high, unmatchedHigh)

	matches, unmatchedLost, unmatchedRemaining, err := linearAssignment(
		iouCost(lost, rects(remaining)), len(lost), len(remaining), threshold)

	if err != nil {
		return nil, fmt.Errorf("second association failed: %w", err)
	}

	for _, m := range matches {
		lost[m[0]].hit(remaining[m[1]], frame, t.cfg)
	}

	// Step 5: third association, confirmed tracks with low score detections
	var confirmed, missed []*track

	for _, idx := range unmatchedActive {
		if active[idx].state == Confirmed {
			confirmed = append(confirmed, active[idx])
		} else {
			missed = append(missed, active[idx])
		}
	}

	matches, unmatchedConfirmed, _, err := linearAssignment(
		iouCost(confirmed, rects(low)), len(confirmed), len(low), threshold)

	if err != nil {
		return nil, fmt.Errorf("third association failed: %w", err)
	}

	for _, m := range matches {
		confirmed[m[0]].hit(low[m[1]], frame, t.cfg)
	}

	// Step 6: unmatched tracks miss
	for _, idx := range unmatchedConfirmed {
		missed = append(missed, confirmed[idx])
	}

	for _, idx := range unmatchedLost {
		missed = append(missed, lost[idx])
	}

	for _, tr := range missed {
		tr.miss(t.cfg)
	}

	// Step 7: start new tracks from unmatched high score detections
	for _, idx := range unmatchedRemaining {
		t.nextID++
		t.tracks = append(t.tracks, newTrack(t.nextID, remaining[idx], frame, t.cfg))
	}

	// Step 8: report and evict terminated tracks
	out := make([]Snapshot, 0, len(t.tracks))
	live := t.tracks[:0]

	for _, tr := range t.tracks {
		out = append(out, tr.snapshot())

		if tr.state != Terminated {
			live = append(live, tr)
		}
	}

	// release evicted tail for garbage collection
	for i := len(live); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}

	t.tracks = live

	return out, nil
}

// rects converts detection boxes into Rects
func rects(dets []pose.Detection) []Rect {
	out := make([]Rect, len(dets))

	for i, d := range dets {
		out[i] = RectFromBox(d.Box)
	}

	return out
}

// pick returns the detections at the given indexes
func pick(dets []pose.Detection, idx []int) []pose.Detection {
	out := make([]pose.Detection, 0, len(idx))

	for _, i := range idx {
		out = append(out, dets[i])
	}

	return out
}
