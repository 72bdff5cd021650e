package tracker

import (
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-fightdetect/pose"
)

// State represents the lifecycle state of a track
type State int

const (
	// Tentative tracks have not yet been matched enough frames to be trusted
	Tentative State = iota
	// Confirmed tracks are matched and reported for behaviour analysis
	Confirmed
	// Lost tracks have missed several frames but may still be recovered
	Lost
	// Terminated tracks are reported once and then dropped
	Terminated
)

// String returns the lower case name of the state
func (s State) String() string {
	switch s {
	case Tentative:
		return "tentative"
	case Confirmed:
		return "confirmed"
	case Lost:
		return "lost"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Snapshot is an immutable copy of a track as it was at the end of a frame
type Snapshot struct {
	ID    int
	State State
	// Box is the last matched detection box
	Box pose.BoxRect
	// KeyPoints of the last matched detection
	KeyPoints []pose.KeyPoint
	Score     float32
	// Age is the number of frames since the track was created
	Age int
	// Hits is the number of consecutive matched frames
	Hits int
	// Misses is the number of consecutive frames without a match
	Misses     int
	FirstFrame int
	LastFrame  int
	// Trail of recent box centers, oldest first
	Trail []pose.Point
}

// Matched reports whether the track was matched to a detection in the given
// frame
func (s Snapshot) Matched(frame int) bool {
	return s.LastFrame == frame
}

// track is the mutable state of a single tracked person
type track struct {
	id         int
	state      State
	box        pose.BoxRect
	keyPoints  []pose.KeyPoint
	score      float32
	age        int
	hits       int
	misses     int
	firstFrame int
	lastFrame  int
	trail      []pose.Point
	trailSize  int

	// kf is nil when motion prediction is disabled
	kf   *KalmanFilter
	mean *mat.VecDense
	cov  *mat.Dense
}

// newTrack starts a Tentative track from an unmatched detection
func newTrack(id int, det pose.Detection, frame int, cfg Config) *track {

	tr := &track{
		id:         id,
		state:      Tentative,
		firstFrame: frame,
		age:        1,
		trailSize:  cfg.TrailSize,
	}

	if cfg.UseKalman {
		tr.kf = NewKalmanFilter(1.0/20, 1.0/160)
		tr.mean, tr.cov = tr.kf.Initiate(RectFromBox(det.Box).Xyah())
	}

	tr.match(det, frame)

	if tr.hits >= cfg.HitsToConfirm {
		tr.state = Confirmed
	}

	return tr
}

// expected returns the box the track is expected to occupy in the current
// frame
func (tr *track) expected() Rect {
	if tr.kf != nil {
		var xyah Xyah
		for i := range xyah {
			xyah[i] = tr.mean.AtVec(i)
		}
		return RectFromXyah(xyah)
	}

	return RectFromBox(tr.box)
}

// predict advances the motion model one frame
func (tr *track) predict() {
	tr.age++

	if tr.kf == nil {
		return
	}

	// a lost box keeps its size
	if tr.state == Lost {
		tr.mean.SetVec(7, 0)
	}

	tr.kf.Predict(tr.mean, tr.cov)
}

// correct applies a detection to the motion model
func (tr *track) correct(det pose.Detection) {

	if tr.kf == nil {
		return
	}

	measurement := RectFromBox(det.Box).Xyah()

	if err := tr.kf.Update(tr.mean, tr.cov, measurement); err != nil {
		// restart the filter from the measurement when the covariance has
		// degenerated
		tr.mean, tr.cov = tr.kf.Initiate(measurement)
	}
}

// match records a detection matched to the track in the given frame
func (tr *track) match(det pose.Detection, frame int) {

	tr.box = det.Box
	tr.keyPoints = pose.CloneKeyPoints(det.KeyPoints)
	tr.score = det.Score
	tr.hits++
	tr.misses = 0
	tr.lastFrame = frame

	tr.trail = append(tr.trail, det.Box.Center())

	if len(tr.trail) > tr.trailSize {
		tr.trail = tr.trail[len(tr.trail)-tr.trailSize:]
	}
}

// hit applies a matched detection and advances the state machine
func (tr *track) hit(det pose.Detection, frame int, cfg Config) {

	tr.correct(det)
	tr.match(det, frame)

	switch tr.state {
	case Tentative:
		if tr.hits >= cfg.HitsToConfirm {
			tr.state = Confirmed
		}
	case Lost:
		tr.state = Confirmed
	}
}

// miss records a frame without a matching detection
func (tr *track) miss(cfg Config) {

	tr.misses++
	tr.hits = 0

	switch {
	case tr.state == Tentative:
		tr.state = Terminated
	case tr.misses >= cfg.MissesToTerminate:
		tr.state = Terminated
	case tr.misses >= cfg.MissesToLost:
		tr.state = Lost
	}
}

// snapshot returns a deep copy of the track
func (tr *track) snapshot() Snapshot {

	trail := make([]pose.Point, len(tr.trail))
	copy(trail, tr.trail)

	return Snapshot{
		ID:         tr.id,
		State:      tr.state,
		Box:        tr.box,
		KeyPoints:  pose.CloneKeyPoints(tr.keyPoints),
		Score:      tr.score,
		Age:        tr.age,
		Hits:       tr.hits,
		Misses:     tr.misses,
		FirstFrame: tr.firstFrame,
		LastFrame:  tr.lastFrame,
		Trail:      trail,
	}
}
