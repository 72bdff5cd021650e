package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/swdee/go-fightdetect/behavior"
)

// Label is the classification of a pair of tracks
type Label int

const (
	Normal Label = iota
	Fight
)

// String returns the lower case name of the label
func (l Label) String() string {
	if l == Fight {
		return "fight"
	}
	return "normal"
}

// Change describes whether a verdict is a state transition
type Change int

const (
	// None is a verdict without a transition
	None Change = iota
	// Start is the first Fight verdict of an event
	Start
	// End is the verdict returning a pair to Normal
	End
)

// String returns the lower case name of the change
func (c Change) String() string {
	switch c {
	case Start:
		return "start"
	case End:
		return "end"
	}
	return "none"
}

// ParseChange is the reverse of Change.String
func ParseChange(s string) (Change, error) {
	switch s {
	case "none":
		return None, nil
	case "start":
		return Start, nil
	case "end":
		return End, nil
	}
	return None, fmt.Errorf("unknown change %q", s)
}

// Verdict is the classification of one pair of tracks in one frame
type Verdict struct {
	Frame int
	Pair  behavior.PairKey
	Label Label
	// Confidence in the label, in [0,1]
	Confidence float64
	Change     Change
	// Motion, Distance and ClosingSpeed are the pair features the verdict
	// was made on
	Motion       float64
	Distance     float64
	ClosingSpeed float64
}

// Config holds the decision thresholds
type Config struct {
	// MotionEnter is the pair motion needed to trigger a fight
	MotionEnter float64
	// MotionExit is the pair motion needed to sustain a fight
	MotionExit float64
	// ProximityEnter is the largest normalised distance that triggers a fight
	ProximityEnter float64
	// ProximityExit is the largest normalised distance that sustains a fight
	ProximityExit float64
	// EnterFrames is the number of consecutive triggered frames to start a
	// fight
	EnterFrames int
	// ExitFrames is the number of consecutive frames without sustain to end
	// a fight
	ExitFrames int
}

// DefaultConfig returns the default decision thresholds
func DefaultConfig() Config {
	return Config{
		MotionEnter:    0.08,
		MotionExit:     0.05,
		ProximityEnter: 1.0,
		ProximityExit:  1.4,
		EnterFrames:    3,
		ExitFrames:     8,
	}
}

// Validate checks the thresholds are consistent
func (c Config) Validate() error {
	switch {
	case c.MotionEnter <= 0 || c.ProximityEnter <= 0:
		return fmt.Errorf("enter thresholds must be positive")
	case c.MotionExit <= 0 || c.MotionExit > c.MotionEnter:
		return fmt.Errorf("motion exit %.3f must be within (0, motion enter %.3f]", c.MotionExit, c.MotionEnter)
	case c.ProximityExit < c.ProximityEnter:
		return fmt.Errorf("proximity exit %.3f must not be below proximity enter %.3f",
			c.ProximityExit, c.ProximityEnter)
	case c.EnterFrames < 1 || c.ExitFrames < 1:
		return fmt.Errorf("enter and exit frames must be at least 1")
	}
	return nil
}

// pairState is the hysteresis state of a pair
type pairState struct {
	label Label
	// streak is the number of consecutive triggered frames while Normal
	streak int
	// calm is the number of consecutive frames without sustain while Fight
	calm int
}

// Classifier decides per pair of tracks whether they are fighting.  It is not
// safe for concurrent use.
type Classifier struct {
	cfg   Config
	pairs map[behavior.PairKey]*pairState
}

// New returns a Classifier using the given thresholds
func New(cfg Config) *Classifier {
	return &Classifier{
		cfg:   cfg,
		pairs: make(map[behavior.PairKey]*pairState),
	}
}

// triggered reports whether the pair meets the thresholds to start a fight
func (c *Classifier) triggered(p behavior.PairFeatures) bool {
	return p.Motion >= c.cfg.MotionEnter && p.Distance <= c.cfg.ProximityEnter
}

// sustained reports whether the pair meets the looser thresholds to keep
// fighting
func (c *Classifier) sustained(p behavior.PairFeatures) bool {
	return p.Motion >= c.cfg.MotionExit && p.Distance <= c.cfg.ProximityExit
}

// score combines motion and proximity into [0,1], both signals must be
// present for a high score
func (c *Classifier) score(p behavior.PairFeatures) float64 {
	m := clamp(p.Motion / (2 * c.cfg.MotionEnter))
	d := clamp(1 - p.Distance/(2*c.cfg.ProximityEnter))
	return math.Sqrt(m * d)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Classify returns one verdict for each evaluable pair in frame and for each
// Fight pair present in frame, ordered by pair key.  Normal pairs missing from
// frame or not evaluable lose their trigger streak.  Fight pairs missing from
// frame keep their state, a Fight pair present but not evaluable counts as a
// calm frame.
func (c *Classifier) Classify(pairs []behavior.PairFeatures, frame int) []Verdict {

	sorted := make([]behavior.PairFeatures, len(pairs))
	copy(sorted, pairs)

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i].Key, sorted[j].Key)
	})

	seen := make(map[behavior.PairKey]bool, len(sorted))
	out := make([]Verdict, 0, len(sorted))

	for _, p := range sorted {

		if seen[p.Key] {
			continue
		}

		st, ok := c.pairs[p.Key]

		if !p.Evaluable && (!ok || st.label == Normal) {
			continue
		}

		seen[p.Key] = true

		if !ok {
			st = &pairState{}
			c.pairs[p.Key] = st
		}

		change := None

		switch st.label {
		case Normal:
			if c.triggered(p) {
				st.streak++
			} else {
				st.streak = 0
			}

			if st.streak >= c.cfg.EnterFrames {
				st.label = Fight
				st.calm = 0
				change = Start
			}

		case Fight:
			if p.Evaluable && c.sustained(p) {
				st.calm = 0
			} else {
				st.calm++
			}

			if st.calm >= c.cfg.ExitFrames {
				st.label = Normal
				st.streak = 0
				change = End
			}
		}

		conf := c.score(p)
		if st.label == Normal {
			conf = 1 - conf
		}

		out = append(out, Verdict{
			Frame:        frame,
			Pair:         p.Key,
			Label:        st.label,
			Confidence:   conf,
			Change:       change,
			Motion:       p.Motion,
			Distance:     p.Distance,
			ClosingSpeed: p.ClosingSpeed,
		})
	}

	for key, st := range c.pairs {
		if !seen[key] && st.label == Normal {
			delete(c.pairs, key)
		}
	}

	return out
}

// Forget drops the state of every pair including the track id.  Pairs that
// were fighting are closed with an End verdict.
func (c *Classifier) Forget(id int, frame int) []Verdict {

	var out []Verdict

	for key, st := range c.pairs {
		if !key.Has(id) {
			continue
		}

		if st.label == Fight {
			out = append(out, Verdict{
				Frame:      frame,
				Pair:       key,
				Label:      Normal,
				Confidence: 1,
				Change:     End,
			})
		}

		delete(c.pairs, key)
	}

	sort.Slice(out, func(i, j int) bool {
		return less(out[i].Pair, out[j].Pair)
	})

	return out
}

// Fighting returns the pairs currently in the Fight state, ordered by key
func (c *Classifier) Fighting() []behavior.PairKey {

	var out []behavior.PairKey

	for key, st := range c.pairs {
		if st.label == Fight {
			out = append(out, key)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return less(out[i], out[j])
	})

	return out
}

func less(a, b behavior.PairKey) bool {
	if a.A != b.A {
		return a.A < b.A
	}
	return a.B < b.B
}
