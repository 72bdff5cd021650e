package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-fightdetect/behavior"
)

func testConfig() Config {
	return Config{
		MotionEnter:    0.05,
		MotionExit:     0.03,
		ProximityEnter: 0.8,
		ProximityExit:  1.2,
		EnterFrames:    3,
		ExitFrames:     4,
	}
}

var key = behavior.NewPairKey(1, 2)

func pair(motion, distance float64) behavior.PairFeatures {
	return behavior.PairFeatures{Key: key, Evaluable: true, Motion: motion, Distance: distance}
}

// blind returns the pair present in frame with a track that is not evaluable
func blind() behavior.PairFeatures {
	return behavior.PairFeatures{Key: key, Distance: 0.4}
}

func TestFightStartsOnFrameH(t *testing.T) {
	c := New(testConfig())

	for frame := 1; frame <= 2; frame++ {
		v := c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, frame)
		require.Len(t, v, 1)
		assert.Equal(t, Normal, v[0].Label, "frame %d", frame)
		assert.Equal(t, None, v[0].Change, "frame %d", frame)
	}

	v := c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 3)
	require.Len(t, v, 1)
	assert.Equal(t, Fight, v[0].Label)
	assert.Equal(t, Start, v[0].Change)
	assert.Equal(t, 3, v[0].Frame)
	assert.Equal(t, key, v[0].Pair)

	v = c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 4)
	assert.Equal(t, Fight, v[0].Label)
	assert.Equal(t, None, v[0].Change)
	assert.Equal(t, []behavior.PairKey{key}, c.Fighting())
}

func TestInterruptedTriggerRestartsStreak(t *testing.T) {
	c := New(testConfig())

	inputs := []behavior.PairFeatures{
		pair(0.2, 0.4), pair(0.2, 0.4), pair(0.01, 0.4), pair(0.2, 0.4), pair(0.2, 0.4),
	}

	for i, p := range inputs {
		v := c.Classify([]behavior.PairFeatures{p}, i+1)
		require.Len(t, v, 1)
		assert.Equal(t, Normal, v[0].Label, "frame %d", i+1)
	}

	v := c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 6)
	assert.Equal(t, Start, v[0].Change)
}

func TestAbsentNormalPairLosesStreak(t *testing.T) {
	c := New(testConfig())

	c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 1)
	c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 2)
	assert.Empty(t, c.Classify(nil, 3))

	v := c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 4)
	assert.Equal(t, Normal, v[0].Label)
}

func TestProximityGate(t *testing.T) {
	c := New(testConfig())

	// very high motion, held apart
	for frame := 1; frame <= 50; frame++ {
		v := c.Classify([]behavior.PairFeatures{pair(5, 0.81)}, frame)
		require.Len(t, v, 1)
		assert.Equal(t, Normal, v[0].Label, "frame %d", frame)
	}
}

func TestMotionGate(t *testing.T) {
	c := New(testConfig())

	// overlapping but still
	for frame := 1; frame <= 50; frame++ {
		v := c.Classify([]behavior.PairFeatures{pair(0.01, 0)}, frame)
		require.Len(t, v, 1)
		assert.Equal(t, Normal, v[0].Label, "frame %d", frame)
	}
}

func TestHysteresis(t *testing.T) {
	cfg := testConfig()
	c := New(cfg)

	frame := 0
	for i := 0; i < cfg.EnterFrames; i++ {
		frame++
		c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, frame)
	}
	require.Equal(t, []behavior.PairKey{key}, c.Fighting())

	// looser exit thresholds sustain the fight
	for i := 0; i < 10; i++ {
		frame++
		v := c.Classify([]behavior.PairFeatures{pair(0.04, 1.0)}, frame)
		assert.Equal(t, Fight, v[0].Label)
	}

	// fewer than H2 calm frames keep the fight
	for i := 0; i < cfg.ExitFrames-1; i++ {
		frame++
		v := c.Classify([]behavior.PairFeatures{pair(0, 3)}, frame)
		assert.Equal(t, Fight, v[0].Label)
		assert.Equal(t, None, v[0].Change)
	}

	// a sustained frame resets the calm count
	frame++
	c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, frame)

	for i := 0; i < cfg.ExitFrames-1; i++ {
		frame++
		v := c.Classify([]behavior.PairFeatures{pair(0, 3)}, frame)
		assert.Equal(t, Fight, v[0].Label)
	}

	frame++
	v := c.Classify([]behavior.PairFeatures{pair(0, 3)}, frame)
	assert.Equal(t, Normal, v[0].Label)
	assert.Equal(t, End, v[0].Change)
	assert.Empty(t, c.Fighting())
}

func TestAbsentFightPairKeepsState(t *testing.T) {
	c := New(testConfig())

	for frame := 1; frame <= 3; frame++ {
		c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, frame)
	}

	for frame := 4; frame <= 20; frame++ {
		assert.Empty(t, c.Classify(nil, frame))
	}

	assert.Equal(t, []behavior.PairKey{key}, c.Fighting())
}

func TestUnevaluableNormalPairLosesStreak(t *testing.T) {
	c := New(testConfig())

	c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 1)
	c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 2)
	assert.Empty(t, c.Classify([]behavior.PairFeatures{blind()}, 3))

	v := c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, 4)
	assert.Equal(t, Normal, v[0].Label)
}

func TestUnevaluableFightPairEnds(t *testing.T) {
	cfg := testConfig()
	c := New(cfg)

	frame := 0
	for i := 0; i < cfg.EnterFrames; i++ {
		frame++
		c.Classify([]behavior.PairFeatures{pair(0.2, 0.4)}, frame)
	}
	require.Equal(t, []behavior.PairKey{key}, c.Fighting())

	for i := 0; i < cfg.ExitFrames-1; i++ {
		frame++
		v := c.Classify([]behavior.PairFeatures{blind()}, frame)
		require.Len(t, v, 1)
		assert.Equal(t, Fight, v[0].Label, "frame %d", frame)
		assert.Equal(t, None, v[0].Change, "frame %d", frame)
	}

	frame++
	v := c.Classify([]behavior.PairFeatures{blind()}, frame)
	require.Len(t, v, 1)
	assert.Equal(t, Normal, v[0].Label)
	assert.Equal(t, End, v[0].Change)
	assert.Empty(t, c.Fighting())

	// back to Normal, an unevaluable pair yields nothing
	assert.Empty(t, c.Classify([]behavior.PairFeatures{blind()}, frame+1))
}

func TestForget(t *testing.T) {
	c := New(testConfig())

	other := behavior.NewPairKey(2, 3)

	for frame := 1; frame <= 3; frame++ {
		c.Classify([]behavior.PairFeatures{
			pair(0.2, 0.4),
			{Key: other, Evaluable: true, Motion: 0, Distance: 5},
		}, frame)
	}

	got := c.Forget(2, 4)
	want := []Verdict{{Frame: 4, Pair: key, Label: Normal, Confidence: 1, Change: End}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Forget() mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, c.Forget(2, 5))
	assert.Empty(t, c.Fighting())
}

func TestVerdictOrderAndConfidence(t *testing.T) {
	c := New(testConfig())

	v := c.Classify([]behavior.PairFeatures{
		{Key: behavior.NewPairKey(3, 4), Evaluable: true, Motion: 0.1, Distance: 0},
		{Key: behavior.NewPairKey(1, 5), Evaluable: true, Motion: 0.05, Distance: 0.8, ClosingSpeed: 0.1},
		{Key: behavior.NewPairKey(1, 2), Evaluable: true, Motion: 0, Distance: 10},
		{Key: behavior.NewPairKey(2, 6), Motion: 0.3, Distance: 0.1},
	}, 1)

	want := []Verdict{
		{Frame: 1, Pair: behavior.PairKey{A: 1, B: 2}, Label: Normal, Confidence: 1, Distance: 10},
		{Frame: 1, Pair: behavior.PairKey{A: 1, B: 5}, Label: Normal, Confidence: 1 - 0.5, Motion: 0.05, Distance: 0.8,
			ClosingSpeed: 0.1},
		{Frame: 1, Pair: behavior.PairKey{A: 3, B: 4}, Label: Normal, Confidence: 0, Motion: 0.1},
	}

	if diff := cmp.Diff(want, v, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MotionExit = cfg.MotionEnter * 2
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ProximityExit = cfg.ProximityEnter / 2
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ExitFrames = 0
	assert.Error(t, cfg.Validate())
}

func TestParseChange(t *testing.T) {
	for _, c := range []Change{None, Start, End} {
		got, err := ParseChange(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseChange("maybe")
	assert.Error(t, err)
}
