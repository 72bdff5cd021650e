package results

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-fightdetect/behavior"
	"github.com/swdee/go-fightdetect/classify"
)

var (
	started = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	meta    = Meta{RunID: "run-1", Video: "/videos/yard cam.mp4", Started: started}
)

func verdicts(frame int) []classify.Verdict {
	return []classify.Verdict{
		{Frame: frame, Pair: behavior.NewPairKey(1, 2), Label: classify.Fight, Confidence: 0.8123,
			Change: classify.Start, Motion: 0.2, Distance: 0.4, ClosingSpeed: 0.15},
		{Frame: frame, Pair: behavior.NewPairKey(1, 3), Label: classify.Normal, Confidence: 0.9},
		{Frame: frame, Pair: behavior.NewPairKey(2, 3), Label: classify.Normal, Confidence: 1,
			Change: classify.End, Motion: 0.01, Distance: 2.5},
	}
}

func TestLogRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	l, err := Create(dir, meta)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), l.Path())

	require.NoError(t, l.Append(6, 1500*time.Millisecond, verdicts(6)))
	require.NoError(t, l.Append(7, 61*time.Second+50*time.Millisecond, nil))
	assert.Equal(t, 2, l.Lines())

	sum := Summary{RunID: "run-1", Frames: 10, Tracks: 3, FightEvents: 1, FirstFightFrame: 6,
		LastFightFrame: 6, Status: StatusComplete}
	require.NoError(t, l.Finalize(sum))
	require.NoError(t, l.Finalize(sum))

	f, err := ParseFile(l.Path())
	require.NoError(t, err)

	assert.Equal(t, meta, f.Meta)
	require.NotNil(t, f.Summary)

	if diff := cmp.Diff(sum, *f.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	want := []Record{
		{Verdict: classify.Verdict{Frame: 6, Pair: behavior.PairKey{A: 1, B: 2}, Label: classify.Fight,
			Confidence: 0.81, Change: classify.Start, Motion: 0.2, Distance: 0.4, ClosingSpeed: 0.15},
			Time: 1500 * time.Millisecond},
		{Verdict: classify.Verdict{Frame: 6, Pair: behavior.PairKey{A: 2, B: 3}, Label: classify.Normal,
			Confidence: 1, Change: classify.End, Motion: 0.01, Distance: 2.5}, Time: 1500 * time.Millisecond},
	}

	if diff := cmp.Diff(want, f.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLogPartialIsReadable(t *testing.T) {
	dir := t.TempDir()

	l, err := Create(dir, meta)
	require.NoError(t, err)
	require.NoError(t, l.Append(3, time.Second, verdicts(3)))

	// read back before finalizing
	f, err := ParseFile(l.Path())
	require.NoError(t, err)
	assert.Nil(t, f.Summary)
	assert.Len(t, f.Records, 2)

	require.NoError(t, l.Finalize(Summary{Frames: 3, Status: StatusCancelled}))

	f, err = ParseFile(l.Path())
	require.NoError(t, err)
	require.NotNil(t, f.Summary)
	assert.Equal(t, StatusCancelled, f.Summary.Status)
	assert.Equal(t, 0, f.Summary.FirstFightFrame)
}

func TestAppendAfterFinalize(t *testing.T) {
	l, err := Create(t.TempDir(), meta)
	require.NoError(t, err)
	require.NoError(t, l.Finalize(Summary{Status: StatusComplete}))

	err = l.Append(1, 0, verdicts(1))

	var wErr *WriteError
	assert.True(t, errors.As(err, &wErr))
}

func TestCreateUnwritable(t *testing.T) {
	// a file where the directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Create(filepath.Join(blocker, "out"), meta)

	var wErr *WriteError
	require.True(t, errors.As(err, &wErr))
	assert.Equal(t, "create directory", wErr.Op)
}

func TestParseFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ParseFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ParseFile(empty)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("frame=1 time=00:00.000 verdict=maybe\n"), 0o644))
	_, err = ParseFile(bad)
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "00:00.000", formatTime(0))
	assert.Equal(t, "01:01.050", formatTime(61*time.Second+50*time.Millisecond))

	d, err := parseTime("01:01.050")
	require.NoError(t, err)
	assert.Equal(t, 61*time.Second+50*time.Millisecond, d)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenStore(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.BeginRun(ctx, meta))
	require.NoError(t, s.AddVerdicts(ctx, meta.RunID, verdicts(6)))
	require.NoError(t, s.AddVerdicts(ctx, meta.RunID, nil))

	sum := Summary{RunID: meta.RunID, Frames: 10, Tracks: 2, FightEvents: 1, FirstFightFrame: 6,
		LastFightFrame: 9, DetectorFailures: 1, Status: StatusComplete}
	require.NoError(t, s.FinishRun(ctx, sum))

	got, err := s.Run(ctx, meta.RunID)
	require.NoError(t, err)

	if diff := cmp.Diff(sum, got); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	vs, err := s.Verdicts(ctx, meta.RunID)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, classify.Fight, vs[0].Label)
	assert.Equal(t, classify.Start, vs[0].Change)
	assert.InDelta(t, 0.15, vs[0].ClosingSpeed, 1e-9)
	assert.Equal(t, behavior.PairKey{A: 2, B: 3}, vs[1].Pair)
	assert.Equal(t, classify.End, vs[1].Change)

	_, err = s.Run(ctx, "unknown")
	assert.Error(t, err)

	// a duplicate run id is rejected
	var wErr *WriteError
	assert.True(t, errors.As(s.BeginRun(ctx, meta), &wErr))
}
