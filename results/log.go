package results

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/swdee/go-fightdetect/classify"
)

// FileName is the name of the result log in the output directory
const FileName = "results.txt"

// Meta identifies a run in the log header
type Meta struct {
	RunID   string
	Video   string
	Started time.Time
}

// Log is the append only result log of a run.  Lines are flushed as they are
// appended so a partially processed video still leaves a readable log.
type Log struct {
	path   string
	file   *os.File
	w      *bufio.Writer
	events int
	closed bool
}

// Create creates the output directory if needed and starts a new log in it
func Create(dir string, meta Meta) (*Log, error) {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &WriteError{Path: dir, Op: "create directory", Err: err}
	}

	path := filepath.Join(dir, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)

	if err != nil {
		return nil, &WriteError{Path: path, Op: "create", Err: err}
	}

	l := &Log{
		path: path,
		file: f,
		w:    bufio.NewWriter(f),
	}

	fmt.Fprintf(l.w, "# fightdetect run=%s video=%q started=%s\n",
		meta.RunID, meta.Video, meta.Started.UTC().Format(time.RFC3339))

	if err := l.flush(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	return l, nil
}

// Path returns the location of the log file
func (l *Log) Path() string {
	return l.path
}

// Lines returns the number of verdict lines written
func (l *Log) Lines() int {
	return l.events
}

func (l *Log) flush() error {
	if err := l.w.Flush(); err != nil {
		return &WriteError{Path: l.path, Op: "write", Err: err}
	}
	return nil
}

// formatTime returns the timestamp as mm:ss.mmm
func formatTime(ts time.Duration) string {
	ms := ts.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}

// Append writes the Fight verdicts and End transitions of a frame.  Other
// verdicts are not logged.
func (l *Log) Append(frame int, ts time.Duration, verdicts []classify.Verdict) error {

	if l.closed {
		return &WriteError{Path: l.path, Op: "append to", Err: errors.New("log is finalized")}
	}

	for _, v := range verdicts {
		if v.Label != classify.Fight && v.Change != classify.End {
			continue
		}

		fmt.Fprintf(l.w, "frame=%d time=%s verdict=%s tracks=%s confidence=%.2f change=%s motion=%.4f distance=%.4f closing=%.4f\n",
			frame, formatTime(ts), v.Label, v.Pair, v.Confidence, v.Change, v.Motion, v.Distance, v.ClosingSpeed)

		l.events++
	}

	return l.flush()
}

// Finalize writes the summary footer, syncs and closes the log.  It is safe to
// call more than once, later calls do nothing.
func (l *Log) Finalize(s Summary) error {

	if l.closed {
		return nil
	}

	l.closed = true

	fmt.Fprintf(l.w, "# summary status=%s frames=%d tracks=%d events=%d first_fight=%s last_fight=%s detector_failures=%d\n",
		s.Status, s.Frames, s.Tracks, s.FightEvents, frameOrDash(s.FirstFightFrame),
		frameOrDash(s.LastFightFrame), s.DetectorFailures)

	err := l.flush()

	if syncErr := l.file.Sync(); syncErr != nil && err == nil {
		err = &WriteError{Path: l.path, Op: "sync", Err: syncErr}
	}

	if closeErr := l.file.Close(); closeErr != nil && err == nil {
		err = &WriteError{Path: l.path, Op: "close", Err: closeErr}
	}

	return err
}

func frameOrDash(frame int) string {
	if frame <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", frame)
}
