package results

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/swdee/go-fightdetect/behavior"
	"github.com/swdee/go-fightdetect/classify"
)

// StoreFileName is the name of the event database in the output directory
const StoreFileName = "events.db"

// Store indexes runs and their logged verdicts in SQLite
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens or creates the event database in dir
func OpenStore(dir string) (*Store, error) {

	path := filepath.Join(dir, StoreFileName)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &WriteError{Path: path, Op: "open database", Err: err}
	}

	// the pipeline is the only writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &WriteError{Path: path, Op: "enable WAL on", Err: err}
	}

	s := &Store{db: db, path: path}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &WriteError{Path: path, Op: "migrate", Err: err}
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			video TEXT NOT NULL,
			started DATETIME NOT NULL,
			finished DATETIME,
			status TEXT,
			frames INTEGER DEFAULT 0,
			tracks INTEGER DEFAULT 0,
			events INTEGER DEFAULT 0,
			first_fight INTEGER DEFAULT 0,
			last_fight INTEGER DEFAULT 0,
			detector_failures INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS verdicts (
			run_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			track_a INTEGER NOT NULL,
			track_b INTEGER NOT NULL,
			label TEXT NOT NULL,
			confidence REAL,
			change TEXT NOT NULL,
			motion REAL,
			distance REAL,
			closing REAL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_run_frame ON verdicts(run_id, frame)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// BeginRun records the start of a run
func (s *Store) BeginRun(ctx context.Context, meta Meta) error {

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, video, started) VALUES (?, ?, ?)`,
		meta.RunID, meta.Video, meta.Started.UTC())

	if err != nil {
		return &WriteError{Path: s.path, Op: "insert run into", Err: err}
	}

	return nil
}

// AddVerdicts stores the Fight verdicts and End transitions of a run, the
// same selection written to the result log
func (s *Store) AddVerdicts(ctx context.Context, runID string, verdicts []classify.Verdict) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &WriteError{Path: s.path, Op: "begin transaction on", Err: err}
	}

	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO verdicts (run_id, frame, track_a, track_b, label, confidence, change, motion, distance, closing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &WriteError{Path: s.path, Op: "prepare insert on", Err: err}
	}

	defer stmt.Close()

	for _, v := range verdicts {
		if v.Label != classify.Fight && v.Change != classify.End {
			continue
		}

		if _, err := stmt.ExecContext(ctx, runID, v.Frame, v.Pair.A, v.Pair.B,
			v.Label.String(), v.Confidence, v.Change.String(), v.Motion, v.Distance, v.ClosingSpeed); err != nil {
			return &WriteError{Path: s.path, Op: "insert verdict into", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &WriteError{Path: s.path, Op: "commit to", Err: err}
	}

	return nil
}

// FinishRun records the summary of a run
func (s *Store) FinishRun(ctx context.Context, sum Summary) error {

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished = ?, status = ?, frames = ?, tracks = ?, events = ?,
			first_fight = ?, last_fight = ?, detector_failures = ?
		WHERE id = ?`,
		time.Now().UTC(), string(sum.Status), sum.Frames, sum.Tracks, sum.FightEvents,
		sum.FirstFightFrame, sum.LastFightFrame, sum.DetectorFailures, sum.RunID)

	if err != nil {
		return &WriteError{Path: s.path, Op: "update run in", Err: err}
	}

	return nil
}

// Run returns the stored summary of a run
func (s *Store) Run(ctx context.Context, runID string) (Summary, error) {

	var sum Summary
	var status sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, frames, tracks, events, first_fight, last_fight, detector_failures
		FROM runs WHERE id = ?`, runID).Scan(
		&sum.RunID, &status, &sum.Frames, &sum.Tracks, &sum.FightEvents,
		&sum.FirstFightFrame, &sum.LastFightFrame, &sum.DetectorFailures)

	if err != nil {
		return sum, fmt.Errorf("failed to query run %s: %w", runID, err)
	}

	sum.Status = Status(status.String)

	return sum, nil
}

// Verdicts returns the stored verdicts of a run ordered by frame
func (s *Store) Verdicts(ctx context.Context, runID string) ([]classify.Verdict, error) {

	rows, err := s.db.QueryContext(ctx,
		`SELECT frame, track_a, track_b, label, confidence, change, motion, distance, closing
		FROM verdicts WHERE run_id = ? ORDER BY frame, track_a, track_b`, runID)

	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}

	defer rows.Close()

	var out []classify.Verdict

	for rows.Next() {
		var v classify.Verdict
		var a, b int
		var label, change string

		if err := rows.Scan(&v.Frame, &a, &b, &label, &v.Confidence, &change, &v.Motion, &v.Distance, &v.ClosingSpeed); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}

		v.Pair = behavior.NewPairKey(a, b)

		if label == classify.Fight.String() {
			v.Label = classify.Fight
		}

		if v.Change, err = classify.ParseChange(change); err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, rows.Err()
}
