// Package runlog provides persistent records of conversion runs using SQLite.
package runlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// RunStatus represents the current state of a conversion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records a single conversion run.
type Run struct {
	ID                int64      `json:"run_id"`
	Status            RunStatus  `json:"status"`
	Assembly          string     `json:"assembly"`
	BaseResolution    int64      `json:"base_resolution"`
	OutputPath        string     `json:"output_path"`
	NumCells          int        `json:"num_cells"`
	NumClusters       int        `json:"num_clusters"`
	NumBins           int        `json:"num_bins"`
	DroppedLabels     int        `json:"dropped_labels"`
	SequencesWithData int        `json:"sequences_with_data"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// Store provides persistent storage for conversion runs using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore creates a new SQLite-based run log.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversion_runs (
		run_id INTEGER PRIMARY KEY AUTOINCREMENT,
		status TEXT NOT NULL,
		assembly TEXT NOT NULL,
		base_resolution INTEGER NOT NULL,
		output_path TEXT NOT NULL,
		num_cells INTEGER DEFAULT 0,
		num_clusters INTEGER DEFAULT 0,
		num_bins INTEGER DEFAULT 0,
		dropped_labels INTEGER DEFAULT 0,
		sequences_with_data INTEGER DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		error TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_conversion_runs_status ON conversion_runs(status);
	CREATE INDEX IF NOT EXISTS idx_conversion_runs_started ON conversion_runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Begin inserts a new run record with status=running and returns its id.
func (s *Store) Begin(assembly string, baseResolution int64, outputPath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO conversion_runs (status, assembly, base_resolution, output_path, started_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		string(RunStatusRunning),
		assembly,
		baseResolution,
		outputPath,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Finish marks a run as completed or failed and records its counters.
func (s *Store) Finish(runID int64, status RunStatus, counts RunCounts, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE conversion_runs
		SET status = ?, num_cells = ?, num_clusters = ?, num_bins = ?,
		    dropped_labels = ?, sequences_with_data = ?, finished_at = ?, error = ?
		WHERE run_id = ?
	`,
		string(status),
		counts.NumCells,
		counts.NumClusters,
		counts.NumBins,
		counts.DroppedLabels,
		counts.SequencesWithData,
		time.Now().Format(time.RFC3339),
		errMsg,
		runID,
	)
	return err
}

// RunCounts carries the per-run summary counters recorded at finish time.
type RunCounts struct {
	NumCells          int
	NumClusters       int
	NumBins           int
	DroppedLabels     int
	SequencesWithData int
}

// Get retrieves a run by id, or nil if it does not exist.
func (s *Store) Get(runID int64) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, status, assembly, base_resolution, output_path,
		       num_cells, num_clusters, num_bins, dropped_labels, sequences_with_data,
		       started_at, finished_at, error
		FROM conversion_runs WHERE run_id = ?
	`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, status, assembly, base_resolution, output_path,
		       num_cells, num_clusters, num_bins, dropped_labels, sequences_with_data,
		       started_at, finished_at, error
		FROM conversion_runs
		ORDER BY run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkRunningAsFailed marks all running runs as failed (for restart recovery).
func (s *Store) MarkRunningAsFailed(errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	_, err := s.db.Exec(`
		UPDATE conversion_runs SET status = ?, error = ?, finished_at = ?
		WHERE status = ?
	`, string(RunStatusFailed), errMsg, now, string(RunStatusRunning))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAtStr string
	var finishedAtStr sql.NullString

	err := row.Scan(
		&run.ID,
		&run.Status,
		&run.Assembly,
		&run.BaseResolution,
		&run.OutputPath,
		&run.NumCells,
		&run.NumClusters,
		&run.NumBins,
		&run.DroppedLabels,
		&run.SequencesWithData,
		&startedAtStr,
		&finishedAtStr,
		&run.Error,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, startedAtStr)
	if finishedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339, finishedAtStr.String)
		run.FinishedAt = &t
	}

	return &run, nil
}
