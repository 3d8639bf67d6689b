package isingd

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/GoSim-25-26J-441/ising-core/internal/output"
)

// ErrTraceNotArchived is returned when the archive holds no such trace
var ErrTraceNotArchived = errors.New("trace not archived")

// Archive persists finished traces in SQLite. Samples are stored in the
// same line format as the CSV artifacts.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (creating if needed) the SQLite archive at path
func OpenArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := createSchemas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return &Archive{db: db}, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS traces (
			run_id TEXT NOT NULL,
			label TEXT NOT NULL,
			temperature REAL NOT NULL,
			sample_count INTEGER NOT NULL,
			samples TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (run_id, label)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_traces_run_id ON traces(run_id);`,
	}
	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveTrace stores (or replaces) the trace of runID at temperature t
func (a *Archive) SaveTrace(ctx context.Context, runID string, t float64, trace []int64) error {
	var buf bytes.Buffer
	if err := output.WriteTrace(&buf, trace); err != nil {
		return err
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO traces (run_id, label, temperature, sample_count, samples, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, TemperatureKey(t), t, len(trace), buf.String(), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to archive trace %s@%s: %w", runID, TemperatureKey(t), err)
	}
	return nil
}

// LoadTrace returns the archived trace of runID at temperature t
func (a *Archive) LoadTrace(ctx context.Context, runID string, t float64) ([]int64, error) {
	var samples string
	err := a.db.QueryRowContext(ctx,
		`SELECT samples FROM traces WHERE run_id = ? AND label = ?`,
		runID, TemperatureKey(t)).Scan(&samples)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s@%s", ErrTraceNotArchived, runID, TemperatureKey(t))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trace: %w", err)
	}
	return output.ReadTrace(bytes.NewBufferString(samples))
}

// Temperatures lists the archived temperatures of runID, ascending
func (a *Archive) Temperatures(ctx context.Context, runID string) ([]float64, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT temperature FROM traces WHERE run_id = ? ORDER BY temperature`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived temperatures: %w", err)
	}
	defer rows.Close()

	var ts []float64
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return ts, rows.Err()
}
