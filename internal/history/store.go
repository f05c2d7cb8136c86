// Package history keeps a local record of analyses run through the CLI, so
// `clarifier history` works offline and without touching the server database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one analyzed bill as remembered locally.
type Entry struct {
	ID                   int64
	FilePath             string
	ReferenceMonth       int
	ReferenceYear        int
	TotalAmount          float64
	MinimumPossible      float64
	UncompensatedCost    float64
	MonitoredGeneration  float64
	GenerationEfficiency float64
	SystemStatus         string
	BillScore            float64
	AnalyzedAt           time.Time
}

// Store is a single-user SQLite file.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path             TEXT NOT NULL,
	reference_month       INTEGER NOT NULL,
	reference_year        INTEGER NOT NULL,
	total_amount          REAL NOT NULL,
	minimum_possible      REAL NOT NULL,
	uncompensated_cost    REAL NOT NULL,
	monitored_generation  REAL NOT NULL,
	generation_efficiency REAL NOT NULL,
	system_status         TEXT NOT NULL,
	bill_score            REAL NOT NULL,
	analyzed_at           TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_period
	ON analyses (reference_year, reference_month);`

// Open opens (and migrates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.AnalyzedAt.IsZero() {
		e.AnalyzedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (
			file_path, reference_month, reference_year,
			total_amount, minimum_possible, uncompensated_cost,
			monitored_generation, generation_efficiency, system_status,
			bill_score, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FilePath, e.ReferenceMonth, e.ReferenceYear,
		e.TotalAmount, e.MinimumPossible, e.UncompensatedCost,
		e.MonitoredGeneration, e.GenerationEfficiency, e.SystemStatus,
		e.BillScore, e.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("record analysis: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, file_path, reference_month, reference_year,
		       total_amount, minimum_possible, uncompensated_cost,
		       monitored_generation, generation_efficiency, system_status,
		       bill_score, analyzed_at
		FROM analyses
		ORDER BY analyzed_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.FilePath, &e.ReferenceMonth, &e.ReferenceYear,
			&e.TotalAmount, &e.MinimumPossible, &e.UncompensatedCost,
			&e.MonitoredGeneration, &e.GenerationEfficiency, &e.SystemStatus,
			&e.BillScore, &e.AnalyzedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
