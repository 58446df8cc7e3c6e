package internal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// BatchRun is one recorded batch in the history ledger
type BatchRun struct {
	ID          string
	StartedAt   time.Time
	CompletedAt time.Time
	OutputDir   string
	Concurrency int
	Workers     int
	Total       int
	Successful  int
	Failed      int
}

// HistoryItem is one recorded item outcome
type HistoryItem struct {
	Index      int
	URL        string
	Status     ItemStatus
	Error      string
	ResultFile string
}

// History is the SQLite ledger of batch runs
type History struct {
	db   *sql.DB
	path string
}

const historySchema = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	output_dir TEXT NOT NULL,
	concurrency INTEGER NOT NULL,
	workers INTEGER NOT NULL,
	total INTEGER NOT NULL,
	successful INTEGER NOT NULL,
	failed INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS batch_items (
	batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	idx INTEGER NOT NULL,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	result_file TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (batch_id, idx)
);
CREATE INDEX IF NOT EXISTS idx_batches_started ON batches(started_at);
`

// fixed width so started_at sorts lexically
const historyTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// OpenHistory opens or creates the ledger at path
func OpenHistory(ctx context.Context, path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &History{db: db, path: path}, nil
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

// Path returns the database file
func (h *History) Path() string {
	return h.path
}

// Record stores a finished batch and its items in one transaction
func (h *History) Record(ctx context.Context, result *BatchResult) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO batches
		(id, started_at, completed_at, output_dir, concurrency, workers, total, successful, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.StartedAt.UTC().Format(historyTimeFormat),
		result.CompletedAt.UTC().Format(historyTimeFormat),
		result.OutputDir,
		result.Concurrency,
		result.Workers,
		len(result.Items),
		result.Successful,
		result.Failed,
	)
	if err != nil {
		return fmt.Errorf("recording batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_items WHERE batch_id = ?`, result.ID); err != nil {
		return fmt.Errorf("clearing batch items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO batch_items
		(batch_id, idx, url, status, error, result_file) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range result.Items {
		resultFile := ""
		if item.Result != nil {
			resultFile = item.Result.ResultFile
		}
		if _, err := stmt.ExecContext(ctx, result.ID, i, item.URL, string(item.Status), item.Error, resultFile); err != nil {
			return fmt.Errorf("recording item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

// List returns the most recent batches first; limit <= 0 returns all
func (h *History) List(ctx context.Context, limit int) ([]BatchRun, error) {
	query := `SELECT id, started_at, completed_at, output_dir, concurrency, workers, total, successful, failed
		FROM batches ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var runs []BatchRun
	for rows.Next() {
		var (
			run                BatchRun
			started, completed string
		)
		if err := rows.Scan(&run.ID, &started, &completed, &run.OutputDir, &run.Concurrency,
			&run.Workers, &run.Total, &run.Successful, &run.Failed); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		var err error
		if run.StartedAt, err = time.Parse(historyTimeFormat, started); err != nil {
			return nil, fmt.Errorf("scanning history row %s: started_at: %w", run.ID, err)
		}
		if run.CompletedAt, err = time.Parse(historyTimeFormat, completed); err != nil {
			return nil, fmt.Errorf("scanning history row %s: completed_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Items returns the recorded items of one batch in input order
func (h *History) Items(ctx context.Context, batchID string) ([]HistoryItem, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT idx, url, status, error, result_file
		FROM batch_items WHERE batch_id = ? ORDER BY idx`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying batch items: %w", err)
	}
	defer rows.Close()

	var items []HistoryItem
	for rows.Next() {
		var (
			item   HistoryItem
			status string
		)
		if err := rows.Scan(&item.Index, &item.URL, &status, &item.Error, &item.ResultFile); err != nil {
			return nil, fmt.Errorf("scanning batch item: %w", err)
		}
		item.Status = ItemStatus(status)
		items = append(items, item)
	}
	return items, rows.Err()
}
