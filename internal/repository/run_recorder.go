package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// SQLiteRunRecorder persists update outcomes to a SQLite database.
type SQLiteRunRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRunRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRunRecorder(dbPath string, l *applogger.Logger) (*SQLiteRunRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRunRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if l != nil {
		l.Info("run history opened", applogger.String("path", dbPath))
	}
	return r, nil
}

func (r *SQLiteRunRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS update_runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			ticker        TEXT NOT NULL,
			status        TEXT NOT NULL,
			rows_added    INTEGER NOT NULL DEFAULT 0,
			artifact_path TEXT,
			error         TEXT,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_update_runs_started ON update_runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_update_runs_ticker ON update_runs(ticker)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRunRecorder) Record(ctx context.Context, o models.UpdateOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO update_runs (run_id, ticker, status, rows_added, artifact_path, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Instrument, o.Status, o.RowsAdded, o.ArtifactPath, o.Error,
		o.StartedAt.UnixMilli(), o.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns up to limit outcomes, newest first.
func (r *SQLiteRunRecorder) Recent(ctx context.Context, limit int) ([]models.UpdateOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, ticker, status, rows_added, COALESCE(artifact_path, ''), COALESCE(error, ''), started_at, finished_at
		 FROM update_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []models.UpdateOutcome
	for rows.Next() {
		var (
			o               models.UpdateOutcome
			started, finish int64
		)
		if err := rows.Scan(&o.RunID, &o.Instrument, &o.Status, &o.RowsAdded, &o.ArtifactPath, &o.Error, &started, &finish); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		o.StartedAt = time.UnixMilli(started).UTC()
		o.FinishedAt = time.UnixMilli(finish).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRunRecorder) Close() error {
	return r.db.Close()
}

// NopRunRecorder discards outcomes.
type NopRunRecorder struct{}

func (NopRunRecorder) Record(context.Context, models.UpdateOutcome) error { return nil }

func (NopRunRecorder) Recent(context.Context, int) ([]models.UpdateOutcome, error) { return nil, nil }

func (NopRunRecorder) Close() error { return nil }

var (
	_ domrepo.RunRecorder = (*SQLiteRunRecorder)(nil)
	_ domrepo.RunRecorder = NopRunRecorder{}
)
