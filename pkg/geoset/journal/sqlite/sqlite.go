// Package sqlite persists the run journal in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/geoset/pkg/geoset/journal"
)

type sqliteJournal struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite journal with WAL mode
// enabled.
func Open(ctx context.Context, path string) (journal.Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteJournal{db: db}, nil
}

func (j *sqliteJournal) Close() error {
	return j.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	dataset TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS stage_records (
	run_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	UNIQUE(run_id, stage),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset, started_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (j *sqliteJournal) BeginRun(ctx context.Context, dataset string) (journal.Run, error) {
	run := journal.Run{
		ID:        journal.NewRunID(),
		Dataset:   dataset,
		Status:    journal.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Dataset, run.Status, run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return journal.Run{}, err
	}
	return run, nil
}

func (j *sqliteJournal) FinishRun(ctx context.Context, runID, status string) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), runID)
	return err
}

func (j *sqliteJournal) RecordStage(ctx context.Context, rec journal.StageRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO stage_records (run_id, stage, status, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, stage) DO UPDATE SET
			status = excluded.status,
			duration_ms = excluded.duration_ms,
			error = excluded.error`,
		rec.RunID, rec.Stage, rec.Status, rec.Duration.Milliseconds(), rec.Error)
	return err
}

func (j *sqliteJournal) Runs(ctx context.Context, dataset string, limit int) ([]journal.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, dataset, status, started_at, COALESCE(finished_at, '')
		 FROM runs WHERE dataset = ? ORDER BY id DESC LIMIT ?`,
		dataset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []journal.Run
	for rows.Next() {
		var r journal.Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Status, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (j *sqliteJournal) StageRecords(ctx context.Context, runID string) ([]journal.StageRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, stage, status, duration_ms, error
		 FROM stage_records WHERE run_id = ? ORDER BY rowid`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []journal.StageRecord
	for rows.Next() {
		var rec journal.StageRecord
		var ms int64
		if err := rows.Scan(&rec.RunID, &rec.Stage, &rec.Status, &ms, &rec.Error); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
