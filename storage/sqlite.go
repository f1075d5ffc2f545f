package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"idx_sync/models"
)

// Journal is the local SQLite record of sync runs, their per-type outcome
// and their log lines.
type Journal struct {
	db *sql.DB
}

func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		env TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		next_run_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS sync_type_results (
		run_id TEXT NOT NULL,
		type TEXT NOT NULL,
		row_count INTEGER,
		upserted INTEGER,
		inserted INTEGER,
		malformed INTEGER,
		store_errors INTEGER,
		retired INTEGER,
		swept BOOLEAN,
		sweep_error TEXT,
		PRIMARY KEY (run_id, type),
		FOREIGN KEY (run_id) REFERENCES sync_runs(id)
	);

	CREATE TABLE IF NOT EXISTS sync_logs (
		id INTEGER PRIMARY KEY,
		run_id TEXT,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		listing_type TEXT,
		listing_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sync_logs_run ON sync_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_env ON sync_runs(env, started_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *Journal) CreateRun(run *models.SyncRun) error {
	_, err := j.db.Exec(`
		INSERT INTO sync_runs (id, env, started_at, status, next_run_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID.String(), run.Env, run.StartedAt, run.Status, run.NextRunAt)
	return err
}

func (j *Journal) FinishRun(run *models.SyncRun) error {
	_, err := j.db.Exec(`
		UPDATE sync_runs SET finished_at = ?, status = ? WHERE id = ?`,
		run.FinishedAt, run.Status, run.ID.String())
	return err
}

func (j *Journal) SaveTypeResult(r *models.TypeResult) error {
	_, err := j.db.Exec(`
		INSERT INTO sync_type_results (run_id, type, row_count, upserted, inserted, malformed,
			store_errors, retired, swept, sweep_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, type) DO UPDATE SET
			row_count = excluded.row_count,
			upserted = excluded.upserted,
			inserted = excluded.inserted,
			malformed = excluded.malformed,
			store_errors = excluded.store_errors,
			retired = excluded.retired,
			swept = excluded.swept,
			sweep_error = excluded.sweep_error`,
		r.RunID.String(), r.Type, r.Rows, r.Upserted, r.Inserted, r.Malformed,
		r.StoreErrors, r.Retired, r.Swept, r.SweepError)
	return err
}

func (j *Journal) Log(entry *models.SyncLog) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := j.db.Exec(`
		INSERT INTO sync_logs (run_id, timestamp, level, message, listing_type, listing_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.RunID.String(), ts, entry.Level, entry.Message, entry.ListingType, entry.ListingID)
	return err
}

// LastRun returns the most recent run for env, or nil if there is none
func (j *Journal) LastRun(env string) (*models.SyncRun, error) {
	var (
		run        models.SyncRun
		id         string
		finishedAt sql.NullTime
		nextRunAt  sql.NullTime
	)
	err := j.db.QueryRow(`
		SELECT id, env, started_at, finished_at, status, next_run_at
		FROM sync_runs WHERE env = ? ORDER BY started_at DESC LIMIT 1`, env).
		Scan(&id, &run.Env, &run.StartedAt, &finishedAt, &run.Status, &nextRunAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	if nextRunAt.Valid {
		run.NextRunAt = &nextRunAt.Time
	}
	return &run, nil
}

// TypeResults returns the per-type outcome of a run in processing order
func (j *Journal) TypeResults(runID uuid.UUID) ([]models.TypeResult, error) {
	rows, err := j.db.Query(`
		SELECT type, row_count, upserted, inserted, malformed, store_errors, retired, swept, sweep_error
		FROM sync_type_results WHERE run_id = ?
		ORDER BY CASE type WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END`,
		runID.String(), models.ListingTypeSingleFamily, models.ListingTypeMultiFamily)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.TypeResult
	for rows.Next() {
		r := models.TypeResult{RunID: runID}
		if err := rows.Scan(&r.Type, &r.Rows, &r.Upserted, &r.Inserted, &r.Malformed,
			&r.StoreErrors, &r.Retired, &r.Swept, &r.SweepError); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// LogCount returns the number of journal log lines for a run at level
func (j *Journal) LogCount(runID uuid.UUID, level models.LogLevel) (int, error) {
	var count int
	err := j.db.QueryRow(`
		SELECT COUNT(*) FROM sync_logs WHERE run_id = ? AND level = ?`,
		runID.String(), level).Scan(&count)
	return count, err
}
