package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"catalogcsv/internal"
)

const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'running',
  startedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  finishedAt TEXT,
  countsJson TEXT NOT NULL DEFAULT '{}',
  error TEXT
);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  stage TEXT NOT NULL,
  catalogJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(runId, stage),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS product_images (
  sku TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  urlsJson TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertRun opens a run in the running state and returns its id.
func (d *DB) InsertRun(traceID string) (int64, error) {
	res, err := d.conn.Exec(`INSERT INTO runs (traceId, status) VALUES (?, ?)`, traceID, RunRunning)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) FinishRun(id int64, status string, counts internal.RunCounts, runErr error) error {
	countsJSON, _ := json.Marshal(counts)
	var errText *string
	if runErr != nil {
		msg := runErr.Error()
		errText = &msg
	}
	_, err := d.conn.Exec(`
UPDATE runs SET status = ?, countsJson = ?, error = ?, finishedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, status, string(countsJSON), errText, id)
	return err
}

func (d *DB) GetRun(id int64) (*internal.RunRow, error) {
	row := d.conn.QueryRow(`
SELECT id, traceId, status, startedAt, finishedAt, countsJson, error
FROM runs WHERE id = ?
`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, traceId, status, startedAt, finishedAt, countsJson, error
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (internal.RunRow, error) {
	var run internal.RunRow
	var countsJSON string
	if err := s.Scan(&run.ID, &run.TraceID, &run.Status, &run.StartedAt, &run.FinishedAt, &countsJSON, &run.Error); err != nil {
		return internal.RunRow{}, err
	}
	_ = json.Unmarshal([]byte(countsJSON), &run.Counts)
	return run, nil
}

// SaveSnapshot stores the catalog JSON a run produced at one stage. Saving the same
// stage twice replaces the earlier blob.
func (d *DB) SaveSnapshot(runID int64, stage string, catalogJSON []byte) error {
	_, err := d.conn.Exec(`
INSERT INTO snapshots (runId, stage, catalogJson) VALUES (?, ?, ?)
ON CONFLICT(runId, stage) DO UPDATE SET catalogJson = excluded.catalogJson, createdAt = CURRENT_TIMESTAMP
`, runID, stage, string(catalogJSON))
	return err
}

// LatestSnapshot returns the newest catalog JSON for stage, or nil when none exists.
func (d *DB) LatestSnapshot(stage string) ([]byte, error) {
	var blob string
	err := d.conn.QueryRow(`
SELECT catalogJson FROM snapshots WHERE stage = ? ORDER BY id DESC LIMIT 1
`, stage).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(blob), nil
}

func (d *DB) UpsertImages(sku, provider string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
INSERT INTO product_images (sku, provider, urlsJson) VALUES (?, ?, ?)
ON CONFLICT(sku) DO UPDATE SET provider = excluded.provider, urlsJson = excluded.urlsJson, updatedAt = CURRENT_TIMESTAMP
`, sku, provider, string(urlsJSON))
	return err
}

// GetImages returns the last recorded URLs for sku; ok is false when none were recorded.
func (d *DB) GetImages(sku string) (urls []string, ok bool, err error) {
	var urlsJSON string
	err = d.conn.QueryRow(`SELECT urlsJson FROM product_images WHERE sku = ?`, sku).Scan(&urlsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(urlsJSON), &urls); err != nil {
		return nil, false, fmt.Errorf("images for %s: %w", sku, err)
	}
	return urls, true, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
