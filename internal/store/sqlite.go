package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// runTimeLayout has fixed-width fractions so timestamps sort as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores blobs and the run history in a single database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at the given path.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, errors.New("store: sqlite path is empty")
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Read returns the blob stored under key.
func (s *SQLite) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %q: %w", key, err)
	}
	return data, nil
}

// Write replaces the blob stored under key in a single statement.
func (s *SQLite) Write(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO blobs (key, data, updated_at) VALUES (?, ?, ?)`,
		key, data, now)
	if err != nil {
		return fmt.Errorf("writing blob %q: %w", key, err)
	}
	return nil
}

// RecordRun appends a collection run to the history.
func (s *SQLite) RecordRun(ctx context.Context, r Run) error {
	var errText sql.NullString
	if r.Error != "" {
		errText = sql.NullString{String: r.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO collection_runs
		(id, started_at, finished_at, host, collected, updated, total, pages, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(runTimeLayout), r.FinishedAt.UTC().Format(runTimeLayout),
		r.Host, r.Collected, r.Updated, r.Total, r.Pages, errText,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// RecentRuns returns up to n runs, newest first.
func (s *SQLite) RecentRuns(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, started_at, finished_at, host, collected, updated, total, pages, error
		FROM collection_runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var startStr, endStr string
		var host, errText sql.NullString
		if err := rows.Scan(&r.ID, &startStr, &endStr, &host, &r.Collected, &r.Updated,
			&r.Total, &r.Pages, &errText); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(runTimeLayout, startStr)
		r.FinishedAt, _ = time.Parse(runTimeLayout, endStr)
		r.Host = host.String
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
