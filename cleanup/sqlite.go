package cleanup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLedger persists entries in a local SQLite file.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens the database at dbPath and creates the table if
// needed.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	createSQL := `CREATE TABLE IF NOT EXISTS pending_assets (
		asset_id        TEXT PRIMARY KEY,
		kind            TEXT NOT NULL DEFAULT '',
		scope_id        TEXT NOT NULL DEFAULT '',
		record_id       TEXT NOT NULL DEFAULT '',
		attempts        INTEGER NOT NULL DEFAULT 0,
		last_error      TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		last_attempt_at TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedger) Add(ctx context.Context, p Pending) error {
	if p.AssetID == "" {
		return errors.New("cleanup: empty asset id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_assets (asset_id, kind, scope_id, record_id, attempts, last_error, created_at, last_attempt_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET
			kind = excluded.kind,
			scope_id = excluded.scope_id,
			record_id = excluded.record_id,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			created_at = excluded.created_at,
			last_attempt_at = excluded.last_attempt_at`,
		p.AssetID, p.Kind, p.ScopeID, p.RecordID, p.Attempts, p.LastError,
		formatTime(p.CreatedAt), formatTime(p.LastAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("cleanup: insert pending asset: %w", err)
	}
	return nil
}

func (s *SQLiteLedger) List(ctx context.Context) ([]Pending, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT asset_id, kind, scope_id, record_id, attempts, last_error, created_at, last_attempt_at
		 FROM pending_assets`)
	if err != nil {
		return nil, fmt.Errorf("cleanup: list pending assets: %w", err)
	}
	defer rows.Close()

	var out []Pending
	for rows.Next() {
		var p Pending
		var created, attempted string
		if err := rows.Scan(&p.AssetID, &p.Kind, &p.ScopeID, &p.RecordID, &p.Attempts, &p.LastError, &created, &attempted); err != nil {
			return nil, fmt.Errorf("cleanup: scan pending asset: %w", err)
		}
		p.CreatedAt = parseTime(created)
		p.LastAttemptAt = parseTime(attempted)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortPending(out)
	return out, nil
}

func (s *SQLiteLedger) Remove(ctx context.Context, assetID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_assets WHERE asset_id = ?`, assetID)
	if err != nil {
		return fmt.Errorf("cleanup: delete pending asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
