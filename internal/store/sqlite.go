package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

// SQLiteStore holds the dashboard's local-only durable state: draft overlays,
// the assignment fallback cache, and the confidence threshold. None of it is
// ever pushed to the backend wholesale; drafts leave the store only as the
// payload of an explicit send.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	email_id INTEGER PRIMARY KEY,
	body     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS assignments (
	email_id INTEGER PRIMARY KEY,
	person   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveDraft upserts the overlay text for an email.
func (s *SQLiteStore) SaveDraft(ctx context.Context, id int, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (email_id, body) VALUES (?, ?)
		ON CONFLICT(email_id) DO UPDATE SET body = excluded.body
	`, id, text)
	return err
}

// DeleteDraft removes the overlay for an email, if present.
func (s *SQLiteStore) DeleteDraft(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE email_id = ?", id)
	return err
}

// LoadDrafts returns every persisted overlay.
func (s *SQLiteStore) LoadDrafts(ctx context.Context) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT email_id, body FROM drafts")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var id int
		var body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		out[id] = body
	}
	return out, rows.Err()
}

// SaveAssignments replaces the assignment fallback cache.
func (s *SQLiteStore) SaveAssignments(ctx context.Context, m map[int]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM assignments"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO assignments (email_id, person) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, person := range m {
		if _, err := stmt.ExecContext(ctx, id, person); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadAssignments returns the cached id -> advisor map. Used as a fallback
// when the backend's assignments endpoint is unreachable.
func (s *SQLiteStore) LoadAssignments(ctx context.Context) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT email_id, person FROM assignments")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var id int
		var person string
		if err := rows.Scan(&id, &person); err != nil {
			return nil, err
		}
		out[id] = person
	}
	return out, rows.Err()
}

// Threshold returns the persisted confidence threshold, or def when none has
// been stored yet.
func (s *SQLiteStore) Threshold(ctx context.Context, def float64) (float64, error) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'confidence_threshold'").Scan(&val)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def, nil
	}
	return f, nil
}

// SetThreshold persists the confidence threshold.
func (s *SQLiteStore) SetThreshold(ctx context.Context, v float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES ('confidence_threshold', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.FormatFloat(v, 'f', -1, 64))
	return err
}
