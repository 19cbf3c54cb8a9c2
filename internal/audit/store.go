// Package audit records every ingestion decision in a local SQLite
// database: what arrived, what the policy decided, and what was stored.
// Recording is best effort; a failed write never blocks a user reply.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one ingestion decision.
type Entry struct {
	ID           int64
	ChatID       int64
	Kind         string // text | audio | voice | document | unknown
	Verdict      string // accepted | rejected_type | rejected_size | failed
	FileName     string // sanitized declared name, never the raw one
	MimeType     string
	DeclaredSize int64
	StoredPath   string
	StoredSize   int64
	Digest       string
	CreatedAt    time.Time
}

// Store is a write-mostly SQLite audit log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingests (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id       INTEGER NOT NULL,
		kind          TEXT NOT NULL,
		verdict       TEXT NOT NULL,
		file_name     TEXT,
		mime_type     TEXT,
		declared_size INTEGER DEFAULT 0,
		stored_path   TEXT,
		stored_size   INTEGER DEFAULT 0,
		digest        TEXT,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ingests_time ON ingests(created_at);
	CREATE INDEX IF NOT EXISTS idx_ingests_chat ON ingests(chat_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one ingestion decision.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingests (chat_id, kind, verdict, file_name, mime_type, declared_size, stored_path, stored_size, digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ChatID, e.Kind, e.Verdict, e.FileName, e.MimeType, e.DeclaredSize, e.StoredPath, e.StoredSize, e.Digest,
	)
	if err != nil {
		return fmt.Errorf("record ingest: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, kind, verdict, file_name, mime_type, declared_size, stored_path, stored_size, digest, created_at
		 FROM ingests ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ChatID, &e.Kind, &e.Verdict, &e.FileName, &e.MimeType,
			&e.DeclaredSize, &e.StoredPath, &e.StoredSize, &e.Digest, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByVerdict returns how many entries carry the given verdict.
func (s *Store) CountByVerdict(ctx context.Context, verdict string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ingests WHERE verdict = ?`, verdict).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
