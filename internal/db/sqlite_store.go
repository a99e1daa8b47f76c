// Package db provides the SQLite-backed record store, selected over the JSON
// file store when SCOUTBOT_SQLITE_PATH is set.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ollkyy/scoutbot/internal/models"
)

const (
	setSubmitted = "submitted"
	setAccepted  = "accepted"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	set_name    TEXT    NOT NULL,
	identity    INTEGER NOT NULL,
	recorded_at TEXT    NOT NULL,
	PRIMARY KEY (set_name, identity)
)`

type SQLiteStore struct {
	db *sql.DB
}

func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := sqliteDB.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if _, err := sqliteDB.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: sqliteDB}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) MarkSubmitted(id models.Identity, at time.Time) error {
	return s.upsert(setSubmitted, id, at)
}

func (s *SQLiteStore) MarkAccepted(id models.Identity, at time.Time) error {
	return s.upsert(setAccepted, id, at)
}

func (s *SQLiteStore) upsert(set string, id models.Identity, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO records (set_name, identity, recorded_at) VALUES (?, ?, ?)
		 ON CONFLICT (set_name, identity) DO UPDATE SET recorded_at = excluded.recorded_at`,
		set, int64(id), at.Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) AcceptedAt(id models.Identity) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT recorded_at FROM records WHERE set_name = ? AND identity = ?`,
		setAccepted, int64(id)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse recorded_at: %w", err)
	}
	return at, true, nil
}

func (s *SQLiteStore) ListAccepted() (map[models.Identity]time.Time, error) {
	return s.list(setAccepted)
}

func (s *SQLiteStore) ListSubmitted() (map[models.Identity]time.Time, error) {
	return s.list(setSubmitted)
}

func (s *SQLiteStore) list(set string) (map[models.Identity]time.Time, error) {
	rows, err := s.db.Query(`SELECT identity, recorded_at FROM records WHERE set_name = ?`, set)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[models.Identity]time.Time{}
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		out[models.Identity(id)] = at
	}
	return out, rows.Err()
}
