package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps stage artifacts in a single SQLite database, one row
// per stage. WAL mode allows concurrent readers while the controller
// writes.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite creates or opens the artifact database at dbPath and migrates
// the schema.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS artifacts (
		stage      TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Read loads and unmarshals the stage artifact.
func (s *SQLiteStore) Read(stage string, out any) error {
	var payload string
	err := s.conn.QueryRow("SELECT payload FROM artifacts WHERE stage = ?", stage).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", stage, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode artifact %s: %w", stage, err)
	}
	return nil
}

// Write upserts the stage artifact.
func (s *SQLiteStore) Write(stage string, artifact any) error {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", stage, err)
	}

	_, err = s.conn.Exec(
		`INSERT INTO artifacts (stage, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(stage) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		stage, string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write artifact %s: %w", stage, err)
	}
	return nil
}
