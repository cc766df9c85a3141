// Package store provides the durable local state of snooze-cli: a small
// SQLite key-value table holding the remembered session.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/robertmeta/snooze-cli/model"
	_ "modernc.org/sqlite"
)

// Keys used for the remembered session.
const (
	KeyToken    = "token"
	KeyUsername = "username"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}

	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// SaveCredentials stores the token and username together.
func (s *Store) SaveCredentials(c model.Credentials) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := "INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := tx.Exec(upsert, KeyToken, c.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if _, err := tx.Exec(upsert, KeyUsername, c.Username); err != nil {
		return fmt.Errorf("failed to save username: %w", err)
	}
	return tx.Commit()
}

// LoadCredentials returns the remembered session. Missing entries are
// returned as empty strings; check Credentials.Valid.
func (s *Store) LoadCredentials() (model.Credentials, error) {
	var c model.Credentials

	token, err := s.Get(KeyToken)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return c, err
	}
	username, err := s.Get(KeyUsername)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return c, err
	}

	c.Token = token
	c.Username = username
	return c, nil
}

// ClearCredentials removes the token and username together.
func (s *Store) ClearCredentials() error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key IN (?, ?)", KeyToken, KeyUsername)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
