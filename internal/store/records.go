package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Load returns the record stored under key. ok is false when the key has
// never been saved.
func (s *Store) Load(key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load record %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Save replaces the record stored under key.
func (s *Store) Save(key string, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), now,
	)
	if err != nil {
		return fmt.Errorf("save record %q: %w", key, err)
	}
	return nil
}

// UpdatedAt reports when key was last saved.
func (s *Store) UpdatedAt(key string) (time.Time, error) {
	var updatedAt string
	err := s.db.QueryRow(`SELECT updated_at FROM records WHERE key = ?`, key).Scan(&updatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("record %q updated_at: %w", key, err)
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse updated_at of %q: %w", key, err)
	}
	return t, nil
}
