package store

import (
	"fmt"
	"strconv"
	"time"
)

// Setting keys.
const (
	SettingWorkDuration  = "work_duration" // seconds
	SettingNotifications = "notifications" // on|off
	SettingSound         = "sound"         // on|off
)

type Setting struct {
	Key   string
	Value string
}

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// WorkDuration reads the work duration setting, falling back when it is
// missing or not a positive number of seconds.
func (s *Store) WorkDuration(fallback time.Duration) time.Duration {
	v, err := s.GetSetting(SettingWorkDuration)
	if err != nil {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

// Enabled reports whether an on/off setting is on. Missing keys are on.
func (s *Store) Enabled(key string) bool {
	v, err := s.GetSetting(key)
	if err != nil {
		return true
	}
	return v != "off"
}
