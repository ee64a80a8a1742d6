// Package config loads the startup configuration and builds the logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/tomato/internal/store"
)

const (
	appName        = "tomato"
	configFileName = "config.yaml"
)

// Config is the process configuration. Timer preferences that the user edits
// at runtime live in the settings table, not here.
type Config struct {
	DBPath       string
	LogPath      string
	LogLevel     slog.Level
	TickInterval time.Duration
}

type yamlConfig struct {
	DBPath         string `yaml:"db_path"`
	LogPath        string `yaml:"log_path"`
	LogLevel       string `yaml:"log_level"`
	TickIntervalMS int    `yaml:"tick_interval_ms"`
}

// Dir returns ~/.config/tomato.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultPath returns the location of the config file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Default returns the configuration used when no file is present.
func Default() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return Config{}, err
	}
	return Config{
		DBPath:       dbPath,
		LogPath:      filepath.Join(dir, "tomato.log"),
		LogLevel:     slog.LevelInfo,
		TickInterval: 100 * time.Millisecond,
	}, nil
}

// Load reads the YAML file at path on top of the defaults. A missing file
// is not an error. Unknown log levels and out-of-range tick intervals are
// ignored.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var file yamlConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}

	apply(&cfg, file)
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	out, err := yaml.Marshal(yamlConfig{
		DBPath:         cfg.DBPath,
		LogPath:        cfg.LogPath,
		LogLevel:       strings.ToLower(cfg.LogLevel.String()),
		TickIntervalMS: int(cfg.TickInterval / time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func apply(cfg *Config, file yamlConfig) {
	if file.DBPath != "" {
		cfg.DBPath = expandHome(file.DBPath)
	}
	if file.LogPath != "" {
		cfg.LogPath = expandHome(file.LogPath)
	}
	if lvl, ok := parseLevel(file.LogLevel); ok {
		cfg.LogLevel = lvl
	}
	if file.TickIntervalMS >= 10 && file.TickIntervalMS <= 1000 {
		cfg.TickInterval = time.Duration(file.TickIntervalMS) * time.Millisecond
	}
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// NewLogger opens cfg.LogPath for appending and returns a text logger that
// writes to it. The returned closer releases the file. If the file cannot be
// opened the logger discards everything.
func NewLogger(cfg Config) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return slog.New(slog.DiscardHandler), io.NopCloser(nil), fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.DiscardHandler), io.NopCloser(nil), fmt.Errorf("open log file: %w", err)
	}
	return newLogger(f, cfg.LogLevel), f, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
