package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/tomato/internal/pomo"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	TotalFocus int64         `json:"total_focus_seconds"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	Timestamp     string `json:"timestamp"`
	Mode          string `json:"mode"`
	Description   string `json:"description"`
	CategoryID    string `json:"category_id"`
	Category      string `json:"category"`
	CategoryColor string `json:"category_color,omitempty"`
	DurationSec   int64  `json:"duration_seconds"`
	Duration      string `json:"duration"`
}

// ToJSON writes sessions to a new, indented JSON file at path.
func ToJSON(sessions []pomo.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	return WriteJSON(f, sessions, time.Now())
}

// WriteJSON writes the export document with exportedAt as its timestamp.
func WriteJSON(w io.Writer, sessions []pomo.Session, exportedAt time.Time) error {
	export := jsonExport{
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Count:      len(sessions),
	}

	for _, s := range sessions {
		if s.Mode == pomo.ModeWork {
			export.TotalFocus += s.Duration
		}
		export.Sessions = append(export.Sessions, jsonSession{
			Timestamp:     s.Timestamp.Local().Format(time.RFC3339),
			Mode:          string(s.Mode),
			Description:   s.Description,
			CategoryID:    s.CategoryID,
			Category:      s.CategoryName,
			CategoryColor: s.CategoryColor,
			DurationSec:   s.Duration,
			Duration:      pomo.FormatDuration(s.Duration),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
