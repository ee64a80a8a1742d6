// Package export writes the session history to CSV or JSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/tomato/internal/pomo"
)

var csvHeader = []string{"Timestamp", "Mode", "Description", "Category", "Duration (s)", "Duration"}

// ToCSV writes sessions to a new CSV file at path.
func ToCSV(sessions []pomo.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	return WriteCSV(f, sessions)
}

// WriteCSV writes a header row and one row per session, in the order given.
func WriteCSV(out io.Writer, sessions []pomo.Session) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			s.Timestamp.Local().Format(time.RFC3339),
			string(s.Mode),
			s.Description,
			s.CategoryName,
			strconv.FormatInt(s.Duration, 10),
			pomo.FormatDuration(s.Duration),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
