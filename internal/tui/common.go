package tui

import (
	"fmt"

	"github.com/sadopc/tomato/internal/pomo"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewHistory
	viewCategories
	viewReports
	viewSettings
)

var viewNames = []string{"Timer", "History", "Categories", "Reports", "Settings"}

// --- Messages ---

// Engine events, delivered through the event queue.
type (
	engineTickMsg struct {
		seconds int64
		mode    pomo.Mode
	}
	modeChangedMsg struct {
		mode pomo.Mode
	}
	sessionCompletedMsg struct {
		completed pomo.Completed
	}
	workCompletedMsg struct {
		description string
	}
	engineEventsMsg []any
)

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

type dataChangedMsg struct{}

func errStatus(err error) statusMsg {
	return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
}

// --- Helpers ---

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

func colorDot(color string) string {
	return dotStyle(color).Render("●")
}
