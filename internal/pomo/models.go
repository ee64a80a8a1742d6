package pomo

import "time"

// Mode is the timer mode a session was recorded in.
type Mode string

const (
	ModeWork  Mode = "work"
	ModeBreak Mode = "break"
)

// Label is the display name of the mode.
func (m Mode) Label() string {
	if m == ModeBreak {
		return "Break"
	}
	return "Focus"
}

// DefaultBreakDescription is used when a break ends without a description.
const DefaultBreakDescription = "Break"

// DefaultColor is the colour token used when none is supplied.
const DefaultColor = "#0891b2"

// Palette lists the colour tokens offered for categories.
var Palette = []string{"#0891b2", "#8b5cf6", "#f59e0b", "#10b981", "#ec4899", "#ef4444"}

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDefault bool   `json:"isDefault"`
}

// Session is a completed work or break interval. CategoryName and
// CategoryColor are snapshots taken when the session was recorded.
type Session struct {
	Description   string    `json:"description"`
	Mode          Mode      `json:"mode"`
	Timestamp     time.Time `json:"timestamp"`
	Duration      int64     `json:"duration"` // seconds
	CategoryID    string    `json:"category"`
	CategoryName  string    `json:"categoryName"`
	CategoryColor string    `json:"categoryColor"`
}

// Completed is what the timer engine reports when a work session finishes
// or a break ends. It carries no category; the caller supplies one.
type Completed struct {
	Description string
	Mode        Mode
	Duration    int64 // seconds
	EndedAt     time.Time
}
