package pomo

import "fmt"

// FormatClock renders seconds as MM:SS. Minutes are not wrapped at 60.
func FormatClock(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// FormatDuration renders a session length for history lists:
// "45 sec", "25 min", "1h 5m", "2h".
func FormatDuration(secs int64) string {
	if secs < 60 {
		return fmt.Sprintf("%d sec", max(secs, 0))
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	if h > 0 {
		if m > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%d min", m)
}
