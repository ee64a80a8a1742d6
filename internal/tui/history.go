package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/tomato/internal/clock"
	"github.com/sadopc/tomato/internal/pomo"
	"github.com/sadopc/tomato/internal/tracker"
)

// historyModel lists the sessions of one day: today first, then each
// earlier day that has sessions.
type historyModel struct {
	tracker *tracker.Tracker
	clock   clock.Clock
	width   int
	height  int

	days     []string // day keys, today first
	dayIdx   int
	sessions []pomo.Session
	cursor   int

	confirming bool
	form       *huh.Form
	confirmed  *bool
}

func newHistoryModel(t *tracker.Tracker, c clock.Clock) historyModel {
	ok := false
	h := historyModel{tracker: t, clock: c, confirmed: &ok}
	h.reload()
	return h
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

// reload re-reads the history, keeping the selected day when it still
// exists.
func (h *historyModel) reload() {
	now := h.clock.Now()
	current := ""
	if h.dayIdx < len(h.days) {
		current = h.days[h.dayIdx]
	}

	h.days = append([]string{h.tracker.Sessions.DayKey(now)}, h.tracker.Sessions.AvailableDays(now)...)
	h.dayIdx = 0
	for i, d := range h.days {
		if d == current {
			h.dayIdx = i
		}
	}

	h.sessions = nil
	for s := range h.tracker.Sessions.ByDay(h.days[h.dayIdx]) {
		h.sessions = append(h.sessions, s)
	}
	if h.cursor >= len(h.sessions) {
		h.cursor = max(0, len(h.sessions)-1)
	}
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	if h.confirming && h.form != nil {
		return h.updateConfirm(msg)
	}

	switch msg := msg.(type) {
	case dataChangedMsg:
		h.reload()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			if h.dayIdx < len(h.days)-1 {
				h.dayIdx++
				h.cursor = 0
				h.reload()
			}
		case key.Matches(msg, keys.Right):
			if h.dayIdx > 0 {
				h.dayIdx--
				h.cursor = 0
				h.reload()
			}
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.sessions)-1 {
				h.cursor++
			}
		case key.Matches(msg, keys.Clear):
			if h.tracker.Sessions.Len() > 0 {
				return h.showConfirm()
			}
		}
	}
	return h, nil
}

func (h historyModel) showConfirm() (historyModel, tea.Cmd) {
	*h.confirmed = false
	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Clear all history?").
				Description(fmt.Sprintf("%d session(s) will be removed. This cannot be undone.", h.tracker.Sessions.Len())).
				Affirmative("Clear").
				Negative("Cancel").
				Value(h.confirmed),
		),
	)
	h.confirming = true
	return h, h.form.Init()
}

func (h historyModel) updateConfirm(msg tea.Msg) (historyModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		h.confirming = false
		h.form = nil
		return h, nil
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	switch h.form.State {
	case huh.StateCompleted:
		h.confirming = false
		h.form = nil
		if *h.confirmed {
			return h.clear()
		}
		return h, nil
	case huh.StateAborted:
		h.confirming = false
		h.form = nil
		return h, nil
	}
	return h, cmd
}

func (h historyModel) clear() (historyModel, tea.Cmd) {
	h.tracker.Sessions.Clear()
	h.dayIdx = 0
	h.cursor = 0
	h.reload()
	return h, func() tea.Msg { return statusMsg{text: "History cleared"} }
}

func (h historyModel) view() string {
	if h.width < 20 {
		return "Terminal too small"
	}
	w := h.width - 4

	if h.confirming && h.form != nil {
		return activePanelStyle.Width(w).Render(h.form.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		h.renderSummaryPanel(w),
		h.renderSessionsPanel(w),
	)
}

func (h historyModel) dayLabel() string {
	if h.dayIdx == 0 {
		return "Today"
	}
	return h.days[h.dayIdx]
}

func (h historyModel) renderSummaryPanel(w int) string {
	var focus, breaks int64
	perCategory := make(map[string]int64)
	var order []pomo.Session
	for _, s := range h.sessions {
		if s.Mode == pomo.ModeBreak {
			breaks += s.Duration
			continue
		}
		focus += s.Duration
		if _, seen := perCategory[s.CategoryID]; !seen {
			order = append(order, s)
		}
		perCategory[s.CategoryID] += s.Duration
	}

	header := fmt.Sprintf("%s  %s  %s",
		titleStyle.Render(h.dayLabel()),
		focusStyle.Render("focus "+pomo.FormatDuration(focus)),
		breakStyle.Render("break "+pomo.FormatDuration(breaks)),
	)

	rows := []string{header}
	for _, s := range order {
		rows = append(rows, fmt.Sprintf("  %s %-20s %s",
			colorDot(s.CategoryColor), s.CategoryName, pomo.FormatDuration(perCategory[s.CategoryID])))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (h historyModel) renderSessionsPanel(w int) string {
	nav := ""
	if len(h.days) > 1 {
		nav = mutedStyle.Render(fmt.Sprintf("  (%d/%d)", h.dayIdx+1, len(h.days)))
	}
	title := titleStyle.Render("Sessions") + nav

	if len(h.sessions) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No sessions yet"),
			"",
			mutedStyle.Render("  ←/→: day  c: clear"),
		)
		return panelStyle.Width(w).Render(content)
	}

	now := h.clock.Now()
	rows := []string{title}
	for i, s := range h.sessions {
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		mode := focusStyle.Render("●")
		if s.Mode == pomo.ModeBreak {
			mode = breakStyle.Render("○")
		}
		when := humanize.RelTime(s.Timestamp, now, "ago", "from now")
		rows = append(rows, fmt.Sprintf("%s%s %s %s %s  %s",
			cursor,
			mode,
			style.Render(fmt.Sprintf("%-28s", truncate(s.Description, 28))),
			badge(s.CategoryName, s.CategoryColor),
			highlightStyle.Render(fmt.Sprintf("%8s", pomo.FormatDuration(s.Duration))),
			mutedStyle.Render(s.Timestamp.Local().Format("15:04")+" · "+when),
		))
	}
	rows = append(rows, "", mutedStyle.Render("  ←/→: day  ↑/↓: move  c: clear"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
