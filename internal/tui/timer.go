package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tomato/internal/clock"
	"github.com/sadopc/tomato/internal/engine"
	"github.com/sadopc/tomato/internal/pomo"
	"github.com/sadopc/tomato/internal/tracker"
)

const breakPrompt = "What did you do during your break?"

// timerModel is the Timer view: the description input, the category
// selector and the clock. All timing lives in the engine; the view only
// renders snapshots and forwards commands.
type timerModel struct {
	engine  *engine.Engine
	tracker *tracker.Tracker
	clock   clock.Clock
	width   int
	height  int

	snap       engine.Snapshot
	input      textinput.Model
	categoryID string
	err        string

	formActive bool
	form       *huh.Form
	breakDesc  *string // survives value copies
}

func newTimerModel(e *engine.Engine, t *tracker.Tracker, c clock.Clock) timerModel {
	ti := textinput.New()
	ti.Placeholder = "What are you working on?"
	ti.CharLimit = 120
	ti.Width = 40

	desc := ""
	return timerModel{
		engine:     e,
		tracker:    t,
		clock:      c,
		snap:       e.Snapshot(),
		input:      ti,
		categoryID: t.Categories.Default().ID,
		breakDesc:  &desc,
	}
}

func (m *timerModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.input.Width = max(20, min(60, w-20))
}

// editing reports whether keystrokes belong to the description input or
// the break form rather than to the global key map.
func (m timerModel) editing() bool {
	return m.formActive || m.input.Focused()
}

// category returns the selected category, falling back to the default when
// the selection has been deleted.
func (m timerModel) category() pomo.Category {
	if c, ok := m.tracker.Categories.Get(m.categoryID); ok {
		return c
	}
	return m.tracker.Categories.Default()
}

func (m *timerModel) refresh() {
	m.snap = m.engine.Snapshot()
}

func (m timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}

	// Cursor blink and other input internals.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// completed clears the description once a work session has been recorded.
func (m *timerModel) completed() {
	m.input.Reset()
	m.input.Blur()
	m.err = ""
	m.refresh()
}

func (m timerModel) updateInput(msg tea.KeyMsg) (timerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		m.input.Blur()
		return m.start()
	case key.Matches(msg, keys.Back):
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = ""
	return m, cmd
}

func (m timerModel) updateKeys(msg tea.KeyMsg) (timerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Start):
		// Breaks run until w; they cannot be paused.
		if m.snap.State == engine.BreakRunning {
			return m, nil
		}
		if m.snap.Ticking {
			m.engine.Pause()
			m.refresh()
			return m, nil
		}
		return m.start()
	case key.Matches(msg, keys.Reset):
		m.engine.Reset()
	case key.Matches(msg, keys.Break):
		m.engine.SwitchToBreak()
	case key.Matches(msg, keys.Work):
		if m.snap.State == engine.BreakRunning {
			return m.showBreakForm()
		}
	case key.Matches(msg, keys.Describe), key.Matches(msg, keys.Enter):
		if m.snap.Mode == pomo.ModeWork && m.snap.State == engine.WorkIdle {
			cmd := m.input.Focus()
			return m, cmd
		}
	case key.Matches(msg, keys.Left):
		m.cycleCategory(-1)
	case key.Matches(msg, keys.Right):
		m.cycleCategory(1)
	}
	m.refresh()
	return m, nil
}

func (m timerModel) start() (timerModel, tea.Cmd) {
	err := m.engine.Start(m.input.Value())
	m.refresh()
	var verr *pomo.ValidationError
	if errors.As(err, &verr) {
		m.err = "Please describe what you are working on first."
		cmd := m.input.Focus()
		return m, cmd
	}
	if err != nil {
		return m, func() tea.Msg { return errStatus(err) }
	}
	m.err = ""
	return m, nil
}

func (m *timerModel) cycleCategory(delta int) {
	cats := m.tracker.Categories.List()
	if len(cats) == 0 {
		return
	}
	i := 0
	for j, c := range cats {
		if c.ID == m.categoryID {
			i = j
			break
		}
	}
	i = (i + delta + len(cats)) % len(cats)
	m.categoryID = cats[i].ID
}

func (m timerModel) showBreakForm() (timerModel, tea.Cmd) {
	*m.breakDesc = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(breakPrompt).
				Placeholder(pomo.DefaultBreakDescription).
				Value(m.breakDesc),
		),
	).WithShowHelp(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m timerModel) updateForm(msg tea.Msg) (timerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		m.formActive = false
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.finishBreak(*m.breakDesc), nil
	case huh.StateAborted:
		m.formActive = false
		m.form = nil
		return m, nil
	}
	return m, cmd
}

// finishBreak ends the break with the given activity description.
func (m timerModel) finishBreak(desc string) timerModel {
	m.formActive = false
	m.form = nil
	m.engine.SwitchToWork(desc)
	m.refresh()
	return m
}

func (m timerModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		elapsed := clockBreakStyle.Render(pomo.FormatClock(m.snap.Seconds))
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Break")+"  "+elapsed,
			"",
			m.form.View(),
		)
		return activePanelStyle.Width(w).Render(content)
	}

	cat := m.category()
	var clockStyle lipgloss.Style
	var label, hint string

	switch m.snap.State {
	case engine.WorkRunning:
		clockStyle = clockFocusStyle
		label = focusStyle.Bold(true).Render("FOCUS")
		hint = "space: pause  r: reset  b: take a break"
	case engine.BreakRunning:
		clockStyle = clockBreakStyle
		label = breakStyle.Bold(true).Render("BREAK")
		hint = "w: back to work  r: restart break"
	default:
		clockStyle = clockIdleStyle
		label = mutedStyle.Render("READY")
		if m.snap.Seconds < int64(m.snap.WorkDuration.Seconds()) {
			label = warningStyle.Render("PAUSED")
		}
		hint = "i: describe  s: start  ←/→: category  r: reset  b: break"
	}

	display := clockStyle.Width(w - 6).Render(bigClock(pomo.FormatClock(m.snap.Seconds)))

	var task string
	switch {
	case m.snap.State == engine.BreakRunning:
		task = mutedStyle.Render("Enjoy your break")
	case m.snap.State == engine.WorkRunning:
		task = highlightStyle.Render(m.snap.Description)
	default:
		task = m.input.View()
	}

	categoryLine := fmt.Sprintf("%s %s", mutedStyle.Render("Category:"), badge(cat.Name, cat.Color))
	if m.tracker.Categories.Len() > 1 && m.snap.State == engine.WorkIdle {
		categoryLine = mutedStyle.Render("← ") + categoryLine + mutedStyle.Render(" →")
	}

	rows := []string{
		label,
		"",
		display,
		"",
		task,
		categoryLine,
	}
	if m.err != "" {
		rows = append(rows, errorStyle.Render(m.err))
	}
	today := m.tracker.Sessions.TodayTotal(m.clock.Now())
	rows = append(rows, "",
		mutedStyle.Render(fmt.Sprintf("Focused today: %s", pomo.FormatDuration(today))),
		"",
		mutedStyle.Render(hint),
	)

	style := panelStyle
	if m.snap.Ticking {
		style = activePanelStyle
	}
	return style.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}

// bigClock spaces out MM:SS so it reads at a glance.
func bigClock(s string) string {
	return strings.Join(strings.Split(s, ""), " ")
}
