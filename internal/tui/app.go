package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tomato/internal/clock"
	"github.com/sadopc/tomato/internal/engine"
	"github.com/sadopc/tomato/internal/export"
	"github.com/sadopc/tomato/internal/notify"
	"github.com/sadopc/tomato/internal/pomo"
	"github.com/sadopc/tomato/internal/store"
	"github.com/sadopc/tomato/internal/tracker"
)

// Options wires the app to its collaborators. Store and Tracker are
// required; the rest default to the real clock and goroutine schedulers.
type Options struct {
	Store        *store.Store
	Tracker      *tracker.Tracker
	Notifier     *notify.Notifier
	Logger       *slog.Logger
	Clock        clock.Clock
	TickInterval time.Duration
	Scheduler    engine.Scheduler
	Alarm        engine.ResilientAlarm
	ExportDir    string
}

// App is the root Bubble Tea model.
type App struct {
	store    *store.Store
	tracker  *tracker.Tracker
	engine   *engine.Engine
	events   *eventQueue
	notifier *notify.Notifier
	clock    clock.Clock
	log      *slog.Logger
	width    int
	height   int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string
	title         string

	timer      timerModel
	history    historyModel
	categories categoriesModel
	reports    reportsModel
	settings   settingsModel

	help   help.Model
	status string
	isErr  bool
}

func NewApp(opts Options) App {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}

	events := newEventQueue()
	eng := engine.New(engine.Options{
		WorkDuration: opts.Store.WorkDuration(engine.DefaultWorkDuration),
		TickInterval: opts.TickInterval,
		Clock:        opts.Clock,
		Scheduler:    opts.Scheduler,
		Alarm:        opts.Alarm,
		Callbacks:    events.callbacks(),
		Logger:       logger,
	})

	h := help.New()
	h.ShowAll = false

	return App{
		store:      opts.Store,
		tracker:    opts.Tracker,
		engine:     eng,
		events:     events,
		notifier:   opts.Notifier,
		clock:      opts.Clock,
		log:        logger.With("component", "tui"),
		activeView: viewTimer,
		exportDir:  opts.ExportDir,
		timer:      newTimerModel(eng, opts.Tracker, opts.Clock),
		history:    newHistoryModel(opts.Tracker, opts.Clock),
		categories: newCategoriesModel(opts.Tracker),
		reports:    newReportsModel(opts.Tracker, opts.Clock),
		settings:   newSettingsModel(opts.Store, eng),
		help:       h,
	}
}

// Close stops the engine's tick sources.
func (a App) Close() {
	a.events.close()
	a.engine.Close()
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.events.wait(),
		tea.SetWindowTitle(a.engine.Snapshot().Title()),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.categories.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.reports.reload()
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			return a, tea.Quit
		}

		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewTimer)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewHistory)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewCategories)
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewReports)
		case key.Matches(msg, keys.Tab5):
			return a.switchView(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		}

	case engineEventsMsg:
		var cmds []tea.Cmd
		for _, ev := range msg {
			var cmd tea.Cmd
			a, cmd = a.handleEngineEvent(ev)
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, a.events.wait())
		if title := a.engine.Snapshot().Title(); title != a.title {
			a.title = title
			cmds = append(cmds, tea.SetWindowTitle(title))
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		a.isErr = msg.isError
		return a, nil

	case dataChangedMsg:
		a.broadcastDataChanged()
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.isErr = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

// handleEngineEvent applies one engine callback. Completed sessions are
// recorded here, on the UI loop, tagged with the category selected in the
// timer view.
func (a App) handleEngineEvent(ev any) (App, tea.Cmd) {
	var cmd tea.Cmd
	switch ev := ev.(type) {
	case sessionCompletedMsg:
		s := a.tracker.RecordCompleted(ev.completed, a.timer.category().ID)
		a.log.Info("session recorded", "mode", s.Mode, "description", s.Description,
			"duration", s.Duration, "category", s.CategoryName)
		a.broadcastDataChanged()

	case workCompletedMsg:
		a.timer.completed()
		a.status = fmt.Sprintf("Focus complete: %s", ev.description)
		a.isErr = false
		cmd = a.notifyCmd(ev.description)

	case engineTickMsg:
		a.timer.refresh()

	case modeChangedMsg:
		a.timer.refresh()
		if ev.mode == pomo.ModeBreak {
			a.status = "Break started"
		} else {
			a.status = "Back to work"
		}
		a.isErr = false
	}
	return a, cmd
}

func (a App) notifyCmd(description string) tea.Cmd {
	n := a.notifier
	if n == nil {
		return nil
	}
	return func() tea.Msg {
		n.Send(context.Background(), notify.WorkCompleted(description))
		return nil
	}
}

func (a *App) broadcastDataChanged() {
	a.history, _ = a.history.update(dataChangedMsg{})
	a.categories, _ = a.categories.update(dataChangedMsg{})
	a.reports, _ = a.reports.update(dataChangedMsg{})
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	a.refreshCurrentView()
	return a, nil
}

func (a *App) refreshCurrentView() {
	switch a.activeView {
	case viewTimer:
		a.timer.refresh()
	case viewHistory:
		a.history.reload()
	case viewCategories:
		a.categories.reload()
	case viewReports:
		a.reports.reload()
	case viewSettings:
		a.settings.reload()
	}
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewCategories:
		a.categories, cmd = a.categories.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTimer:
		return a.timer.editing()
	case viewHistory:
		return a.history.confirming
	case viewCategories:
		return a.categories.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewHistory:
		content = a.history.view()
	case viewCategories:
		content = a.categories.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("tomato")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.isErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Running clock, visible from every view
	timerInfo := ""
	if snap := a.timer.snap; snap.Ticking {
		clockText := pomo.FormatClock(snap.Seconds)
		if snap.Mode == pomo.ModeBreak {
			timerInfo = breakStyle.Render(" ○ " + clockText)
		} else {
			timerInfo = focusStyle.Render(" ● " + clockText)
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export History")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %d session(s)  enter: export  esc: cancel", a.tracker.Sessions.Len())))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport copies the history on the UI loop and writes it in a command.
func (a App) doExport(format int) tea.Cmd {
	sessions := a.tracker.Sessions.All()
	dir := a.exportDir
	dateStr := a.clock.Now().Format(tracker.DateLayout)

	return func() tea.Msg {
		if format == 0 {
			path := filepath.Join(dir, fmt.Sprintf("tomato-export-%s.csv", dateStr))
			if err := export.ToCSV(sessions, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
			return exportDoneMsg{path: path}
		}

		path := filepath.Join(dir, fmt.Sprintf("tomato-export-%s.json", dateStr))
		if err := export.ToJSON(sessions, path); err != nil {
			return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
