package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tomato/internal/engine"
	"github.com/sadopc/tomato/internal/store"
)

var settingLabels = map[string]string{
	store.SettingWorkDuration:  "Focus duration",
	store.SettingNotifications: "Desktop notifications",
	store.SettingSound:         "Sound",
}

type settingsModel struct {
	store  *store.Store
	engine *engine.Engine
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	workMinutes   *string
	notifications *string
	sound         *string
}

func newSettingsModel(s *store.Store, e *engine.Engine) settingsModel {
	wm, n, snd := "", "", ""
	m := settingsModel{
		store:         s,
		engine:        e,
		workMinutes:   &wm,
		notifications: &n,
		sound:         &snd,
	}
	m.reload()
	return m
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s *settingsModel) reload() {
	s.settings, _ = s.store.GetAllSettings()
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func onOffOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("On", "on"),
		huh.NewOption("Off", "off"),
	}
}

func validateMinutes(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 || n > 180 {
		return fmt.Errorf("enter a whole number of minutes between 1 and 180")
	}
	return nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.workMinutes = secsToMin(s.getVal(store.SettingWorkDuration, "1500"))
	*s.notifications = s.getVal(store.SettingNotifications, "on")
	*s.sound = s.getVal(store.SettingSound, "on")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Focus duration (min)").Validate(validateMinutes).Value(s.workMinutes),
			huh.NewSelect[string]().Title("Desktop notifications").Options(onOffOptions()...).Value(s.notifications),
			huh.NewSelect[string]().Title("Sound").Options(onOffOptions()...).Value(s.sound),
		).Title("Timer"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s.save()
	}

	return s, cmd
}

// save writes the form values and hands the new focus duration to the
// engine, which applies it now if the timer is untouched or from the next
// reset otherwise.
func (s settingsModel) save() (settingsModel, tea.Cmd) {
	if err := validateMinutes(*s.workMinutes); err == nil {
		if err := s.store.SetSetting(store.SettingWorkDuration, minToSecs(*s.workMinutes)); err != nil {
			return s, func() tea.Msg { return errStatus(err) }
		}
	}
	s.store.SetSetting(store.SettingNotifications, *s.notifications)
	s.store.SetSetting(store.SettingSound, *s.sound)

	s.engine.SetWorkDuration(s.store.WorkDuration(engine.DefaultWorkDuration))
	s.reload()
	return s, func() tea.Msg { return statusMsg{text: "Settings saved"} }
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"))
	rows = append(rows, "")

	for _, setting := range s.settings {
		name, ok := settingLabels[setting.Key]
		if !ok {
			name = setting.Key
		}
		label := lipgloss.NewStyle().Width(24).Render(name)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	if k == store.SettingWorkDuration {
		if secs, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d min", secs/60)
		}
	}
	return v
}

func secsToMin(s string) string {
	if secs, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(secs / 60)
	}
	return s
}

func minToSecs(s string) string {
	if mins, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return strconv.Itoa(mins * 60)
	}
	return s
}
