package cli

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/tomato/internal/notify"
	"github.com/sadopc/tomato/internal/tui"
)

func runTUI(flags *rootFlags) error {
	e, err := openEnv(flags)
	if err != nil {
		return err
	}
	defer e.Close()

	n := notify.New(notify.NewDesktop(), notify.Bell{W: os.Stderr}, e.log)
	n.Enabled = e.store.Enabled

	app := tui.NewApp(tui.Options{
		Store:        e.store,
		Tracker:      e.tracker,
		Notifier:     n,
		Logger:       e.log,
		TickInterval: e.cfg.TickInterval,
	})
	defer app.Close()

	e.log.Info("tui started")
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	e.log.Info("tui exited")
	return nil
}
