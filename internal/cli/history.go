package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sadopc/tomato/internal/pomo"
	"github.com/sadopc/tomato/internal/store"
	"github.com/sadopc/tomato/internal/tracker"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var day string
	var listDays bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the sessions recorded on a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			now := time.Now()
			w := cmd.OutOrStdout()
			if listDays {
				err = printDays(w, e.tracker, now)
			} else {
				err = printHistory(w, e.tracker, day, now)
			}
			if err != nil {
				return err
			}
			printLastSaved(w, e.store, now)
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Day to show as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&listDays, "days", false, "List the earlier days that have sessions")
	return cmd
}

func printHistory(w io.Writer, t *tracker.Tracker, day string, now time.Time) error {
	key := t.Sessions.DayKey(now)
	label := "Today"
	if day != "" {
		if _, err := time.Parse(tracker.DateLayout, day); err != nil {
			return fmt.Errorf("invalid --day %q: want YYYY-MM-DD", day)
		}
		if day != key {
			label = day
		}
		key = day
	}

	var sessions []pomo.Session
	var focus, breaks int64
	for s := range t.Sessions.ByDay(key) {
		sessions = append(sessions, s)
		if s.Mode == pomo.ModeWork {
			focus += s.Duration
		} else {
			breaks += s.Duration
		}
	}

	if len(sessions) == 0 {
		fmt.Fprintf(w, "No sessions on %s.\n", key)
		return nil
	}

	fmt.Fprintf(w, "%s (%s): %d session(s), focus %s, break %s\n\n",
		label, key, len(sessions), pomo.FormatDuration(focus), pomo.FormatDuration(breaks))
	for _, s := range sessions {
		mark := "●"
		if s.Mode == pomo.ModeBreak {
			mark = "○"
		}
		fmt.Fprintf(w, "  %s %-30s %-12s %8s  %s (%s)\n",
			mark,
			s.Description,
			s.CategoryName,
			pomo.FormatDuration(s.Duration),
			s.Timestamp.Local().Format("15:04"),
			humanize.RelTime(s.Timestamp, now, "ago", "from now"),
		)
	}
	return nil
}

func printDays(w io.Writer, t *tracker.Tracker, now time.Time) error {
	days := t.Sessions.AvailableDays(now)
	if len(days) == 0 {
		fmt.Fprintln(w, "No earlier sessions.")
		return nil
	}
	for _, d := range days {
		n := 0
		for range t.Sessions.ByDay(d) {
			n++
		}
		fmt.Fprintf(w, "  %s  %d session(s)\n", d, n)
	}
	return nil
}

// printLastSaved reports when the history record was last written. Nothing
// is printed before the first save.
func printLastSaved(w io.Writer, s *store.Store, now time.Time) {
	at, err := s.UpdatedAt(tracker.KeySessions)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "\nHistory last saved %s (%s)\n",
		humanize.RelTime(at, now, "ago", "from now"), at.Local().Format("2006-01-02 15:04"))
}
