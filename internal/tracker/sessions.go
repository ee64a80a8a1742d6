package tracker

import (
	"encoding/json"
	"iter"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/sadopc/tomato/internal/pomo"
)

// Sessions is the session history, most recent first.
type Sessions struct {
	p    Persister
	log  *slog.Logger
	loc  *time.Location
	list []pomo.Session
}

func loadSessions(p Persister, log *slog.Logger, loc *time.Location, def pomo.Category) *Sessions {
	s := &Sessions{p: p, log: log, loc: loc}

	data, ok, err := p.Load(KeySessions)
	if err != nil {
		log.Error("load failed, starting with empty history",
			"error", &pomo.PersistenceError{Op: "load", Key: KeySessions, Err: err})
		return s
	}
	if !ok {
		return s
	}
	if err := json.Unmarshal(data, &s.list); err != nil {
		log.Error("sessions record is corrupt, starting with empty history", "error", err)
		s.list = nil
		return s
	}

	migrated := 0
	for i := range s.list {
		if s.list[i].CategoryID == "" || s.list[i].CategoryName == "" {
			s.list[i].CategoryID = def.ID
			s.list[i].CategoryName = def.Name
			s.list[i].CategoryColor = def.Color
			migrated++
		}
	}
	if migrated > 0 {
		log.Info("migrated sessions to default category", "count", migrated, "category", def.Name)
		s.save()
	}
	return s
}

// Record prepends a session.
func (s *Sessions) Record(session pomo.Session) {
	s.list = slices.Insert(s.list, 0, session)
	s.save()
}

// Clear removes every session. Callers confirm with the user first.
func (s *Sessions) Clear() {
	s.list = nil
	s.save()
	s.log.Info("history cleared")
}

// All returns a copy of the history, most recent first.
func (s *Sessions) All() []pomo.Session {
	return slices.Clone(s.list)
}

func (s *Sessions) Len() int { return len(s.list) }

// DayKey returns the calendar day key of t in the store's location.
func (s *Sessions) DayKey(t time.Time) string {
	return t.In(s.loc).Format(DateLayout)
}

// ByDay yields the sessions recorded on the given day, most recent first.
// The sequence reads the live history each time it is ranged over.
func (s *Sessions) ByDay(dateKey string) iter.Seq[pomo.Session] {
	return func(yield func(pomo.Session) bool) {
		for _, session := range s.list {
			if s.DayKey(session.Timestamp) != dateKey {
				continue
			}
			if !yield(session) {
				return
			}
		}
	}
}

// AvailableDays returns the distinct day keys in the history other than the
// day of now, most recent first.
func (s *Sessions) AvailableDays(now time.Time) []string {
	today := s.DayKey(now)
	seen := make(map[string]bool)
	var days []string
	for _, session := range s.list {
		key := s.DayKey(session.Timestamp)
		if key == today || seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days
}

// CountByCategory counts the sessions that reference categoryID.
func (s *Sessions) CountByCategory(categoryID string) int {
	n := 0
	for _, session := range s.list {
		if session.CategoryID == categoryID {
			n++
		}
	}
	return n
}

// Reassign moves every session of category from to category to, replacing
// the name and colour snapshots. It returns the number of sessions moved.
func (s *Sessions) Reassign(from string, to pomo.Category) int {
	n := 0
	for i := range s.list {
		if s.list[i].CategoryID != from {
			continue
		}
		s.list[i].CategoryID = to.ID
		s.list[i].CategoryName = to.Name
		s.list[i].CategoryColor = to.Color
		n++
	}
	if n > 0 {
		s.save()
	}
	return n
}

// DaySummary aggregates focus time per day per category.
type DaySummary struct {
	Date          string
	CategoryID    string
	CategoryName  string
	CategoryColor string
	TotalSeconds  int64
	Count         int
}

// Summary aggregates work sessions recorded in [from, to), ordered by day
// then category name.
func (s *Sessions) Summary(from, to time.Time) []DaySummary {
	type groupKey struct{ date, category string }
	index := make(map[groupKey]int)
	var out []DaySummary

	for _, session := range s.list {
		if session.Mode != pomo.ModeWork {
			continue
		}
		if session.Timestamp.Before(from) || !session.Timestamp.Before(to) {
			continue
		}
		k := groupKey{s.DayKey(session.Timestamp), session.CategoryID}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, DaySummary{
				Date:          k.date,
				CategoryID:    session.CategoryID,
				CategoryName:  session.CategoryName,
				CategoryColor: session.CategoryColor,
			})
		}
		out[i].TotalSeconds += session.Duration
		out[i].Count++
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out
}

// TodayTotal sums the focus seconds recorded on the day of now.
func (s *Sessions) TodayTotal(now time.Time) int64 {
	var total int64
	for session := range s.ByDay(s.DayKey(now)) {
		if session.Mode == pomo.ModeWork {
			total += session.Duration
		}
	}
	return total
}

func (s *Sessions) save() {
	save(s.p, s.log, KeySessions, s.list)
}
