package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/tomato/internal/pomo"
	"github.com/sadopc/tomato/internal/store"
)

// memPersister is an in-memory Persister that records every save.
type memPersister struct {
	data    map[string][]byte
	saves   map[string]int
	loadErr error
	saveErr error
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]byte), saves: make(map[string]int)}
}

func (m *memPersister) Load(key string) ([]byte, bool, error) {
	if m.loadErr != nil {
		return nil, false, m.loadErr
	}
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memPersister) Save(key string, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = slices.Clone(data)
	m.saves[key]++
	return nil
}

func seqIDs() Option {
	n := 0
	return WithIDFunc(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func openTest(t *testing.T, p Persister) *Tracker {
	t.Helper()
	return Open(p, nil, seqIDs(), WithLocation(time.UTC))
}

func defaultCount(cats []pomo.Category) int {
	n := 0
	for _, c := range cats {
		if c.IsDefault {
			n++
		}
	}
	return n
}

var t0 = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func session(desc string, mode pomo.Mode, at time.Time, secs int64, cat pomo.Category) pomo.Session {
	return pomo.Session{
		Description:   desc,
		Mode:          mode,
		Timestamp:     at,
		Duration:      secs,
		CategoryID:    cat.ID,
		CategoryName:  cat.Name,
		CategoryColor: cat.Color,
	}
}

// ============================================================
// Categories
// ============================================================

func TestOpenSeedsDefaults(t *testing.T) {
	p := newMemPersister()
	tr := openTest(t, p)

	cats := tr.Categories.List()
	require.Len(t, cats, 2)
	assert.Equal(t, "Work", cats[0].Name)
	assert.Equal(t, "#0891b2", cats[0].Color)
	assert.True(t, cats[0].IsDefault)
	assert.Equal(t, "Learn", cats[1].Name)
	assert.Equal(t, "#8b5cf6", cats[1].Color)
	assert.False(t, cats[1].IsDefault)

	assert.Equal(t, 1, p.saves[KeyCategories], "defaults should be persisted")
	assert.Equal(t, 0, tr.Sessions.Len())
}

func TestOpenLoadsExistingCategories(t *testing.T) {
	p := newMemPersister()
	p.data[KeyCategories] = []byte(`[{"id":"a","name":"Deep","color":"#ef4444","isDefault":true}]`)

	tr := openTest(t, p)
	cats := tr.Categories.List()
	require.Len(t, cats, 1)
	assert.Equal(t, "Deep", cats[0].Name)
	assert.Equal(t, 0, p.saves[KeyCategories])
}

func TestOpenCorruptCategories(t *testing.T) {
	p := newMemPersister()
	p.data[KeyCategories] = []byte(`{not json`)

	tr := openTest(t, p)
	assert.Equal(t, 2, tr.Categories.Len())
	assert.Equal(t, 1, p.saves[KeyCategories])
}

func TestOpenEmptyCategories(t *testing.T) {
	p := newMemPersister()
	p.data[KeyCategories] = []byte(`[]`)

	tr := openTest(t, p)
	assert.Equal(t, 2, tr.Categories.Len())
}

func TestOpenLoadFailureUsesDefaultsWithoutSaving(t *testing.T) {
	p := newMemPersister()
	p.loadErr = errors.New("disk gone")

	tr := openTest(t, p)
	assert.Equal(t, 2, tr.Categories.Len())
	assert.Equal(t, 0, tr.Sessions.Len())
	assert.Empty(t, p.saves)
}

func TestAddCategory(t *testing.T) {
	tr := openTest(t, newMemPersister())

	cat, err := tr.Categories.Add("  Reading  ", "#10b981")
	require.NoError(t, err)
	assert.Equal(t, "Reading", cat.Name)
	assert.Equal(t, "#10b981", cat.Color)
	assert.False(t, cat.IsDefault)
	assert.NotEmpty(t, cat.ID)

	cats := tr.Categories.List()
	require.Len(t, cats, 3)
	assert.Equal(t, cat, cats[2])
	assert.Equal(t, 1, defaultCount(cats))
}

func TestAddCategoryBlankColor(t *testing.T) {
	tr := openTest(t, newMemPersister())
	cat, err := tr.Categories.Add("Gym", "")
	require.NoError(t, err)
	assert.Equal(t, pomo.DefaultColor, cat.Color)
}

func TestAddCategoryValidation(t *testing.T) {
	tr := openTest(t, newMemPersister())

	_, err := tr.Categories.Add("   ", "#fff")
	var verr *pomo.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.Equal(t, 2, tr.Categories.Len())
}

func TestAddCategoryDuplicate(t *testing.T) {
	tr := openTest(t, newMemPersister())

	_, err := tr.Categories.Add("learn", "#fff")
	var dup *pomo.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "learn", dup.Name)
	assert.Equal(t, 2, tr.Categories.Len())
}

func TestUpdateCategory(t *testing.T) {
	tr := openTest(t, newMemPersister())
	learn, _ := tr.Categories.Lookup("Learn")

	require.NoError(t, tr.Categories.Update(learn.ID, "Study", "#ec4899"))
	got, ok := tr.Categories.Get(learn.ID)
	require.True(t, ok)
	assert.Equal(t, "Study", got.Name)
	assert.Equal(t, "#ec4899", got.Color)

	// Same name with different case on the same category is allowed.
	require.NoError(t, tr.Categories.Update(learn.ID, "STUDY", "#ec4899"))

	var dup *pomo.DuplicateNameError
	assert.ErrorAs(t, tr.Categories.Update(learn.ID, "work", ""), &dup)
	assert.ErrorIs(t, tr.Categories.Update("missing", "X", ""), pomo.ErrNotFound)
}

func TestSetDefault(t *testing.T) {
	tr := openTest(t, newMemPersister())
	learn, _ := tr.Categories.Lookup("learn")

	require.NoError(t, tr.Categories.SetDefault(learn.ID))
	assert.Equal(t, learn.ID, tr.Categories.Default().ID)
	assert.Equal(t, 1, defaultCount(tr.Categories.List()))

	err := tr.Categories.SetDefault("missing")
	assert.ErrorIs(t, err, pomo.ErrNotFound)
	assert.Equal(t, learn.ID, tr.Categories.Default().ID)
}

func TestDefaultFallsBackToFirst(t *testing.T) {
	p := newMemPersister()
	p.data[KeyCategories] = []byte(`[{"id":"a","name":"A","color":"#fff"},{"id":"b","name":"B","color":"#000"}]`)
	tr := openTest(t, p)
	assert.Equal(t, "a", tr.Categories.Default().ID)
}

func TestLookup(t *testing.T) {
	tr := openTest(t, newMemPersister())
	work := tr.Categories.Default()

	got, ok := tr.Categories.Lookup(work.ID)
	require.True(t, ok)
	assert.Equal(t, work, got)

	got, ok = tr.Categories.Lookup(" WORK ")
	require.True(t, ok)
	assert.Equal(t, work.ID, got.ID)

	_, ok = tr.Categories.Lookup("nope")
	assert.False(t, ok)
}

func TestListIsACopy(t *testing.T) {
	tr := openTest(t, newMemPersister())
	cats := tr.Categories.List()
	cats[0].Name = "mutated"
	assert.Equal(t, "Work", tr.Categories.List()[0].Name)
}

// ============================================================
// Delete
// ============================================================

func TestDeleteLastCategory(t *testing.T) {
	p := newMemPersister()
	p.data[KeyCategories] = []byte(`[{"id":"only","name":"Only","color":"#fff","isDefault":true}]`)
	tr := openTest(t, p)

	asked := false
	ok, err := tr.Categories.Delete("only", func(string) bool { asked = true; return true })
	var last *pomo.LastCategoryError
	require.ErrorAs(t, err, &last)
	assert.False(t, ok)
	assert.False(t, asked, "no confirmation for a refused delete")
	assert.Equal(t, 1, tr.Categories.Len())
}

func TestDeleteUnknownCategory(t *testing.T) {
	tr := openTest(t, newMemPersister())
	ok, err := tr.Categories.Delete("missing", nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, pomo.ErrNotFound)
}

func TestDeleteCancelled(t *testing.T) {
	tr := openTest(t, newMemPersister())
	learn, _ := tr.Categories.Lookup("Learn")
	tr.Sessions.Record(session("Read", pomo.ModeWork, t0, 1500, learn))

	ok, err := tr.Categories.Delete(learn.ID, func(string) bool { return false })
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, tr.Categories.Len())
	assert.Equal(t, learn.ID, tr.Sessions.All()[0].CategoryID)
}

func TestDeleteReassignsSessions(t *testing.T) {
	p := newMemPersister()
	tr := openTest(t, p)
	work := tr.Categories.Default()
	learn, _ := tr.Categories.Lookup("Learn")

	tr.Sessions.Record(session("Chapter 1", pomo.ModeWork, t0, 1500, learn))
	tr.Sessions.Record(session("Email", pomo.ModeWork, t0.Add(time.Hour), 1500, work))

	var prompt string
	ok, err := tr.Categories.Delete(learn.ID, func(msg string) bool { prompt = msg; return true })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, prompt, `"Learn"`)
	assert.Contains(t, prompt, `1 session(s) will be reassigned to "Work"`)

	cats := tr.Categories.List()
	require.Len(t, cats, 1)
	assert.Equal(t, work.ID, cats[0].ID)
	assert.True(t, cats[0].IsDefault)

	for _, s := range tr.Sessions.All() {
		assert.Equal(t, work.ID, s.CategoryID)
		assert.Equal(t, "Work", s.CategoryName)
		assert.Equal(t, work.Color, s.CategoryColor)
	}

	// The persisted sessions reflect the reassignment too.
	var stored []pomo.Session
	require.NoError(t, json.Unmarshal(p.data[KeySessions], &stored))
	for _, s := range stored {
		assert.Equal(t, work.ID, s.CategoryID)
	}
}

func TestDeleteDefaultPromotesSuccessor(t *testing.T) {
	tr := openTest(t, newMemPersister())
	work := tr.Categories.Default()
	learn, _ := tr.Categories.Lookup("Learn")
	tr.Sessions.Record(session("Standup", pomo.ModeWork, t0, 900, work))

	ok, err := tr.Categories.Delete(work.ID, nil)
	require.NoError(t, err)
	require.True(t, ok)

	def := tr.Categories.Default()
	assert.Equal(t, learn.ID, def.ID)
	assert.True(t, def.IsDefault)
	assert.Equal(t, 1, defaultCount(tr.Categories.List()))

	s := tr.Sessions.All()[0]
	assert.Equal(t, learn.ID, s.CategoryID)
	assert.Equal(t, "Learn", s.CategoryName)
	assert.Equal(t, learn.Color, s.CategoryColor)
}

func TestDeletePrompt(t *testing.T) {
	tr := openTest(t, newMemPersister())
	learn, _ := tr.Categories.Lookup("Learn")

	assert.Equal(t, `Are you sure you want to delete "Learn"?`, tr.Categories.DeletePrompt(learn.ID))
	assert.Empty(t, tr.Categories.DeletePrompt("missing"))

	tr.Sessions.Record(session("a", pomo.ModeWork, t0, 60, learn))
	tr.Sessions.Record(session("b", pomo.ModeBreak, t0, 60, learn))
	assert.Equal(t,
		`Are you sure you want to delete "Learn"? 2 session(s) will be reassigned to "Work".`,
		tr.Categories.DeletePrompt(learn.ID))
}

// ============================================================
// Sessions
// ============================================================

func TestRecordPrepends(t *testing.T) {
	p := newMemPersister()
	tr := openTest(t, p)
	work := tr.Categories.Default()

	tr.Sessions.Record(session("first", pomo.ModeWork, t0, 1500, work))
	tr.Sessions.Record(session("second", pomo.ModeBreak, t0.Add(time.Hour), 300, work))

	all := tr.Sessions.All()
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Description)
	assert.Equal(t, "first", all[1].Description)
	assert.Equal(t, 2, p.saves[KeySessions])
}

func TestClearSessions(t *testing.T) {
	p := newMemPersister()
	tr := openTest(t, p)
	tr.Sessions.Record(session("x", pomo.ModeWork, t0, 1500, tr.Categories.Default()))

	tr.Sessions.Clear()
	assert.Equal(t, 0, tr.Sessions.Len())

	reopened := openTest(t, p)
	assert.Equal(t, 0, reopened.Sessions.Len())
}

func TestByDay(t *testing.T) {
	tr := openTest(t, newMemPersister())
	work := tr.Categories.Default()
	day1 := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	tr.Sessions.Record(session("a", pomo.ModeWork, day1, 60, work))
	tr.Sessions.Record(session("b", pomo.ModeWork, day2, 60, work))
	tr.Sessions.Record(session("c", pomo.ModeBreak, day2.Add(time.Hour), 60, work))

	seq := tr.Sessions.ByDay("2024-03-14")
	var got []string
	for s := range seq {
		got = append(got, s.Description)
	}
	assert.Equal(t, []string{"c", "b"}, got)

	// Restartable, and it sees sessions recorded after it was created.
	tr.Sessions.Record(session("d", pomo.ModeWork, day2.Add(2*time.Hour), 60, work))
	got = nil
	for s := range seq {
		got = append(got, s.Description)
	}
	assert.Equal(t, []string{"d", "c", "b"}, got)

	// Early termination.
	n := 0
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)

	for range tr.Sessions.ByDay("1999-01-01") {
		t.Fatal("no sessions expected")
	}
}

func TestByDayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	tr := Open(newMemPersister(), nil, seqIDs(), WithLocation(loc))

	// 20:00 UTC on the 13th is the 14th in UTC+10.
	at := time.Date(2024, 3, 13, 20, 0, 0, 0, time.UTC)
	tr.Sessions.Record(session("late", pomo.ModeWork, at, 60, tr.Categories.Default()))

	assert.Equal(t, "2024-03-14", tr.Sessions.DayKey(at))
	n := 0
	for range tr.Sessions.ByDay("2024-03-14") {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestAvailableDays(t *testing.T) {
	tr := openTest(t, newMemPersister())
	work := tr.Categories.Default()
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{
		time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
	} {
		tr.Sessions.Record(session("x", pomo.ModeWork, at, 60, work))
	}

	assert.Equal(t, []string{"2024-03-13", "2024-03-12", "2024-03-11"}, tr.Sessions.AvailableDays(now))
}

func TestAvailableDaysEmpty(t *testing.T) {
	tr := openTest(t, newMemPersister())
	assert.Empty(t, tr.Sessions.AvailableDays(t0))
}

func TestSessionMigrationOnLoad(t *testing.T) {
	p := newMemPersister()
	p.data[KeyCategories] = []byte(`[{"id":"w","name":"Work","color":"#0891b2","isDefault":true}]`)
	p.data[KeySessions] = []byte(`[
		{"description":"old","mode":"work","timestamp":"2024-03-14T09:00:00Z","duration":1500},
		{"description":"new","mode":"work","timestamp":"2024-03-14T10:00:00Z","duration":1500,"category":"w","categoryName":"Work","categoryColor":"#0891b2"}
	]`)

	tr := openTest(t, p)
	for _, s := range tr.Sessions.All() {
		assert.Equal(t, "w", s.CategoryID)
		assert.Equal(t, "Work", s.CategoryName)
		assert.Equal(t, "#0891b2", s.CategoryColor)
	}
	assert.Equal(t, 1, p.saves[KeySessions], "migrated sessions should be re-persisted")
}

func TestCorruptSessions(t *testing.T) {
	p := newMemPersister()
	p.data[KeySessions] = []byte(`[{"description":`)

	tr := openTest(t, p)
	assert.Equal(t, 0, tr.Sessions.Len())
	assert.Equal(t, 2, tr.Categories.Len())
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	p := newMemPersister()
	tr := openTest(t, p)
	p.saveErr = errors.New("quota exceeded")

	cat, err := tr.Categories.Add("Music", "#f59e0b")
	require.NoError(t, err)
	tr.Sessions.Record(session("Scales", pomo.ModeWork, t0, 1500, cat))

	assert.Equal(t, 3, tr.Categories.Len())
	assert.Equal(t, 1, tr.Sessions.Len())
	_, ok := p.data[KeySessions]
	assert.False(t, ok)
}

func TestRoundTripThroughStore(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tr := Open(s, nil, WithLocation(time.UTC))
	music, err := tr.Categories.Add("Music", "#f59e0b")
	require.NoError(t, err)
	require.NoError(t, tr.Categories.SetDefault(music.ID))
	tr.Sessions.Record(session("Scales", pomo.ModeWork, t0, 1500, music))
	tr.Sessions.Record(session("Tea", pomo.ModeBreak, t0.Add(30*time.Minute), 245, music))

	reopened := Open(s, nil, WithLocation(time.UTC))
	assert.Equal(t, tr.Categories.List(), reopened.Categories.List())

	want, got := tr.Sessions.All(), reopened.Sessions.All()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp))
		want[i].Timestamp, got[i].Timestamp = time.Time{}, time.Time{}
	}
	assert.Equal(t, want, got)
}

// ============================================================
// Recording and summaries
// ============================================================

func TestRecordCompleted(t *testing.T) {
	tr := openTest(t, newMemPersister())
	learn, _ := tr.Categories.Lookup("Learn")
	ended := time.Date(2024, 3, 14, 9, 25, 0, 123456789, time.FixedZone("X", 3600))

	s := tr.RecordCompleted(pomo.Completed{
		Description: "Write report",
		Mode:        pomo.ModeWork,
		Duration:    1500,
		EndedAt:     ended,
	}, learn.ID)

	assert.Equal(t, "Write report", s.Description)
	assert.Equal(t, pomo.ModeWork, s.Mode)
	assert.Equal(t, int64(1500), s.Duration)
	assert.Equal(t, learn.ID, s.CategoryID)
	assert.Equal(t, "Learn", s.CategoryName)
	assert.Equal(t, learn.Color, s.CategoryColor)
	assert.Equal(t, time.UTC, s.Timestamp.Location())
	assert.True(t, s.Timestamp.Equal(ended.Truncate(time.Millisecond)))
	assert.Equal(t, s, tr.Sessions.All()[0])
}

func TestRecordCompletedUnknownCategory(t *testing.T) {
	tr := openTest(t, newMemPersister())
	s := tr.RecordCompleted(pomo.Completed{
		Description: "Break",
		Mode:        pomo.ModeBreak,
		Duration:    -3,
		EndedAt:     t0,
	}, "gone")

	assert.Equal(t, tr.Categories.Default().ID, s.CategoryID)
	assert.Equal(t, int64(0), s.Duration)
}

func TestSnapshotSurvivesRename(t *testing.T) {
	tr := openTest(t, newMemPersister())
	work := tr.Categories.Default()
	tr.RecordCompleted(pomo.Completed{Description: "x", Mode: pomo.ModeWork, Duration: 60, EndedAt: t0}, work.ID)

	require.NoError(t, tr.Categories.Update(work.ID, "Job", "#ef4444"))
	s := tr.Sessions.All()[0]
	assert.Equal(t, "Work", s.CategoryName)
	assert.Equal(t, "#0891b2", s.CategoryColor)
}

func TestSummary(t *testing.T) {
	tr := openTest(t, newMemPersister())
	work := tr.Categories.Default()
	learn, _ := tr.Categories.Lookup("Learn")
	d1 := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	tr.Sessions.Record(session("a", pomo.ModeWork, d1, 1500, work))
	tr.Sessions.Record(session("b", pomo.ModeWork, d1.Add(time.Hour), 1500, work))
	tr.Sessions.Record(session("c", pomo.ModeBreak, d1.Add(2*time.Hour), 300, work))
	tr.Sessions.Record(session("d", pomo.ModeWork, d2, 1200, work))
	tr.Sessions.Record(session("e", pomo.ModeWork, d2.Add(time.Hour), 600, learn))
	tr.Sessions.Record(session("f", pomo.ModeWork, d2.AddDate(0, 0, 1), 600, learn))

	got := tr.Sessions.Summary(d1.Truncate(24*time.Hour), d2.Truncate(24*time.Hour).AddDate(0, 0, 1))
	require.Len(t, got, 3)

	assert.Equal(t, DaySummary{Date: "2024-03-13", CategoryID: work.ID, CategoryName: "Work", CategoryColor: work.Color, TotalSeconds: 3000, Count: 2}, got[0])
	assert.Equal(t, "2024-03-14", got[1].Date)
	assert.Equal(t, "Learn", got[1].CategoryName)
	assert.Equal(t, int64(600), got[1].TotalSeconds)
	assert.Equal(t, "Work", got[2].CategoryName)
	assert.Equal(t, int64(1200), got[2].TotalSeconds)
}

func TestTodayTotal(t *testing.T) {
	tr := openTest(t, newMemPersister())
	work := tr.Categories.Default()
	now := time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC)

	tr.Sessions.Record(session("a", pomo.ModeWork, now.Add(-24*time.Hour), 1500, work))
	tr.Sessions.Record(session("b", pomo.ModeWork, now.Add(-3*time.Hour), 1500, work))
	tr.Sessions.Record(session("c", pomo.ModeBreak, now.Add(-2*time.Hour), 300, work))
	tr.Sessions.Record(session("d", pomo.ModeWork, now.Add(-time.Hour), 900, work))

	assert.Equal(t, int64(2400), tr.Sessions.TodayTotal(now))
}
