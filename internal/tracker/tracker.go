// Package tracker owns the category set and the session history.
//
// Both collections are kept in memory and written through to a Persister as
// JSON after every change. A failed write is logged and otherwise ignored:
// the in-memory state stays authoritative for the rest of the process.
// Neither store is safe for concurrent use; the presentation layer drives
// them from its single update loop.
package tracker

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/tomato/internal/pomo"
)

// Record keys.
const (
	KeyCategories = "categories"
	KeySessions   = "sessions"
)

// DateLayout is the format of day keys used by ByDay and AvailableDays.
const DateLayout = "2006-01-02"

// Persister stores opaque records by key.
type Persister interface {
	// Load returns ok == false when the key has never been saved.
	Load(key string) (data []byte, ok bool, err error)
	Save(key string, data []byte) error
}

// Confirm asks the user to confirm a destructive action.
type Confirm func(message string) bool

// Tracker bundles the category and session stores.
type Tracker struct {
	Categories *Categories
	Sessions   *Sessions
}

type options struct {
	loc   *time.Location
	newID func() string
}

type Option func(*options)

// WithLocation sets the location used to derive calendar day keys.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// WithIDFunc overrides category id generation.
func WithIDFunc(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// Open loads categories, then sessions, from p. Missing or unreadable
// categories are replaced by the default set; unreadable sessions start
// empty. Sessions without a category are migrated to the default one.
func Open(p Persister, logger *slog.Logger, opts ...Option) *Tracker {
	o := options{
		loc:   time.Local,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cats := loadCategories(p, logger.With("store", KeyCategories), o.newID)
	sessions := loadSessions(p, logger.With("store", KeySessions), o.loc, cats.Default())
	cats.sessions = sessions

	return &Tracker{Categories: cats, Sessions: sessions}
}

// RecordCompleted turns an engine completion into a history entry tagged
// with a snapshot of the given category, or of the default category when
// the id is unknown.
func (t *Tracker) RecordCompleted(c pomo.Completed, categoryID string) pomo.Session {
	cat, ok := t.Categories.Get(categoryID)
	if !ok {
		cat = t.Categories.Default()
	}
	s := pomo.Session{
		Description:   c.Description,
		Mode:          c.Mode,
		Timestamp:     c.EndedAt.UTC().Truncate(time.Millisecond),
		Duration:      max(c.Duration, 0),
		CategoryID:    cat.ID,
		CategoryName:  cat.Name,
		CategoryColor: cat.Color,
	}
	t.Sessions.Record(s)
	return s
}

func save(p Persister, log *slog.Logger, key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = p.Save(key, data)
	}
	if err != nil {
		log.Error("persist failed, keeping in-memory state",
			"error", &pomo.PersistenceError{Op: "save", Key: key, Err: err})
	}
}
