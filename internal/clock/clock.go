// Package clock provides the wall-clock source used by the timer engine and
// a manually driven fake for tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock reads the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock. The monotonic reading is stripped so that
// deltas follow the wall clock across a suspended process.
type System struct{}

func (System) Now() time.Time { return time.Now().Round(0) }

// Fake is a manual clock. Time only moves on Advance or Set, and scheduled
// callbacks only run when Tick or FireAlarms is called, which lets tests
// model a suspended UI loop that misses every tick.
type Fake struct {
	mu       sync.Mutex
	now      time.Time
	nextID   int
	tickers  map[int]func()
	alarms   map[int]fakeAlarm
	schedule []time.Duration
}

type fakeAlarm struct {
	at time.Time
	fn func()
}

func NewFake(now time.Time) *Fake {
	return &Fake{
		now:     now,
		tickers: make(map[int]func()),
		alarms:  make(map[int]fakeAlarm),
	}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward without running any callback.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set moves the clock to t without running any callback.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// ScheduleRecurring registers fn; it runs once per call to Tick.
func (f *Fake) ScheduleRecurring(interval time.Duration, fn func()) (stop func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.tickers[id] = fn
	f.schedule = append(f.schedule, interval)
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.tickers, id)
		f.mu.Unlock()
	}
}

// ArmAt registers fn to run on the first FireAlarms call at or after at.
func (f *Fake) ArmAt(at time.Time, fn func()) (disarm func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.alarms[id] = fakeAlarm{at: at, fn: fn}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.alarms, id)
		f.mu.Unlock()
	}
}

// Tick runs every registered recurring callback once.
func (f *Fake) Tick() {
	f.mu.Lock()
	ids := make([]int, 0, len(f.tickers))
	for id := range f.tickers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.tickers[id])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// FireAlarms runs and removes every alarm that is due. It returns the
// number of alarms fired.
func (f *Fake) FireAlarms() int {
	f.mu.Lock()
	var due []func()
	for id, a := range f.alarms {
		if !f.now.Before(a.at) {
			due = append(due, a.fn)
			delete(f.alarms, id)
		}
	}
	f.mu.Unlock()

	for _, fn := range due {
		fn()
	}
	return len(due)
}

// Recurring reports how many recurring callbacks are registered.
func (f *Fake) Recurring() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// Armed reports how many alarms are pending.
func (f *Fake) Armed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alarms)
}

// Intervals returns the interval of every ScheduleRecurring call so far.
func (f *Fake) Intervals() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.schedule...)
}
