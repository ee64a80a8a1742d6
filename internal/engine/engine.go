// Package engine implements the focus/break timer state machine.
//
// Remaining and elapsed time are always derived from an absolute instant
// (the work deadline or the break start) and the wall clock; nothing is
// decremented per tick, so missed or throttled ticks never skew the timer.
package engine

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sadopc/tomato/internal/clock"
	"github.com/sadopc/tomato/internal/pomo"
)

const (
	DefaultWorkDuration = 25 * time.Minute
	DefaultTickInterval = 100 * time.Millisecond
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	WorkDuration time.Duration
	TickInterval time.Duration
	Clock        clock.Clock
	Scheduler    Scheduler
	Alarm        ResilientAlarm
	Callbacks    Callbacks
	Logger       *slog.Logger
}

// Engine is the timer state machine. It is safe for use from multiple
// goroutines: commands arrive from the UI loop while ticks and the alarm
// arrive from their own goroutines.
type Engine struct {
	mu   sync.Mutex
	opts Options
	log  *slog.Logger

	state       State
	remaining   int64 // seconds, meaningful in work mode
	elapsed     int64 // seconds, meaningful in break mode
	targetEnd   time.Time
	breakStart  time.Time
	description string

	ticking  bool
	gen      uint64
	stopTick func()
	disarm   func()
}

// New creates an engine in WorkIdle with a full work interval loaded.
func New(opts Options) *Engine {
	if opts.WorkDuration <= 0 {
		opts.WorkDuration = DefaultWorkDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TickerScheduler{}
	}
	if opts.Alarm == nil {
		opts.Alarm = TimerAlarm{Clock: opts.Clock}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		opts:      opts,
		log:       logger.With("component", "engine"),
		state:     WorkIdle,
		remaining: workSeconds(opts.WorkDuration),
	}
}

// Start begins a work session or resumes the break tick.
//
// In work mode a non-blank description is required; a blank one returns a
// *pomo.ValidationError and leaves the engine untouched. Starting while a
// work session already runs is a no-op.
func (e *Engine) Start(description string) error {
	e.mu.Lock()
	var p pending
	err := e.startLocked(description, &p)
	e.mu.Unlock()
	p.run()
	return err
}

func (e *Engine) startLocked(description string, p *pending) error {
	now := e.opts.Clock.Now()

	switch e.state {
	case WorkRunning:
		return nil
	case BreakRunning:
		if e.ticking {
			return nil
		}
		if e.breakStart.IsZero() {
			e.breakStart = now
		}
		e.startTickingLocked()
		return nil
	}

	desc := strings.TrimSpace(description)
	if desc == "" {
		return &pomo.ValidationError{Field: "description"}
	}

	e.description = desc
	e.state = WorkRunning
	e.targetEnd = now.Add(time.Duration(e.remaining) * time.Second)
	e.startTickingLocked()
	e.tickEventLocked(p, e.remaining)

	e.log.Debug("work started", "description", desc, "target_end", e.targetEnd, "remaining", e.remaining)
	return nil
}

// Pause freezes a running work session. A session whose deadline has
// already passed is completed instead. In break mode it only stops the
// tick; the break start and elapsed time are left alone.
func (e *Engine) Pause() {
	e.mu.Lock()
	var p pending
	switch e.state {
	case WorkRunning:
		e.remaining = remainingSeconds(e.targetEnd, e.opts.Clock.Now())
		if e.remaining <= 0 {
			e.completeLocked(&p)
			break
		}
		e.targetEnd = time.Time{}
		e.state = WorkIdle
		e.stopTickingLocked()
		e.tickEventLocked(&p, e.remaining)
		e.log.Debug("work paused", "remaining", e.remaining)
	case BreakRunning:
		e.stopTickingLocked()
	}
	e.mu.Unlock()
	p.run()
}

// Reset reloads a full work interval, or restarts the break count from
// zero. A reset never stops a break.
func (e *Engine) Reset() {
	e.mu.Lock()
	var p pending
	if e.state == BreakRunning {
		e.breakStart = e.opts.Clock.Now()
		e.elapsed = 0
		e.startTickingLocked()
		e.tickEventLocked(&p, 0)
	} else {
		e.stopTickingLocked()
		e.state = WorkIdle
		e.targetEnd = time.Time{}
		e.remaining = workSeconds(e.opts.WorkDuration)
		e.tickEventLocked(&p, e.remaining)
	}
	e.mu.Unlock()
	p.run()
}

// SwitchToBreak abandons any work in progress without recording it and
// starts a break immediately.
func (e *Engine) SwitchToBreak() {
	e.mu.Lock()
	if e.state == BreakRunning {
		e.mu.Unlock()
		return
	}
	var p pending
	e.stopTickingLocked()
	e.targetEnd = time.Time{}
	e.state = BreakRunning
	e.breakStart = e.opts.Clock.Now()
	e.elapsed = 0
	e.startTickingLocked()
	e.modeEventLocked(&p, pomo.ModeBreak)
	e.tickEventLocked(&p, 0)
	e.log.Debug("break started", "at", e.breakStart)
	e.mu.Unlock()
	p.run()
}

// SwitchToWork ends the running break, reports it as a completed break
// session and loads a fresh work interval. A blank description becomes
// "Break".
func (e *Engine) SwitchToWork(breakDescription string) {
	e.mu.Lock()
	if e.state != BreakRunning {
		e.mu.Unlock()
		return
	}
	var p pending
	now := e.opts.Clock.Now()
	duration := elapsedSeconds(e.breakStart, now)

	desc := strings.TrimSpace(breakDescription)
	if desc == "" {
		desc = pomo.DefaultBreakDescription
	}

	e.stopTickingLocked()
	e.state = WorkIdle
	e.breakStart = time.Time{}
	e.elapsed = 0
	e.remaining = workSeconds(e.opts.WorkDuration)

	e.sessionEventLocked(&p, pomo.Completed{
		Description: desc,
		Mode:        pomo.ModeBreak,
		Duration:    duration,
		EndedAt:     now,
	})
	e.modeEventLocked(&p, pomo.ModeWork)
	e.tickEventLocked(&p, e.remaining)
	e.log.Debug("break ended", "description", desc, "duration", duration)
	e.mu.Unlock()
	p.run()
}

// Tick recomputes the displayed time from the wall clock and completes the
// work session once its deadline has passed.
func (e *Engine) Tick() {
	e.mu.Lock()
	var p pending
	e.tickLocked(&p)
	e.mu.Unlock()
	p.run()
}

func (e *Engine) tickLocked(p *pending) {
	now := e.opts.Clock.Now()
	switch e.state {
	case WorkRunning:
		e.remaining = remainingSeconds(e.targetEnd, now)
		e.tickEventLocked(p, e.remaining)
		if e.remaining <= 0 {
			e.completeLocked(p)
		}
	case BreakRunning:
		e.elapsed = elapsedSeconds(e.breakStart, now)
		e.tickEventLocked(p, e.elapsed)
	}
}

// Complete finishes the running work session. Only the first call after a
// deadline has any effect; later calls, such as a racing alarm, are no-ops.
func (e *Engine) Complete() {
	e.mu.Lock()
	var p pending
	e.completeLocked(&p)
	e.mu.Unlock()
	p.run()
}

func (e *Engine) completeLocked(p *pending) {
	if e.state != WorkRunning {
		return
	}
	now := e.opts.Clock.Now()
	full := workSeconds(e.opts.WorkDuration)
	desc := e.description

	e.stopTickingLocked()
	e.state = WorkIdle
	e.targetEnd = time.Time{}
	e.remaining = full
	e.description = ""

	e.sessionEventLocked(p, pomo.Completed{
		Description: desc,
		Mode:        pomo.ModeWork,
		Duration:    full,
		EndedAt:     now,
	})
	if fn := e.opts.Callbacks.OnWorkCompleted; fn != nil {
		p.add(func() { fn(desc) })
	}
	e.tickEventLocked(p, full)
	e.log.Info("work session completed", "description", desc, "duration", full)
}

// SetWorkDuration changes the configured work interval. An idle timer that
// has not been started into its current interval picks it up immediately;
// otherwise it applies from the next reset or completion.
func (e *Engine) SetWorkDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	var p pending
	fresh := e.state == WorkIdle && e.remaining == workSeconds(e.opts.WorkDuration)
	e.opts.WorkDuration = d
	if fresh {
		e.remaining = workSeconds(d)
		e.tickEventLocked(&p, e.remaining)
	}
	e.mu.Unlock()
	p.run()
}

// Snapshot returns the current state with the displayed seconds computed
// from the wall clock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Clock.Now()
	s := Snapshot{
		State:        e.state,
		Mode:         e.state.Mode(),
		Ticking:      e.ticking,
		TargetEnd:    e.targetEnd,
		BreakStart:   e.breakStart,
		Description:  e.description,
		WorkDuration: e.opts.WorkDuration,
	}
	switch e.state {
	case WorkRunning:
		s.Seconds = remainingSeconds(e.targetEnd, now)
	case BreakRunning:
		s.Seconds = elapsedSeconds(e.breakStart, now)
	default:
		s.Seconds = e.remaining
	}
	return s
}

// Close stops every tick source.
func (e *Engine) Close() {
	e.mu.Lock()
	e.stopTickingLocked()
	e.mu.Unlock()
}

func (e *Engine) startTickingLocked() {
	e.stopTickingLocked()
	gen := e.gen
	e.ticking = true
	e.stopTick = e.opts.Scheduler.ScheduleRecurring(e.opts.TickInterval, func() {
		e.handleTick(gen)
	})
	if e.state == WorkRunning {
		e.disarm = e.opts.Alarm.ArmAt(e.targetEnd, func() {
			e.handleTick(gen)
		})
	}
}

// stopTickingLocked stops both tick sources and bumps the generation so a
// callback already in flight is discarded.
func (e *Engine) stopTickingLocked() {
	e.gen++
	e.ticking = false
	if e.stopTick != nil {
		e.stopTick()
		e.stopTick = nil
	}
	if e.disarm != nil {
		e.disarm()
		e.disarm = nil
	}
}

func (e *Engine) handleTick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || !e.ticking {
		e.mu.Unlock()
		return
	}
	var p pending
	e.tickLocked(&p)
	e.mu.Unlock()
	p.run()
}

func (e *Engine) tickEventLocked(p *pending, secs int64) {
	if fn := e.opts.Callbacks.OnTick; fn != nil {
		mode := e.state.Mode()
		p.add(func() { fn(secs, mode) })
	}
}

func (e *Engine) modeEventLocked(p *pending, mode pomo.Mode) {
	if fn := e.opts.Callbacks.OnModeChanged; fn != nil {
		p.add(func() { fn(mode) })
	}
}

func (e *Engine) sessionEventLocked(p *pending, c pomo.Completed) {
	if fn := e.opts.Callbacks.OnSessionCompleted; fn != nil {
		p.add(func() { fn(c) })
	}
}

func workSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// remainingSeconds is ceil((target-now)/1s), clamped at zero.
func remainingSeconds(target, now time.Time) int64 {
	d := target.Sub(now)
	secs := int64(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return max(secs, 0)
}

// elapsedSeconds is floor((now-start)/1s), clamped at zero.
func elapsedSeconds(start, now time.Time) int64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
