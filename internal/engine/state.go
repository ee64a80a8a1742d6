package engine

import (
	"time"

	"github.com/sadopc/tomato/internal/pomo"
)

// State is the timer engine state. A break is never idle: switching to a
// break starts it, and only switching back to work ends it.
type State int

const (
	WorkIdle State = iota
	WorkRunning
	BreakRunning
)

var stateNames = map[State]string{
	WorkIdle:     "work_idle",
	WorkRunning:  "work_running",
	BreakRunning: "break_running",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Mode returns the timer mode the state belongs to.
func (s State) Mode() pomo.Mode {
	if s == BreakRunning {
		return pomo.ModeBreak
	}
	return pomo.ModeWork
}

// Callbacks are invoked after the engine has released its lock, from
// whichever goroutine drove the change (a command, the tick scheduler or the
// resilient alarm). Nil callbacks are skipped.
type Callbacks struct {
	// OnTick reports the displayed seconds: remaining in work mode,
	// elapsed in break mode.
	OnTick func(displaySeconds int64, mode pomo.Mode)
	// OnWorkCompleted fires exactly once per completed work session.
	OnWorkCompleted func(description string)
	OnModeChanged   func(mode pomo.Mode)
	// OnSessionCompleted carries the session to record: a finished work
	// session or a break that ended with SwitchToWork.
	OnSessionCompleted func(c pomo.Completed)
}

// Snapshot is a read-only view of the engine for presentation.
type Snapshot struct {
	State        State
	Mode         pomo.Mode
	Seconds      int64 // remaining in work mode, elapsed in break mode
	Ticking      bool
	TargetEnd    time.Time // zero unless WorkRunning
	BreakStart   time.Time // zero unless BreakRunning
	Description  string
	WorkDuration time.Duration
}

// Title renders the terminal title text, e.g. "24:13 - Focus".
func (s Snapshot) Title() string {
	if !s.Ticking {
		return "Pomodoro Timer"
	}
	return pomo.FormatClock(s.Seconds) + " - " + s.Mode.Label()
}

// pending collects callbacks to run once the lock is released.
type pending []func()

func (p *pending) add(fn func()) {
	*p = append(*p, fn)
}

func (p pending) run() {
	for _, fn := range p {
		fn()
	}
}
