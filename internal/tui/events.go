package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/tomato/internal/engine"
	"github.com/sadopc/tomato/internal/pomo"
)

// eventQueue carries engine callbacks into the Bubble Tea loop. Callbacks
// fire from the UI loop itself as well as from the ticker and alarm
// goroutines, so pushing never blocks: events are appended to a slice and a
// one-slot signal channel wakes the waiting command.
type eventQueue struct {
	mu      sync.Mutex
	pending []any
	signal  chan struct{}
	closed  bool
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(msg any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	// Consecutive ticks collapse into the latest one.
	if _, ok := msg.(engineTickMsg); ok && len(q.pending) > 0 {
		if _, last := q.pending[len(q.pending)-1].(engineTickMsg); last {
			q.pending[len(q.pending)-1] = msg
			return
		}
	}
	q.pending = append(q.pending, msg)

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// drain returns and clears everything queued so far.
func (q *eventQueue) drain() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// close drops later events and releases a pending wait.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.signal)
	}
}

// wait blocks until at least one event is queued and delivers the batch.
// It returns nil once the queue is closed.
func (q *eventQueue) wait() tea.Cmd {
	return func() tea.Msg {
		for range q.signal {
			if events := q.drain(); len(events) > 0 {
				return engineEventsMsg(events)
			}
		}
		return nil
	}
}

func (q *eventQueue) callbacks() engine.Callbacks {
	return engine.Callbacks{
		OnTick: func(secs int64, mode pomo.Mode) {
			q.push(engineTickMsg{seconds: secs, mode: mode})
		},
		OnWorkCompleted: func(desc string) {
			q.push(workCompletedMsg{description: desc})
		},
		OnModeChanged: func(mode pomo.Mode) {
			q.push(modeChangedMsg{mode: mode})
		},
		OnSessionCompleted: func(c pomo.Completed) {
			q.push(sessionCompletedMsg{completed: c})
		},
	}
}
