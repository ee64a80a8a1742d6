package engine

import (
	"sync"
	"time"

	"github.com/sadopc/tomato/internal/clock"
)

// Scheduler runs a callback at a fixed cadence until stopped. Stop must not
// block waiting for an in-flight callback.
type Scheduler interface {
	ScheduleRecurring(interval time.Duration, fn func()) (stop func())
}

// ResilientAlarm runs a callback once at an absolute instant, from an
// execution context that keeps running when the primary tick loop is
// starved or suspended.
type ResilientAlarm interface {
	ArmAt(at time.Time, fn func()) (disarm func())
}

// TickerScheduler drives callbacks from a goroutine owning a time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) ScheduleRecurring(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// TimerAlarm arms a runtime timer; its callback runs on its own goroutine.
type TimerAlarm struct {
	Clock clock.Clock
}

func (a TimerAlarm) ArmAt(at time.Time, fn func()) func() {
	c := a.Clock
	if c == nil {
		c = clock.System{}
	}
	t := time.AfterFunc(max(at.Sub(c.Now()), 0), fn)
	return func() { t.Stop() }
}
