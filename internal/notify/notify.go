// Package notify delivers the "focus complete" alert: a desktop
// notification and an audible terminal bell. Delivery is best effort;
// failures are logged at debug level and never reach the caller.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"time"
)

// Message is a notification to show.
type Message struct {
	Title string
	Body  string
}

// WorkCompleted is the message shown when a focus session finishes.
func WorkCompleted(description string) Message {
	return Message{
		Title: "Focus Complete!",
		Body:  fmt.Sprintf("Great job! You completed: %s", description),
	}
}

// Sink delivers a message.
type Sink interface {
	Notify(ctx context.Context, m Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, m Message) error

func (f SinkFunc) Notify(ctx context.Context, m Message) error { return f(ctx, m) }

// Runner runs an external command. It is replaced in tests.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Desktop shows a desktop notification through notify-send on Linux and
// osascript on macOS.
type Desktop struct {
	GOOS string
	Run  Runner
}

// NewDesktop returns a Desktop for the running platform.
func NewDesktop() *Desktop {
	return &Desktop{GOOS: runtime.GOOS, Run: execRunner}
}

func (d *Desktop) Notify(ctx context.Context, m Message) error {
	name, args, err := d.command(m)
	if err != nil {
		return err
	}
	run := d.Run
	if run == nil {
		run = execRunner
	}
	if err := run(ctx, name, args...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (d *Desktop) command(m Message) (string, []string, error) {
	switch d.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "notify-send", []string{"--app-name=tomato", m.Title, m.Body}, nil
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", m.Body, m.Title)
		return "osascript", []string{"-e", script}, nil
	}
	return "", nil, fmt.Errorf("desktop notifications unsupported on %s", d.GOOS)
}

// Bell rings the terminal bell.
type Bell struct {
	W io.Writer
}

func (b Bell) Notify(_ context.Context, _ Message) error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

// Notifier fans a message out to its sinks. Each sink can be switched off
// independently.
type Notifier struct {
	Desktop Sink
	Sound   Sink
	Timeout time.Duration
	log     *slog.Logger

	// Enabled reports whether a sink ("notifications" or "sound") is on.
	// Nil means every sink is on.
	Enabled func(name string) bool
}

// Sink names used with Enabled.
const (
	SinkDesktop = "notifications"
	SinkSound   = "sound"
)

func New(desktop, sound Sink, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		Desktop: desktop,
		Sound:   sound,
		Timeout: 5 * time.Second,
		log:     logger.With("component", "notify"),
	}
}

// Send delivers m to every enabled sink and reports how many succeeded.
func (n *Notifier) Send(ctx context.Context, m Message) int {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delivered := 0
	for _, s := range []struct {
		name string
		sink Sink
	}{
		{SinkDesktop, n.Desktop},
		{SinkSound, n.Sound},
	} {
		if s.sink == nil || (n.Enabled != nil && !n.Enabled(s.name)) {
			continue
		}
		if err := s.sink.Notify(ctx, m); err != nil {
			n.log.Debug("notification failed", "sink", s.name, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
