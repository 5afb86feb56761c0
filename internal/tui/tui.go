// Package tui renders live run progress in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/spiffcs/boardsync/internal/constants"
	"github.com/spiffcs/boardsync/internal/service"
)

// ErrInterrupted is returned by Run when the user quits before the run ends.
var ErrInterrupted = errors.New("interrupted")

// Run starts the TUI and blocks until a DoneEvent arrives, the channel is
// closed or the user quits.
func Run(events <-chan Event, opts ...ModelOption) error {
	model := NewModel(events, opts...)
	// Render inline rather than on the alt screen so the report follows.
	p := tea.NewProgram(model)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && !m.Done() {
		return ErrInterrupted
	}
	return nil
}

// ShouldUseTUI returns true if the TUI should be used based on environment.
func ShouldUseTUI() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}

	ciVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"GITLAB_CI",
		"BUILDKITE",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return false
		}
	}

	return true
}

// SendEvent sends an event to the channel in a non-blocking manner.
func SendEvent(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- e:
	default:
		// Drop the event rather than stall the run.
	}
}

// SendTaskEvent is a convenience function for sending task events.
func SendTaskEvent(ch chan<- Event, task TaskID, status TaskStatus, opts ...TaskEventOption) {
	e := TaskEvent{
		Task:   task,
		Status: status,
	}
	for _, opt := range opts {
		opt(&e)
	}
	SendEvent(ch, e)
}

// TaskEventOption is a functional option for TaskEvent.
type TaskEventOption func(*TaskEvent)

// WithMessage sets the message on a TaskEvent.
func WithMessage(msg string) TaskEventOption {
	return func(e *TaskEvent) {
		e.Message = msg
	}
}

// WithProgress sets the progress on a TaskEvent.
func WithProgress(progress float64) TaskEventOption {
	return func(e *TaskEvent) {
		e.Progress = progress
	}
}

// WithFailures sets the failure count on a TaskEvent.
func WithFailures(n int) TaskEventOption {
	return func(e *TaskEvent) {
		e.Failures = n
	}
}

// WithError sets the error on a TaskEvent.
func WithError(err error) TaskEventOption {
	return func(e *TaskEvent) {
		e.Error = err
	}
}

// ProgressReporter translates pipeline progress into task events.
func ProgressReporter(ch chan<- Event) service.ProgressFunc {
	return func(p service.Progress) {
		SendEvent(ch, taskEventFor(p))
	}
}

func taskEventFor(p service.Progress) TaskEvent {
	e := TaskEvent{Task: TaskID(p.Label), Status: StatusRunning, Failures: p.Failures}
	switch p.Stage {
	case service.StageDiscover:
		e.Message = "discovering issues"
	case service.StageEnroll, service.StageAnnotate:
		verb := "enrolling"
		if p.Stage == service.StageAnnotate {
			verb = "annotating"
		}
		e.Message = fmt.Sprintf("%s %d/%d", verb, p.Completed, p.Total)
		if p.Total > 0 {
			e.Progress = float64(p.Completed) / float64(p.Total)
		}
	case service.StageDone:
		e.Status = StatusComplete
		if p.Failures > 0 {
			e.Status = StatusError
		}
		e.Message = fmt.Sprintf("%d issue(s)", p.Total)
	}
	return e
}

// RateLimitSource is polled for the quota shown under the task list.
type RateLimitSource func() RateLimitEvent

// WatchRateLimit sends the quota every constants.TUIUpdateInterval until ctx
// ends.
func WatchRateLimit(ctx context.Context, ch chan<- Event, source RateLimitSource) {
	ticker := time.NewTicker(constants.TUIUpdateInterval)
	defer ticker.Stop()

	var last RateLimitEvent
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ev := source(); ev != last {
				last = ev
				SendEvent(ch, ev)
			}
		}
	}
}
