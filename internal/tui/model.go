package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/spiffcs/boardsync/internal/constants"
)

// Model is the Bubble Tea model for the run progress display.
type Model struct {
	tasks       []Task
	spinner     spinner.Model
	progress    progress.Model
	events      <-chan Event
	done        bool
	username    string
	windowWidth int
	rateLimit   RateLimitEvent
	now         func() time.Time
}

// doneMsg signals that the event channel was closed.
type doneMsg struct{}

// ModelOption is a functional option for configuring a Model.
type ModelOption func(*Model)

// WithTasks sets the tasks to display in the TUI.
func WithTasks(tasks []Task) ModelOption {
	return func(m *Model) {
		m.tasks = tasks
	}
}

// LabelTasks returns the authentication row followed by one row per label.
func LabelTasks(labels []string) []Task {
	tasks := []Task{NewTask(TaskAuth, "Authenticating")}
	for _, l := range labels {
		tasks = append(tasks, NewTask(TaskID(l), l))
	}
	return tasks
}

// NewModel creates a new TUI model.
func NewModel(events <-chan Event, opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	p := progress.New(
		progress.WithScaledGradient("#60a5fa", "#1e3a8a"),
		progress.WithWidth(25),
		progress.WithoutPercentage(),
	)

	m := Model{
		tasks:    []Task{NewTask(TaskAuth, "Authenticating")},
		spinner:  s,
		progress: p,
		events:   events,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// Done reports whether the run finished before the display exited.
func (m Model) Done() bool {
	return m.done
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.events),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case TaskEvent:
		m = m.updateTask(msg)
		return m, waitForEvent(m.events)

	case RateLimitEvent:
		m.rateLimit = msg
		return m, waitForEvent(m.events)

	case DoneEvent, doneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// updateTask applies e to its row. Unknown rows are appended so labels not
// announced up front still show.
func (m Model) updateTask(e TaskEvent) Model {
	idx := -1
	for i := range m.tasks {
		if m.tasks[i].ID == e.Task {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.tasks = append(m.tasks, NewTask(e.Task, string(e.Task)))
		idx = len(m.tasks) - 1
	}

	t := &m.tasks[idx]
	t.Status = e.Status
	t.Message = e.Message
	t.Progress = e.Progress
	t.Failures = e.Failures
	if e.Error != nil {
		t.Error = e.Error
	}
	if e.Task == TaskAuth && e.Status == StatusComplete && e.Message != "" {
		m.username = e.Message
	}
	return m
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	for _, task := range m.tasks {
		if task.ID == TaskAuth {
			b.WriteString(m.authView(task))
			continue
		}
		b.WriteString(task.View(m.spinner.View(), m.progress))
		b.WriteString("\n")
	}

	api := "API"
	if m.rateLimit.Resource != "" {
		api = m.rateLimit.Resource + " API"
	}
	if m.rateLimit.Limited {
		if wait := m.rateLimit.ResetAt.Sub(m.now()).Round(time.Second); wait > 0 {
			b.WriteString(warnStyle.Render(fmt.Sprintf("\n  Rate limited (%s), waiting for reset in %s\n", api, wait)))
		}
	} else if m.rateLimit.ResetAt.After(m.now()) && m.rateLimit.Remaining < constants.RateLimitLowWatermark {
		b.WriteString(warnStyle.Render(fmt.Sprintf("\n  %s quota low: %d requests left\n", api, m.rateLimit.Remaining)))
	}

	if !m.done {
		b.WriteString(footerStyle.Render("\n  Press Ctrl+C to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) authView(task Task) string {
	switch task.Status {
	case StatusComplete:
		if m.username != "" {
			return fmt.Sprintf("  %s Authenticated as %s\n", iconComplete, userStyle.Render(m.username))
		}
	case StatusRunning:
		return fmt.Sprintf("  %s Authenticating...\n", spinnerStyle.Render(m.spinner.View()))
	case StatusError:
		if task.Error != nil {
			return fmt.Sprintf("  %s Authenticating %s\n", iconError, errorStyle.Render(task.Error.Error()))
		}
	}
	return task.View(m.spinner.View(), m.progress) + "\n"
}

// waitForEvent creates a command that waits for the next event.
func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return event
	}
}
