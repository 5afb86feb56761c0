package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

// Task is one row of the progress display.
type Task struct {
	ID       TaskID
	Name     string
	Status   TaskStatus
	Message  string
	Failures int
	Progress float64
	Error    error
}

// NewTask creates a pending task.
func NewTask(id TaskID, name string) Task {
	return Task{
		ID:     id,
		Name:   name,
		Status: StatusPending,
	}
}

// View renders the task as a string.
func (t Task) View(spinnerFrame string, prog progress.Model) string {
	icon := StatusIcon(t.Status, spinnerFrame)

	name := taskNameStyle.Render(t.Name)
	if t.Status == StatusPending {
		name = taskDimStyle.Render(t.Name)
	}

	line := fmt.Sprintf("  %s %s", icon, name)

	if t.Status == StatusRunning && t.Progress > 0 {
		line += fmt.Sprintf(" %s %d%%", prog.ViewAs(t.Progress), int(t.Progress*100))
	}
	if t.Message != "" {
		line += " " + messageStyle.Render(t.Message)
	}
	if t.Failures > 0 {
		line += " " + errorStyle.Render(fmt.Sprintf("(%d failed)", t.Failures))
	}
	if t.Error != nil {
		line += " " + errorStyle.Render(t.Error.Error())
	}

	return line
}
