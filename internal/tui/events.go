package tui

import (
	"time"
)

// TaskID identifies a row in the progress display. Label rows use the
// label name.
type TaskID string

// TaskAuth is the authentication row shown before any label.
const TaskAuth TaskID = "auth"

// TaskStatus represents the current status of a task.
type TaskStatus int

const (
	StatusPending TaskStatus = iota
	StatusRunning
	StatusComplete
	StatusError
	StatusSkipped
)

// Event is the interface for all TUI events.
type Event interface {
	isEvent()
}

// TaskEvent represents an update to a task's status.
type TaskEvent struct {
	Task     TaskID
	Status   TaskStatus
	Message  string  // stage or "12/30"
	Failures int     // failures recorded so far
	Progress float64 // 0.0 to 1.0
	Error    error
}

func (TaskEvent) isEvent() {}

// RateLimitEvent reports the client's view of the API quota.
type RateLimitEvent struct {
	Resource  string
	Limited   bool
	Remaining int
	ResetAt   time.Time
}

func (RateLimitEvent) isEvent() {}

// DoneEvent signals that all work is complete.
type DoneEvent struct{}

func (DoneEvent) isEvent() {}
