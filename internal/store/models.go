package store

import (
	"time"

	"github.com/sadopc/focusassist/internal/pomodoro"
)

// Task is a stored work item. Its ID is shared with the timer's copy.
type Task struct {
	ID                 string
	Title              string
	Description        string
	EstimatedPomodoros int
	CompletedPomodoros int
	Status             pomodoro.TaskStatus
	Position           int
	Archived           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Pomodoro returns the timer's view of t.
func (t Task) Pomodoro() pomodoro.Task {
	return pomodoro.Task{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		EstimatedPomodoros: t.EstimatedPomodoros,
		CompletedPomodoros: t.CompletedPomodoros,
		Status:             t.Status,
	}
}

// Session statuses.
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

// PomodoroSession is one run of the timer from Start until it goes idle.
type PomodoroSession struct {
	ID                int64
	WorkDuration      int // seconds
	BreakDuration     int
	LongBreakDuration int
	CompletedCount    int
	Status            string
	StartedAt         time.Time
	CompletedAt       *time.Time
}

// SessionEvent is one line of a session's event log.
type SessionEvent struct {
	ID         int64
	SessionID  int64
	Type       string
	RelativeMs int64
	Data       map[string]any
	CreatedAt  time.Time
}

type Setting struct {
	Key   string
	Value string
}

// DailyPomodoros is the number of pomodoros completed on one day.
type DailyPomodoros struct {
	Date      string
	Completed int
	Sessions  int
}
