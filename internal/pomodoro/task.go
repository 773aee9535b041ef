package pomodoro

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus is the progress state of a Task.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskPaused     TaskStatus = "paused"
)

// Task is one work item in the timer's queue.
type Task struct {
	ID                 string
	Title              string
	Description        string
	EstimatedPomodoros int
	CompletedPomodoros int
	Status             TaskStatus
}

// NewTask builds a validated, not yet started task with a fresh ID.
func NewTask(title, description string, estimated int) (Task, error) {
	t := Task{
		ID:                 uuid.NewString(),
		Title:              strings.TrimSpace(title),
		Description:        strings.TrimSpace(description),
		EstimatedPomodoros: estimated,
		Status:             TaskNotStarted,
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Validate checks the task's fields against the task limits.
func (t Task) Validate() error {
	var errs ValidationErrors
	if t.ID == "" {
		errs = append(errs, ValidationError{Field: "id", Value: t.ID, Message: "must not be empty"})
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(t.Title)); n == 0 || n > MaxTitleLength {
		errs = append(errs, ValidationError{Field: "title", Value: t.Title, Message: "must be 1-100 characters"})
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		errs = append(errs, ValidationError{Field: "description", Value: len(t.Description), Message: "must be at most 500 characters"})
	}
	if t.EstimatedPomodoros < MinPomodoros || t.EstimatedPomodoros > MaxPomodoros {
		errs = append(errs, ValidationError{Field: "estimated_pomodoros", Value: t.EstimatedPomodoros, Message: "must be between 1 and 50"})
	}
	if t.CompletedPomodoros < 0 {
		errs = append(errs, ValidationError{Field: "completed_pomodoros", Value: t.CompletedPomodoros, Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Done reports whether the task has reached its estimate.
func (t Task) Done() bool {
	return t.CompletedPomodoros >= t.EstimatedPomodoros
}

// Remaining returns the number of pomodoros still estimated for the task.
func (t Task) Remaining() int {
	if t.Done() {
		return 0
	}
	return t.EstimatedPomodoros - t.CompletedPomodoros
}
