package pomodoro

import (
	"errors"
	"strings"
	"testing"
)

func TestNewTaskTrimsAndAssignsID(t *testing.T) {
	task, err := NewTask("  Write report  ", "  draft  ", 3)
	if err != nil {
		t.Fatal(err)
	}
	if task.Title != "Write report" || task.Description != "draft" {
		t.Errorf("task = %+v, want trimmed fields", task)
	}
	if task.ID == "" {
		t.Error("expected an ID")
	}
	if task.Status != TaskNotStarted {
		t.Errorf("status = %s, want not_started", task.Status)
	}

	other, _ := NewTask("Other", "", 1)
	if other.ID == task.ID {
		t.Error("IDs should be unique")
	}
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name  string
		title string
		desc  string
		est   int
		field string
	}{
		{"empty title", "", "", 1, "title"},
		{"long title", strings.Repeat("a", MaxTitleLength+1), "", 1, "title"},
		{"long description", "ok", strings.Repeat("d", MaxDescriptionLength+1), 1, "description"},
		{"zero estimate", "ok", "", 0, "estimated_pomodoros"},
		{"huge estimate", "ok", "", MaxPomodoros + 1, "estimated_pomodoros"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTask(tt.title, tt.desc, tt.est)
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.field {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.field)
			}
		})
	}
}

func TestTaskLimitsAreInclusive(t *testing.T) {
	if _, err := NewTask(strings.Repeat("a", MaxTitleLength), strings.Repeat("d", MaxDescriptionLength), MaxPomodoros); err != nil {
		t.Fatalf("task at the limits should be valid: %v", err)
	}
}

func TestTaskRemaining(t *testing.T) {
	task := Task{EstimatedPomodoros: 4, CompletedPomodoros: 1}
	if got := task.Remaining(); got != 3 {
		t.Errorf("remaining = %d, want 3", got)
	}
	task.CompletedPomodoros = 6
	if !task.Done() || task.Remaining() != 0 {
		t.Errorf("over-estimate task should be done with 0 remaining")
	}
}
