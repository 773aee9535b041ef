package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/sadopc/focusassist/internal/config"
	"github.com/sadopc/focusassist/internal/focus"
	"github.com/sadopc/focusassist/internal/pomodoro"
	"github.com/sadopc/focusassist/internal/store"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "focusassist" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "focusassist")
	}

	expectedCmds := []string{"run", "tasks", "export", "stats", "sessions"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}

	for _, flag := range []string{"config", "db", "log-level"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected global flag --%s", flag)
		}
	}
}

func TestParseTaskFlag(t *testing.T) {
	tests := []struct {
		arg   string
		title string
		n     int
	}{
		{"Write report", "Write report", 1},
		{"Write report:3", "Write report", 3},
		{"Write report: 2", "Write report", 2},
		{"Meeting at 10:30", "Meeting at 10", 30},
		{"Ratio 3:two", "Ratio 3:two", 1},
		{"a:b:4", "a:b", 4},
	}
	for _, tt := range tests {
		title, n := parseTaskFlag(tt.arg)
		if title != tt.title || n != tt.n {
			t.Errorf("parseTaskFlag(%q) = %q, %d; want %q, %d", tt.arg, title, n, tt.title, tt.n)
		}
	}
}

func TestFindTask(t *testing.T) {
	st, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	tasks := []pomodoro.Task{
		{ID: "abc123-one", Title: "One", EstimatedPomodoros: 1, Status: pomodoro.TaskNotStarted},
		{ID: "abc456-two", Title: "Two", EstimatedPomodoros: 1, Status: pomodoro.TaskNotStarted},
		{ID: "abc", Title: "Short", EstimatedPomodoros: 1, Status: pomodoro.TaskNotStarted},
	}
	for _, task := range tasks {
		if _, err := st.CreateTask(task); err != nil {
			t.Fatal(err)
		}
	}

	got, err := findTask(st, "abc1")
	if err != nil || got.Title != "One" {
		t.Fatalf("findTask(abc1) = %+v, %v", got, err)
	}
	got, err = findTask(st, "abc")
	if err != nil || got.Title != "Short" {
		t.Fatalf("exact ID should win over prefixes: %+v, %v", got, err)
	}
	if _, err := findTask(st, "abc4"); err != nil {
		t.Fatalf("findTask(abc4): %v", err)
	}
	got, err = findTask(st, "One")
	if err != nil || got.ID != "abc123-one" {
		t.Fatalf("title lookup = %+v, %v", got, err)
	}

	if err := st.ArchiveTask("abc456-two"); err != nil {
		t.Fatal(err)
	}
	if _, err := findTask(st, "abc456"); err != nil {
		t.Fatalf("archived tasks should still resolve: %v", err)
	}

	if _, err := findTask(st, "xyz"); err == nil || !strings.Contains(err.Error(), "no task") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := findTask(st, " "); err == nil {
		t.Fatal("expected error for empty ID")
	}
}

func TestFindTaskAmbiguous(t *testing.T) {
	st, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	for _, id := range []string{"dup-1", "dup-2"} {
		task := pomodoro.Task{ID: id, Title: id, EstimatedPomodoros: 1, Status: pomodoro.TaskNotStarted}
		if _, err := st.CreateTask(task); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := findTask(st, "dup"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %q", got)
	}
}

func TestDetectors(t *testing.T) {
	cfg := config.FocusConfig{IdleEnabled: false}
	if ds := detectors(cfg); len(ds) != 0 {
		t.Fatalf("expected no detectors, got %d", len(ds))
	}

	cfg = config.FocusConfig{Command: "true", IdleEnabled: true, IdleAwayAfter: time.Minute}
	ds := detectors(cfg)
	if len(ds) != 2 {
		t.Fatalf("expected 2 detectors, got %d", len(ds))
	}
	if ds[0].Name() != "command" || ds[1].Name() != "idle" {
		t.Errorf("detectors = %s, %s", ds[0].Name(), ds[1].Name())
	}
	if idle, ok := ds[1].(*focus.IdleDetector); !ok || idle.AwayAfter != time.Minute {
		t.Errorf("idle detector = %#v", ds[1])
	}
}
