package pomodoro

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Work:                 20 * time.Second,
		ShortBreak:           3 * time.Second,
		LongBreak:            10 * time.Second,
		PomosBeforeLongBreak: 4,
		CheckInInterval:      3 * time.Second,
		SkipDisplay:          500 * time.Millisecond,
	}
}

func newTestTask(t *testing.T, title string, estimated int) Task {
	t.Helper()
	task, err := NewTask(title, "", estimated)
	if err != nil {
		t.Fatalf("new task %q: %v", title, err)
	}
	return task
}

func newTestTimer(t *testing.T, cfg Config, tasks ...Task) (*Timer, *ManualClock) {
	t.Helper()
	clock := NewManualClock(epoch)
	tm, err := New(cfg, tasks, WithClock(clock))
	if err != nil {
		t.Fatalf("new timer: %v", err)
	}
	return tm, clock
}

type events struct {
	mu       sync.Mutex
	states   []State
	checkIns []CheckIn
}

func watch(tm *Timer) *events {
	e := &events{}
	tm.OnStateChange(func(s State) {
		e.mu.Lock()
		e.states = append(e.states, s)
		e.mu.Unlock()
	})
	tm.OnCheckIn(func(c CheckIn) {
		e.mu.Lock()
		e.checkIns = append(e.checkIns, c)
		e.mu.Unlock()
	})
	return e
}

func (e *events) States() []State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.states)
}

func (e *events) CheckIns() []CheckIn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.checkIns)
}

func mustRemaining(t *testing.T, tm *Timer) time.Duration {
	t.Helper()
	remaining, ok := tm.RemainingTime()
	if !ok {
		t.Fatalf("RemainingTime reported idle, want a running timer")
	}
	return remaining
}

// skipAndLand polls through the skip display so the skip resolves.
func skipAndLand(t *testing.T, tm *Timer, clock *ManualClock) {
	t.Helper()
	tm.RemainingTime()
	clock.Advance(tm.Config().SkipDisplay)
	tm.RemainingTime()
}

// ============================================================
// Construction
// ============================================================

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Work = 0
	cfg.PomosBeforeLongBreak = -1

	_, err := New(cfg, []Task{newTestTask(t, "Write", 1)})
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}
	if len(verrs) != 2 {
		t.Fatalf("expected 2 validation errors, got %d: %v", len(verrs), verrs)
	}
	if verrs[0].Field != "work" {
		t.Errorf("first field = %q, want work", verrs[0].Field)
	}
}

func TestNewRequiresTasks(t *testing.T) {
	if _, err := New(testConfig(), nil); !errors.Is(err, ErrNoTasks) {
		t.Fatalf("expected ErrNoTasks, got %v", err)
	}

	tasks := make([]Task, MaxTasks+1)
	for i := range tasks {
		tasks[i] = newTestTask(t, "Task", 1)
	}
	if _, err := New(testConfig(), tasks); !errors.Is(err, ErrTooManyTasks) {
		t.Fatalf("expected ErrTooManyTasks, got %v", err)
	}
}

func TestNewRejectsInvalidTask(t *testing.T) {
	bad := Task{ID: "x", Title: "   ", EstimatedPomodoros: 1}
	if _, err := New(testConfig(), []Task{bad}); err == nil {
		t.Fatal("expected error for blank title")
	}
}

func TestNewSkipsFinishedTasks(t *testing.T) {
	done := newTestTask(t, "Done already", 2)
	done.CompletedPomodoros = 2
	tm, _ := newTestTimer(t, testConfig(), done, newTestTask(t, "Next", 1))

	if got := tm.CurrentTaskIndex(); got != 1 {
		t.Fatalf("current index = %d, want 1", got)
	}
	if got := tm.Tasks()[0].Status; got != TaskCompleted {
		t.Errorf("finished task status = %s, want completed", got)
	}
}

// ============================================================
// Start / Pause
// ============================================================

func TestStartFromIdle(t *testing.T) {
	tm, _ := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	ev := watch(tm)

	if tm.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", tm.State())
	}
	if _, ok := tm.RemainingTime(); ok {
		t.Fatal("idle timer should report no remaining time")
	}
	if !tm.Start() {
		t.Fatal("Start returned false")
	}
	if got := mustRemaining(t, tm); got != 20*time.Second {
		t.Errorf("remaining = %v, want 20s", got)
	}
	task, ok := tm.CurrentTask()
	if !ok || task.Status != TaskInProgress {
		t.Errorf("current task = %+v, want in_progress", task)
	}
	if got := ev.States(); !slices.Equal(got, []State{StateWork}) {
		t.Errorf("states = %v, want [work]", got)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	ev := watch(tm)

	tm.Start()
	clock.Advance(5 * time.Second)
	if !tm.Start() {
		t.Fatal("second Start should succeed as a no-op")
	}
	if got := mustRemaining(t, tm); got != 15*time.Second {
		t.Errorf("remaining = %v, want 15s", got)
	}
	if got := ev.States(); len(got) != 1 {
		t.Errorf("states = %v, want a single transition", got)
	}
}

func TestPauseFreezesRemaining(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.Start()
	clock.Advance(5 * time.Second)

	if !tm.Pause() {
		t.Fatal("Pause returned false")
	}
	if tm.State() != StatePaused {
		t.Fatalf("state = %s, want paused", tm.State())
	}
	if task, _ := tm.CurrentTask(); task.Status != TaskPaused {
		t.Errorf("task status = %s, want paused", task.Status)
	}

	clock.Advance(time.Hour)
	if got := mustRemaining(t, tm); got != 15*time.Second {
		t.Fatalf("paused remaining = %v, want 15s", got)
	}
	if tm.Pause() {
		t.Error("Pause while paused should fail")
	}

	if !tm.Start() {
		t.Fatal("resume failed")
	}
	if tm.State() != StateWork {
		t.Fatalf("state after resume = %s, want work", tm.State())
	}
	if task, _ := tm.CurrentTask(); task.Status != TaskInProgress {
		t.Errorf("task status after resume = %s, want in_progress", task.Status)
	}
	if got := mustRemaining(t, tm); got != 15*time.Second {
		t.Errorf("remaining after resume = %v, want 15s", got)
	}

	clock.Advance(15 * time.Second)
	tm.RemainingTime()
	if tm.State() != StateShortBreak {
		t.Errorf("state = %s, want short_break", tm.State())
	}
}

func TestOperationsRefusedWhenIdle(t *testing.T) {
	tm, _ := newTestTimer(t, testConfig(), newTestTask(t, "Write", 1))
	ev := watch(tm)

	if tm.Pause() {
		t.Error("Pause from idle should fail")
	}
	if tm.Skip() {
		t.Error("Skip from idle should fail")
	}
	if tm.SkipTo(StateShortBreak) {
		t.Error("SkipTo from idle should fail")
	}
	if tm.State() != StateIdle {
		t.Errorf("state = %s, want idle", tm.State())
	}
	if got := ev.States(); len(got) != 0 {
		t.Errorf("refused operations emitted %v", got)
	}
}

// ============================================================
// Skipping
// ============================================================

func TestSkipShowsSkippedForOnePoll(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.Start()
	if !tm.Skip() {
		t.Fatal("Skip returned false")
	}

	// The display time has passed but nobody has seen the state yet.
	clock.Advance(time.Second)
	remaining, ok := tm.RemainingTime()
	if !ok || remaining != 0 {
		t.Fatalf("first poll = (%v, %v), want (0, true)", remaining, ok)
	}
	if tm.State() != StateSkipped {
		t.Fatalf("state = %s, want skipped on first poll", tm.State())
	}

	if got := mustRemaining(t, tm); got != 3*time.Second {
		t.Errorf("remaining = %v, want 3s", got)
	}
	if tm.State() != StateShortBreak {
		t.Errorf("state = %s, want short_break", tm.State())
	}
	if got := tm.CompletedPomodoros(); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
}

func TestSkipHonoursDisplayTime(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.Start()
	tm.Skip()

	if got := mustRemaining(t, tm); got != 500*time.Millisecond {
		t.Fatalf("remaining = %v, want 500ms", got)
	}
	clock.Advance(200 * time.Millisecond)
	if got := mustRemaining(t, tm); got != 300*time.Millisecond {
		t.Fatalf("remaining = %v, want 300ms", got)
	}
	if tm.State() != StateSkipped {
		t.Fatalf("state = %s, want skipped", tm.State())
	}
	clock.Advance(300 * time.Millisecond)
	tm.RemainingTime()
	if tm.State() != StateShortBreak {
		t.Errorf("state = %s, want short_break", tm.State())
	}
}

func TestSkipCreditsOnce(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.Start()
	clock.Advance(19 * time.Second)
	tm.Skip()
	skipAndLand(t, tm, clock)

	if tm.State() != StateShortBreak {
		t.Fatalf("state = %s, want short_break", tm.State())
	}
	clock.Advance(3 * time.Second)
	tm.RemainingTime()
	if tm.State() != StateWork {
		t.Fatalf("state = %s, want work", tm.State())
	}
	if got := tm.CompletedPomodoros(); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
	if task, _ := tm.CurrentTask(); task.CompletedPomodoros != 1 {
		t.Errorf("task completed = %d, want 1", task.CompletedPomodoros)
	}
}

func TestSkipToBreakCreditsImmediately(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 3))
	tm.Start()

	if !tm.SkipTo(StateLongBreak) {
		t.Fatal("SkipTo returned false")
	}
	if got := tm.CompletedPomodoros(); got != 1 {
		t.Fatalf("completed right after SkipTo = %d, want 1", got)
	}
	skipAndLand(t, tm, clock)

	if tm.State() != StateLongBreak {
		t.Fatalf("state = %s, want long_break", tm.State())
	}
	if got := tm.CompletedPomodoros(); got != 1 {
		t.Errorf("completed after landing = %d, want 1", got)
	}
	if got := mustRemaining(t, tm); got != 10*time.Second {
		t.Errorf("remaining = %v, want 10s", got)
	}
}

func TestSkipToRefusals(t *testing.T) {
	tm, _ := newTestTimer(t, testConfig(), newTestTask(t, "Write", 3))
	tm.Start()

	if tm.SkipTo(StateWork) {
		t.Error("SkipTo current state should fail")
	}
	if tm.SkipTo(StatePaused) {
		t.Error("SkipTo paused should fail")
	}
	tm.Pause()
	if tm.SkipTo(StateWork) {
		t.Error("SkipTo the paused interval's own state should fail")
	}
	if tm.State() != StatePaused {
		t.Errorf("state = %s, want paused", tm.State())
	}
}

func TestSkipToWorkFromBreak(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 3))
	tm.Start()
	clock.Advance(20 * time.Second)
	tm.RemainingTime()

	if !tm.SkipTo(StateWork) {
		t.Fatal("SkipTo work from break failed")
	}
	skipAndLand(t, tm, clock)
	if tm.State() != StateWork {
		t.Fatalf("state = %s, want work", tm.State())
	}
	if got := tm.CompletedPomodoros(); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
}

func TestSkipWhilePausedRepauses(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	ev := watch(tm)
	tm.Start()
	clock.Advance(5 * time.Second)
	tm.Pause()

	if !tm.Skip() {
		t.Fatal("Skip from paused failed")
	}
	skipAndLand(t, tm, clock)

	if tm.State() != StatePaused {
		t.Fatalf("state = %s, want paused", tm.State())
	}
	if got := mustRemaining(t, tm); got != 3*time.Second {
		t.Errorf("remaining = %v, want the full 3s break", got)
	}
	want := []State{StateWork, StatePaused, StateSkipped, StateShortBreak, StatePaused}
	if got := ev.States(); !slices.Equal(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}

	tm.Start()
	if tm.State() != StateShortBreak {
		t.Errorf("state after resume = %s, want short_break", tm.State())
	}
}

func TestStartDuringPausedSkipLetsIntervalRun(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.Start()
	tm.Pause()
	tm.Skip()

	if !tm.Start() {
		t.Fatal("Start during skip display failed")
	}
	skipAndLand(t, tm, clock)
	if tm.State() != StateShortBreak {
		t.Errorf("state = %s, want a running short_break", tm.State())
	}
}

// ============================================================
// Completion and cadence
// ============================================================

func TestExpiryCompletesWork(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.Start()
	clock.Advance(20 * time.Second)

	if got := mustRemaining(t, tm); got != 3*time.Second {
		t.Errorf("remaining = %v, want 3s", got)
	}
	if tm.State() != StateShortBreak {
		t.Errorf("state = %s, want short_break", tm.State())
	}
	if got := tm.CompletedPomodoros(); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
}

func TestLongBreakEveryFourthPomodoro(t *testing.T) {
	cfg := testConfig()
	tm, clock := newTestTimer(t, cfg, newTestTask(t, "Write", 5))
	tm.Start()

	var breaks []State
	for range 4 {
		clock.Advance(cfg.Work)
		tm.RemainingTime()
		s := tm.State()
		breaks = append(breaks, s)
		clock.Advance(cfg.length(s))
		tm.RemainingTime()
		if tm.State() != StateWork {
			t.Fatalf("state after %s = %s, want work", s, tm.State())
		}
	}

	want := []State{StateShortBreak, StateShortBreak, StateShortBreak, StateLongBreak}
	if !slices.Equal(breaks, want) {
		t.Errorf("breaks = %v, want %v", breaks, want)
	}
}

func TestSingleTaskRunEndsIdle(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 1))
	ev := watch(tm)
	tm.Start()

	clock.Advance(20 * time.Second)
	tm.RemainingTime()
	if tm.State() != StateShortBreak {
		t.Fatalf("state = %s, want short_break", tm.State())
	}
	clock.Advance(3 * time.Second)
	if _, ok := tm.RemainingTime(); ok {
		t.Fatal("expected idle after the final break")
	}

	if tm.State() != StateIdle {
		t.Fatalf("state = %s, want idle", tm.State())
	}
	if tm.Start() {
		t.Error("Start with no tasks left should fail")
	}
	if got := tm.CurrentTaskIndex(); got != 1 {
		t.Errorf("current index = %d, want 1", got)
	}
	if got := tm.Tasks()[0].Status; got != TaskCompleted {
		t.Errorf("task status = %s, want completed", got)
	}
	want := []State{StateWork, StateShortBreak, StateIdle}
	if got := ev.States(); !slices.Equal(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestTasksAdvanceInOrder(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "First", 1), newTestTask(t, "Second", 1))
	tm.Start()

	clock.Advance(20 * time.Second)
	tm.RemainingTime()
	if got := tm.CurrentTaskIndex(); got != 1 {
		t.Fatalf("current index = %d, want 1", got)
	}
	clock.Advance(3 * time.Second)
	tm.RemainingTime()

	task, ok := tm.CurrentTask()
	if !ok || task.Title != "Second" || task.Status != TaskInProgress {
		t.Errorf("current task = %+v, want Second in progress", task)
	}
}

func TestAddTaskRevivesFinishedTimer(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 1))
	tm.Start()
	clock.Advance(20 * time.Second)
	tm.RemainingTime()
	clock.Advance(3 * time.Second)
	tm.RemainingTime()

	if err := tm.AddTask(newTestTask(t, "More", 1)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if !tm.Start() {
		t.Fatal("Start after AddTask failed")
	}
	if task, _ := tm.CurrentTask(); task.Title != "More" {
		t.Errorf("current task = %q, want More", task.Title)
	}
}

func TestAddTaskLimit(t *testing.T) {
	tasks := make([]Task, MaxTasks)
	for i := range tasks {
		tasks[i] = newTestTask(t, "Task", 1)
	}
	tm, _ := newTestTimer(t, testConfig(), tasks...)

	if err := tm.AddTask(newTestTask(t, "One too many", 1)); !errors.Is(err, ErrTooManyTasks) {
		t.Fatalf("expected ErrTooManyTasks, got %v", err)
	}
}

func TestResetTasksRequiresIdle(t *testing.T) {
	tm, _ := newTestTimer(t, testConfig(), newTestTask(t, "Write", 1))
	tm.Start()

	err := tm.ResetTasks([]Task{newTestTask(t, "Other", 1)})
	if !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle, got %v", err)
	}
}

func TestResetTasksWhenIdle(t *testing.T) {
	tm, _ := newTestTimer(t, testConfig(), newTestTask(t, "Write", 1))
	if err := tm.ResetTasks([]Task{newTestTask(t, "A", 1), newTestTask(t, "B", 2)}); err != nil {
		t.Fatalf("ResetTasks: %v", err)
	}
	if got := len(tm.Tasks()); got != 2 {
		t.Errorf("tasks = %d, want 2", got)
	}
	if got := tm.CurrentTaskIndex(); got != 0 {
		t.Errorf("current index = %d, want 0", got)
	}
}

// ============================================================
// Check-ins
// ============================================================

func TestCheckInsDuringWorkInterval(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	ev := watch(tm)
	tm.Start()

	for range 200 {
		clock.Advance(100 * time.Millisecond)
		tm.RemainingTime()
	}

	got := ev.CheckIns()
	if len(got) != 6 {
		t.Fatalf("check-ins = %d, want 6", len(got))
	}
	for i, c := range got {
		if c.Index != i+1 {
			t.Errorf("check-in %d index = %d", i, c.Index)
		}
		if want := time.Duration(i+1) * 3 * time.Second; c.Elapsed != want {
			t.Errorf("check-in %d elapsed = %v, want %v", i, c.Elapsed, want)
		}
		if c.Task.Title != "Write" {
			t.Errorf("check-in %d task = %q", i, c.Task.Title)
		}
	}
	if tm.State() != StateShortBreak {
		t.Errorf("state = %s, want short_break", tm.State())
	}
}

func TestCheckInsFreezeWhilePaused(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	ev := watch(tm)
	tm.Start()

	clock.Advance(4 * time.Second)
	tm.RemainingTime()
	tm.Pause()
	clock.Advance(time.Minute)
	tm.RemainingTime()
	if got := len(ev.CheckIns()); got != 1 {
		t.Fatalf("check-ins while paused = %d, want 1", got)
	}

	tm.Start()
	clock.Advance(time.Second)
	tm.RemainingTime()
	if got := len(ev.CheckIns()); got != 1 {
		t.Fatalf("check-ins at 5s = %d, want 1", got)
	}
	clock.Advance(time.Second)
	tm.RemainingTime()
	if got := len(ev.CheckIns()); got != 2 {
		t.Fatalf("check-ins at 6s = %d, want 2", got)
	}
}

func TestSparsePollFiresOneCheckIn(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	ev := watch(tm)
	tm.Start()

	clock.Advance(10 * time.Second)
	tm.RemainingTime()

	got := ev.CheckIns()
	if len(got) != 1 || got[0].Index != 3 {
		t.Fatalf("check-ins = %+v, want one with index 3", got)
	}
	if snap := tm.Snapshot(); snap.CheckIns != 3 {
		t.Errorf("snapshot check-ins = %d, want 3", snap.CheckIns)
	}
}

func TestCheckInCountResetsEachWorkInterval(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	ev := watch(tm)
	tm.Start()

	clock.Advance(4 * time.Second)
	tm.RemainingTime()
	clock.Advance(16 * time.Second)
	tm.RemainingTime()
	clock.Advance(3 * time.Second)
	tm.RemainingTime()

	if tm.State() != StateWork {
		t.Fatalf("state = %s, want work", tm.State())
	}
	if snap := tm.Snapshot(); snap.CheckIns != 0 {
		t.Fatalf("check-ins after new work interval = %d, want 0", snap.CheckIns)
	}
	clock.Advance(3 * time.Second)
	tm.RemainingTime()

	got := ev.CheckIns()
	if len(got) != 2 || got[1].Index != 1 {
		t.Errorf("check-ins = %+v, want a fresh index 1", got)
	}
}

func TestNoCheckInsDuringBreaks(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	ev := watch(tm)
	tm.Start()
	tm.SkipTo(StateLongBreak)
	skipAndLand(t, tm, clock)

	for range 9 {
		clock.Advance(time.Second)
		tm.RemainingTime()
	}
	if got := len(ev.CheckIns()); got != 0 {
		t.Errorf("check-ins during break = %d, want 0", got)
	}
}

// ============================================================
// Callbacks and concurrency
// ============================================================

func TestCallbacksMayCallBackIntoTimer(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	var seen []State
	tm.OnStateChange(func(State) {
		seen = append(seen, tm.Snapshot().State)
	})
	tm.OnCheckIn(func(CheckIn) {
		tm.Pause()
	})

	tm.Start()
	clock.Advance(3 * time.Second)
	tm.RemainingTime()

	if tm.State() != StatePaused {
		t.Fatalf("state = %s, want paused by the check-in callback", tm.State())
	}
	if want := []State{StateWork, StatePaused}; !slices.Equal(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestCallbackPanicIsRecovered(t *testing.T) {
	tm, _ := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.OnStateChange(func(State) { panic("boom") })
	ev := watch(tm)

	if !tm.Start() {
		t.Fatal("Start failed")
	}
	if got := ev.States(); !slices.Equal(got, []State{StateWork}) {
		t.Errorf("states = %v, want [work]", got)
	}
	if tm.State() != StateWork {
		t.Errorf("state = %s, want work", tm.State())
	}
}

// faultHandler panics once on the next "interval started" record after it
// is armed, standing in for a fault in the middle of a transition.
type faultHandler struct {
	armed *atomic.Bool
}

func (h faultHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h faultHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "interval started" && h.armed.CompareAndSwap(true, false) {
		panic("transition fault")
	}
	return nil
}

func (h faultHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h faultHandler) WithGroup(string) slog.Handler      { return h }

func newFaultyTimer(t *testing.T) (*Timer, *ManualClock, *atomic.Bool) {
	t.Helper()
	armed := &atomic.Bool{}
	clock := NewManualClock(epoch)
	tm, err := New(testConfig(), []Task{newTestTask(t, "Write", 2)},
		WithClock(clock), WithLogger(slog.New(faultHandler{armed: armed})))
	if err != nil {
		t.Fatalf("new timer: %v", err)
	}
	return tm, clock, armed
}

func assertIdleAfterFault(t *testing.T, tm *Timer) {
	t.Helper()
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.state != StateIdle {
		t.Fatalf("state = %s, want idle", tm.state)
	}
	if !tm.start.IsZero() || !tm.end.IsZero() {
		t.Errorf("interval bounds not cleared: %v..%v", tm.start, tm.end)
	}
	if tm.prePause != StateIdle || tm.pausedRemaining != 0 {
		t.Errorf("pause shadow not cleared: %s %v", tm.prePause, tm.pausedRemaining)
	}
	if tm.preSkip != StateIdle || tm.skippedRemaining != 0 || tm.skipShown || tm.skipFromPause || tm.hasTarget || tm.credited {
		t.Errorf("skip shadow not cleared")
	}
}

func TestFaultDuringCompletionFallsBackToIdle(t *testing.T) {
	tm, clock, armed := newFaultyTimer(t)
	ev := watch(tm)
	tm.Start()

	clock.Advance(20 * time.Second)
	armed.Store(true)
	if _, ok := tm.RemainingTime(); ok {
		t.Fatal("RemainingTime should report idle after the fault")
	}
	assertIdleAfterFault(t, tm)
	if got := ev.States(); !slices.Equal(got, []State{StateWork, StateIdle}) {
		t.Errorf("states = %v, want [work idle]", got)
	}

	// The pomodoro was credited before the fault and the timer stays usable.
	if got := tm.CompletedPomodoros(); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
	if !tm.Start() || tm.State() != StateWork {
		t.Errorf("Start after fault: state = %s, want work", tm.State())
	}
}

func TestFaultDuringSkipFallsBackToIdle(t *testing.T) {
	tm, clock, armed := newFaultyTimer(t)
	tm.Start()
	tm.Pause()
	tm.Skip()

	tm.RemainingTime()
	clock.Advance(tm.Config().SkipDisplay)
	armed.Store(true)
	tm.RemainingTime()

	assertIdleAfterFault(t, tm)
}

func TestSnapshotHasNoSideEffects(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.Start()
	clock.Advance(25 * time.Second)

	snap := tm.Snapshot()
	if snap.State != StateWork || snap.Remaining != 0 {
		t.Fatalf("snapshot = %s/%v, want work/0", snap.State, snap.Remaining)
	}
	if snap.Length != 20*time.Second {
		t.Errorf("length = %v, want 20s", snap.Length)
	}
	tm.RemainingTime()
	if tm.State() != StateShortBreak {
		t.Errorf("state = %s, want short_break", tm.State())
	}
}

func TestSnapshotUnderlyingState(t *testing.T) {
	tm, _ := newTestTimer(t, testConfig(), newTestTask(t, "Write", 2))
	tm.Start()
	tm.Pause()

	snap := tm.Snapshot()
	if snap.State != StatePaused || snap.Underlying != StateWork {
		t.Errorf("snapshot = %s/%s, want paused/work", snap.State, snap.Underlying)
	}
	if task, ok := snap.CurrentTask(); !ok || task.Title != "Write" {
		t.Errorf("snapshot task = %+v", task)
	}
}

func TestConcurrentUse(t *testing.T) {
	tm, clock := newTestTimer(t, testConfig(), newTestTask(t, "Write", 50))
	watch(tm)
	tm.Start()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 200 {
				clock.Advance(50 * time.Millisecond)
				switch (i + j) % 5 {
				case 0:
					tm.Pause()
				case 1:
					tm.Start()
				case 2:
					tm.Snapshot()
				default:
					tm.RemainingTime()
				}
			}
		}()
	}
	wg.Wait()

	if got := tm.CompletedPomodoros(); got < 0 {
		t.Errorf("completed = %d", got)
	}
}

// ============================================================
// Driver
// ============================================================

func TestDriveRunsToIdle(t *testing.T) {
	cfg := Config{
		Work:                 30 * time.Millisecond,
		ShortBreak:           20 * time.Millisecond,
		LongBreak:            20 * time.Millisecond,
		PomosBeforeLongBreak: 4,
		CheckInInterval:      10 * time.Millisecond,
		SkipDisplay:          5 * time.Millisecond,
	}
	tm, err := New(cfg, []Task{newTestTask(t, "Quick", 1)})
	if err != nil {
		t.Fatal(err)
	}
	tm.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var polls int
	if err := Drive(ctx, tm, 2*time.Millisecond, func(State, time.Duration) { polls++ }); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if tm.State() != StateIdle {
		t.Errorf("state = %s, want idle", tm.State())
	}
	if polls == 0 {
		t.Error("callback never ran")
	}
}

func TestDriveStopsOnCancel(t *testing.T) {
	tm, _ := newTestTimer(t, testConfig(), newTestTask(t, "Write", 1))
	tm.Start()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Drive(ctx, tm, time.Millisecond, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
