package sessionlog

import (
	"slices"
	"testing"
	"time"

	"github.com/sadopc/focusassist/internal/focus"
	"github.com/sadopc/focusassist/internal/pomodoro"
	"github.com/sadopc/focusassist/internal/store"
)

func testConfig() pomodoro.Config {
	return pomodoro.Config{
		Work:                 20 * time.Second,
		ShortBreak:           3 * time.Second,
		LongBreak:            10 * time.Second,
		PomosBeforeLongBreak: 4,
		CheckInInterval:      3 * time.Second,
		SkipDisplay:          500 * time.Millisecond,
	}
}

type fixture struct {
	store   *store.Store
	timer   *pomodoro.Timer
	clock   *pomodoro.ManualClock
	rec     *Recorder
	session int64
	task    pomodoro.Task
}

func newFixture(t *testing.T, estimated int) *fixture {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	task, err := pomodoro.NewTask("Write report", "", estimated)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateTask(task); err != nil {
		t.Fatal(err)
	}
	clock := pomodoro.NewManualClock(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC))
	tm, err := pomodoro.New(testConfig(), []pomodoro.Task{task}, pomodoro.WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	sess, err := st.StartSession(tm.Config())
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(st, sess.ID, tm, WithClock(clock))
	return &fixture{store: st, timer: tm, clock: clock, rec: rec, session: sess.ID, task: task}
}

func (f *fixture) events(t *testing.T) []store.SessionEvent {
	t.Helper()
	events, err := f.store.ListEvents(f.session)
	if err != nil {
		t.Fatal(err)
	}
	return events
}

func types(events []store.SessionEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func focusedResult(category string) focus.Result {
	return focus.Result{
		CheckIn:  pomodoro.CheckIn{Index: 1},
		Snapshot: focus.Snapshot{Level: focus.LevelFocused, Category: category, Rating: focus.RatingHigh, Productive: true, Confidence: 0.8},
	}
}

// ============================================================
// Recorder
// ============================================================

func TestRecorderFullRun(t *testing.T) {
	f := newFixture(t, 1)
	f.rec.Start()
	f.timer.Start()

	f.clock.Advance(4 * time.Second)
	f.timer.RemainingTime()
	f.rec.RecordSnapshot(focusedResult("WORK"))

	f.clock.Advance(16 * time.Second)
	f.timer.RemainingTime()
	f.clock.Advance(3 * time.Second)
	f.timer.RemainingTime()

	events := f.events(t)
	want := []string{TimerStart, PomStart, AISnap, PomEnd, BreakStart, BreakEnd}
	if got := types(events); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	if events[0].Data["pomodoro_length"] != float64(20) {
		t.Errorf("TIMER_START data = %v", events[0].Data)
	}
	if events[1].Data["task_title"] != "Write report" || events[1].Data["curr_pomodoro"] != float64(1) {
		t.Errorf("POM_START data = %v", events[1].Data)
	}
	if events[2].RelativeMs != 4000 || events[2].Data["category"] != "WORK" {
		t.Errorf("AI_SNAP = %+v", events[2])
	}
	if events[3].RelativeMs != 20000 {
		t.Errorf("POM_END relative = %d, want 20000", events[3].RelativeMs)
	}
	if events[4].RelativeMs != 0 || events[5].RelativeMs != 3000 {
		t.Errorf("break relative times = %d, %d", events[4].RelativeMs, events[5].RelativeMs)
	}

	sess, _ := f.store.GetSession(f.session)
	if sess.Status != store.SessionCompleted || sess.CompletedCount != 1 {
		t.Errorf("session = %+v, want completed with 1 pomodoro", sess)
	}
	task, _ := f.store.GetTask(f.task.ID)
	if task.Status != pomodoro.TaskCompleted || task.CompletedPomodoros != 1 {
		t.Errorf("stored task = %+v, want completed", task)
	}
}

func TestRecorderPauseKeepsBaseline(t *testing.T) {
	f := newFixture(t, 2)
	f.rec.Start()
	f.timer.Start()

	f.clock.Advance(5 * time.Second)
	f.timer.Pause()
	f.clock.Advance(10 * time.Second)
	f.timer.Start()
	f.clock.Advance(15 * time.Second)
	f.timer.RemainingTime()

	events := f.events(t)
	want := []string{TimerStart, PomStart, PomEnd, BreakStart}
	if got := types(events); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if events[2].RelativeMs != 30000 {
		t.Errorf("POM_END relative = %d, want 30000", events[2].RelativeMs)
	}
}

func TestRecorderLongBreak(t *testing.T) {
	f := newFixture(t, 2)
	f.rec.Start()
	f.timer.Start()
	f.timer.SkipTo(pomodoro.StateLongBreak)
	f.timer.RemainingTime()
	f.clock.Advance(time.Second)
	f.timer.RemainingTime()

	got := types(f.events(t))
	want := []string{TimerStart, PomStart, PomEnd, LongBreakStart}
	if !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	sess, _ := f.store.GetSession(f.session)
	if sess.CompletedCount != 1 {
		t.Errorf("completed count = %d, want 1", sess.CompletedCount)
	}
}

func TestRecorderCloseCancels(t *testing.T) {
	f := newFixture(t, 2)
	f.rec.Start()
	f.timer.Start()

	if err := f.rec.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.rec.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	sess, _ := f.store.GetSession(f.session)
	if sess.Status != store.SessionCancelled {
		t.Errorf("status = %s, want cancelled", sess.Status)
	}

	f.rec.RecordSnapshot(focusedResult("WORK"))
	f.clock.Advance(20 * time.Second)
	f.timer.RemainingTime()
	if got := len(f.events(t)); got != 2 {
		t.Errorf("events after close = %d, want 2", got)
	}
}

func TestRecorderSkipsFailedSnapshots(t *testing.T) {
	f := newFixture(t, 1)
	f.rec.Start()
	f.timer.Start()
	f.rec.RecordSnapshot(focus.Result{Snapshot: focus.Snapshot{Level: focus.LevelUnknown}})

	if got := types(f.events(t)); slices.Contains(got, AISnap) {
		t.Errorf("unknown snapshot recorded: %v", got)
	}
}

// ============================================================
// Stats
// ============================================================

func snap(category, focus string, productive bool) store.SessionEvent {
	return store.SessionEvent{Type: AISnap, Data: map[string]any{"category": category, "focus": focus, "productive": productive}}
}

func pomStart(task string) store.SessionEvent {
	return store.SessionEvent{Type: PomStart, Data: map[string]any{"task_title": task}}
}

func TestStatsBlocks(t *testing.T) {
	events := []store.SessionEvent{
		{Type: TimerStart},
		pomStart("Write"),
		snap("WORK", "high", true),
		snap("SOCIAL", "low", false),
		snap("WORK", "medium", true),
		{Type: PomEnd},
		{Type: BreakStart},
		{Type: BreakEnd},
		pomStart("Review"),
		{Type: PomEnd},
		pomStart("Email"),
		snap("EMAIL", "low", false),
	}

	blocks := Stats(events)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %+v", len(blocks), blocks)
	}

	first := blocks[0]
	if first.Pomodoro != 1 || first.Task != "Write" || first.Snapshots != 3 {
		t.Errorf("first block = %+v", first)
	}
	if first.Category != "WORK" || first.AvgFocus != "medium" {
		t.Errorf("first block category/focus = %q/%q", first.Category, first.AvgFocus)
	}
	if first.PercentProductive < 66.6 || first.PercentProductive > 66.7 {
		t.Errorf("first block productive = %v", first.PercentProductive)
	}

	second := blocks[1]
	if second.Pomodoro != 3 || second.Task != "Email" || second.AvgFocus != "low" || second.PercentProductive != 0 {
		t.Errorf("second block = %+v", second)
	}
}

func TestStatsCategoryTieGoesToFirstSeen(t *testing.T) {
	blocks := Stats([]store.SessionEvent{
		pomStart("A"),
		snap("DOCS", "high", true),
		snap("CODE", "high", true),
		snap("CODE", "high", true),
		snap("DOCS", "high", true),
	})
	if len(blocks) != 1 || blocks[0].Category != "DOCS" {
		t.Fatalf("blocks = %+v, want DOCS", blocks)
	}
}

func TestStatsFocusRoundsHalfToEven(t *testing.T) {
	// low + medium averages 1.5, which rounds to 2 (medium).
	blocks := Stats([]store.SessionEvent{pomStart("A"), snap("X", "low", false), snap("X", "medium", false)})
	if blocks[0].AvgFocus != "medium" {
		t.Errorf("avg focus = %q, want medium", blocks[0].AvgFocus)
	}
	// medium + high averages 2.5, which rounds to 2 (medium).
	blocks = Stats([]store.SessionEvent{pomStart("A"), snap("X", "medium", false), snap("X", "high", false)})
	if blocks[0].AvgFocus != "medium" {
		t.Errorf("avg focus = %q, want medium", blocks[0].AvgFocus)
	}
}

func TestStatsEmpty(t *testing.T) {
	if blocks := Stats(nil); blocks != nil {
		t.Errorf("expected no blocks, got %+v", blocks)
	}
}
