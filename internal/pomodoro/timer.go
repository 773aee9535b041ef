// Package pomodoro implements the work/break timer that drives focusassist.
//
// A Timer owns no goroutine. Time only moves forward when a driver polls
// RemainingTime: interval expiry, deferred skips and check-ins are all
// detected and applied during that call. All state lives behind a single
// mutex and callbacks are dispatched after it is released, so observers may
// call back into the timer.
package pomodoro

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// maxResolveSteps bounds the transitions a single poll may apply.
const maxResolveSteps = 4

// CheckIn is passed to check-in callbacks when a snapshot becomes due.
type CheckIn struct {
	// Index is the number of check-ins due so far in the current work interval.
	Index int
	// Elapsed is the displayed elapsed time of the work interval.
	Elapsed time.Duration
	Task    Task
	At      time.Time
}

// Snapshot is a consistent read of the timer taken under its lock.
type Snapshot struct {
	State State
	// Underlying is the interval a paused or skipped timer was in; for other
	// states it equals State.
	Underlying         State
	Remaining          time.Duration
	Length             time.Duration
	Tasks              []Task
	CurrentTaskIndex   int
	CompletedPomodoros int
	CheckIns           int
}

// CurrentTask returns the task the timer is working on, if any remain.
func (s Snapshot) CurrentTask() (Task, bool) {
	if s.CurrentTaskIndex < len(s.Tasks) {
		return s.Tasks[s.CurrentTaskIndex], true
	}
	return Task{}, false
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(t *Timer) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogger sets the logger used for refused operations and transitions.
func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) {
		if l != nil {
			t.logger = l
		}
	}
}

type notification struct {
	state   State
	checkIn *CheckIn
}

// Timer is the pomodoro state machine.
type Timer struct {
	mu     sync.Mutex
	config Config
	clock  Clock
	logger *slog.Logger

	tasks     []Task
	current   int
	completed int

	state State
	start time.Time
	end   time.Time

	prePause        State
	pausedRemaining time.Duration

	preSkip          State
	skippedRemaining time.Duration
	skipShown        bool
	skipFromPause    bool
	target           State
	hasTarget        bool
	credited         bool

	checkIns int

	stateCallbacks   []func(State)
	checkInCallbacks []func(CheckIn)
	pending          []notification
}

// New validates cfg and tasks and returns an idle timer.
func New(cfg Config, tasks []Task, opts ...Option) (*Timer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timer config: %w", err)
	}
	list, err := validateTasks(tasks)
	if err != nil {
		return nil, err
	}

	t := &Timer{
		config: cfg,
		clock:  systemClock{},
		logger: slog.New(slog.DiscardHandler),
		tasks:  list,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.advancePastDoneLocked()
	return t, nil
}

func validateTasks(tasks []Task) ([]Task, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	if len(tasks) > MaxTasks {
		return nil, fmt.Errorf("%w: %d exceeds the limit of %d", ErrTooManyTasks, len(tasks), MaxTasks)
	}
	list := make([]Task, len(tasks))
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		list[i] = normalizeTask(task)
	}
	return list, nil
}

func normalizeTask(task Task) Task {
	switch {
	case task.Done():
		task.Status = TaskCompleted
	case task.Status == "", task.Status == TaskCompleted:
		task.Status = TaskNotStarted
	}
	return task
}

// OnStateChange registers fn to be called after every committed transition.
func (t *Timer) OnStateChange(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stateCallbacks = append(t.stateCallbacks, fn)
}

// OnCheckIn registers fn to be called when a check-in becomes due.
// fn must not block; hand slow work to another goroutine.
func (t *Timer) OnCheckIn(fn func(CheckIn)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkInCallbacks = append(t.checkInCallbacks, fn)
}

// Start begins the next work interval from idle or resumes a paused one.
// It is a successful no-op while an interval is already running. During the
// skip display it succeeds without changing state, but a skip taken while
// paused then lands running instead of paused.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.unlockAndDispatch()

	now := t.clock.Now()
	switch t.state {
	case StateIdle:
		if t.current >= len(t.tasks) {
			t.logger.Debug("start refused", "reason", "no tasks remaining")
			return false
		}
		t.enterLocked(StateWork, now)
		return true
	case StatePaused:
		t.resumeLocked(now)
		return true
	case StateWork, StateShortBreak, StateLongBreak:
		return true
	case StateSkipped:
		t.skipFromPause = false
		return true
	}
	return false
}

// Pause freezes the running interval.
func (t *Timer) Pause() bool {
	t.mu.Lock()
	defer t.unlockAndDispatch()

	if !t.state.Active() {
		t.logger.Debug("pause refused", "state", t.state.String())
		return false
	}
	t.pauseLocked(t.clock.Now())
	return true
}

// Skip abandons the current interval. The timer shows Skipped for
// Config.SkipDisplay and then lands where the interval would have led.
func (t *Timer) Skip() bool {
	t.mu.Lock()
	defer t.unlockAndDispatch()
	return t.beginSkipLocked(t.clock.Now(), StateIdle, false)
}

// SkipTo abandons the current interval and lands in target after the skip
// display. Skipping from work to a break credits the pomodoro immediately.
func (t *Timer) SkipTo(target State) bool {
	t.mu.Lock()
	defer t.unlockAndDispatch()

	if !target.Active() {
		t.logger.Debug("skip refused", "reason", "invalid target", "target", target.String())
		return false
	}
	if t.effectiveStateLocked() == target {
		t.logger.Debug("skip refused", "reason", "already in target", "target", target.String())
		return false
	}
	return t.beginSkipLocked(t.clock.Now(), target, true)
}

// RemainingTime returns the time left in the current interval, or false when
// idle. Polling it applies any expiry, pending skip and due check-in.
func (t *Timer) RemainingTime() (time.Duration, bool) {
	t.mu.Lock()
	defer t.unlockAndDispatch()
	return t.remainingLocked(t.clock.Now())
}

// AddTask appends a task to the queue.
func (t *Timer) AddTask(task Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.tasks) >= MaxTasks {
		return fmt.Errorf("add task: %w", ErrTooManyTasks)
	}
	t.tasks = append(t.tasks, normalizeTask(task))
	t.advancePastDoneLocked()
	return nil
}

// ResetTasks replaces the queue of an idle timer.
func (t *Timer) ResetTasks(tasks []Task) error {
	list, err := validateTasks(tasks)
	if err != nil {
		return fmt.Errorf("reset tasks: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return fmt.Errorf("reset tasks: %w", ErrNotIdle)
	}
	t.tasks = list
	t.current = 0
	t.advancePastDoneLocked()
	return nil
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Tasks returns a copy of the task queue.
func (t *Timer) Tasks() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Task(nil), t.tasks...)
}

// CurrentTask returns the task being worked on, if any remain.
func (t *Timer) CurrentTask() (Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current < len(t.tasks) {
		return t.tasks[t.current], true
	}
	return Task{}, false
}

// CurrentTaskIndex returns the queue position; len(Tasks()) means all done.
func (t *Timer) CurrentTaskIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// CompletedPomodoros returns the pomodoros completed across all tasks.
func (t *Timer) CompletedPomodoros() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Config returns the timer's configuration.
func (t *Timer) Config() Config {
	return t.config
}

// Snapshot reads the whole timer without applying pending transitions.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	underlying := t.state
	switch t.state {
	case StatePaused:
		underlying = t.prePause
	case StateSkipped:
		underlying = t.preSkip
	}
	return Snapshot{
		State:              t.state,
		Underlying:         underlying,
		Remaining:          t.peekRemainingLocked(t.clock.Now()),
		Length:             t.config.length(underlying),
		Tasks:              append([]Task(nil), t.tasks...),
		CurrentTaskIndex:   t.current,
		CompletedPomodoros: t.completed,
		CheckIns:           t.checkIns,
	}
}

func (t *Timer) remainingLocked(now time.Time) (time.Duration, bool) {
	for range maxResolveSteps {
		switch t.state {
		case StateIdle:
			return 0, false
		case StatePaused:
			return t.pausedRemaining, true
		case StateSkipped:
			if t.skipShown && !now.Before(t.end) {
				t.resolveSkipLocked(now)
				continue
			}
			t.skipShown = true
			return nonNegative(t.end.Sub(now)), true
		case StateWork, StateShortBreak, StateLongBreak:
			if !now.Before(t.end) {
				t.completeLocked(t.state, now)
				continue
			}
			remaining := t.end.Sub(now)
			if t.state == StateWork {
				t.checkInLocked(remaining, now)
			}
			return remaining, true
		}
	}
	return t.peekRemainingLocked(now), t.state != StateIdle
}

func (t *Timer) peekRemainingLocked(now time.Time) time.Duration {
	switch t.state {
	case StateIdle:
		return 0
	case StatePaused:
		return t.pausedRemaining
	}
	return nonNegative(t.end.Sub(now))
}

func (t *Timer) checkInLocked(remaining time.Duration, now time.Time) {
	elapsed := nonNegative(t.config.Work - remaining)
	due := int(elapsed / t.config.CheckInInterval)
	if due <= t.checkIns {
		return
	}
	t.checkIns = due
	ci := CheckIn{Index: due, Elapsed: elapsed, At: now}
	if t.current < len(t.tasks) {
		ci.Task = t.tasks[t.current]
	}
	t.logger.Debug("check-in due", "index", due, "elapsed", elapsed)
	t.pending = append(t.pending, notification{checkIn: &ci})
}

func (t *Timer) enterLocked(s State, now time.Time) {
	t.state = s
	t.start = now
	t.end = now.Add(t.config.length(s))
	if s == StateWork {
		t.checkIns = 0
		t.markCurrentLocked(TaskInProgress)
	}
	t.logger.Info("interval started", "state", s.String(), "length", t.config.length(s), "completed", t.completed)
	t.notifyLocked(s)
}

func (t *Timer) enterIdleLocked() {
	t.state = StateIdle
	t.start = time.Time{}
	t.end = time.Time{}
	t.clearPauseLocked()
	t.clearSkipLocked()
	t.logger.Info("timer idle", "completed", t.completed, "tasks_left", len(t.tasks)-t.current)
	t.notifyLocked(StateIdle)
}

func (t *Timer) pauseLocked(now time.Time) {
	t.prePause = t.state
	t.pausedRemaining = nonNegative(t.end.Sub(now))
	t.state = StatePaused
	if t.prePause == StateWork {
		t.markCurrentLocked(TaskPaused)
	}
	t.notifyLocked(StatePaused)
}

func (t *Timer) resumeLocked(now time.Time) {
	s := t.prePause
	t.state = s
	t.end = now.Add(t.pausedRemaining)
	t.start = t.end.Add(-t.config.length(s))
	t.clearPauseLocked()
	if s == StateWork {
		t.markCurrentLocked(TaskInProgress)
	}
	t.notifyLocked(s)
}

func (t *Timer) beginSkipLocked(now time.Time, target State, hasTarget bool) bool {
	switch t.state {
	case StateWork, StateShortBreak, StateLongBreak:
		t.preSkip = t.state
		t.skippedRemaining = nonNegative(t.end.Sub(now))
		t.skipFromPause = false
	case StatePaused:
		t.preSkip = t.prePause
		t.skippedRemaining = t.pausedRemaining
		t.skipFromPause = true
		t.clearPauseLocked()
	default:
		t.logger.Debug("skip refused", "state", t.state.String())
		return false
	}

	t.target, t.hasTarget = target, hasTarget
	t.credited = false
	if hasTarget && t.preSkip == StateWork && target.IsBreak() {
		t.creditPomodoroLocked()
		t.credited = true
	}

	t.state = StateSkipped
	t.skipShown = false
	t.start = now
	t.end = now.Add(t.config.SkipDisplay)
	t.logger.Info("interval skipped", "from", t.preSkip.String(), "remaining", t.skippedRemaining, "target", target.String())
	t.notifyLocked(StateSkipped)
	return true
}

func (t *Timer) resolveSkipLocked(now time.Time) {
	defer t.recoverLocked("resolve skip")

	from, target, hasTarget := t.preSkip, t.target, t.hasTarget
	credited, repause := t.credited, t.skipFromPause
	t.clearSkipLocked()

	switch {
	case !hasTarget:
		t.completeLocked(from, now)
	case target == StateWork:
		t.finishBreakLocked(now)
	default:
		if from == StateWork && !credited {
			t.creditPomodoroLocked()
		}
		t.enterLocked(target, now)
	}

	if repause && t.state.Active() {
		t.pauseLocked(now)
	}
}

func (t *Timer) completeLocked(finished State, now time.Time) {
	defer t.recoverLocked("complete interval")

	switch finished {
	case StateWork:
		t.creditPomodoroLocked()
		next := StateShortBreak
		if t.completed%t.config.PomosBeforeLongBreak == 0 {
			next = StateLongBreak
		}
		t.enterLocked(next, now)
	case StateShortBreak, StateLongBreak:
		t.finishBreakLocked(now)
	default:
		t.enterIdleLocked()
	}
}

func (t *Timer) finishBreakLocked(now time.Time) {
	t.advancePastDoneLocked()
	if t.current < len(t.tasks) {
		t.enterLocked(StateWork, now)
		return
	}
	t.enterIdleLocked()
}

func (t *Timer) creditPomodoroLocked() {
	t.completed++
	if t.current >= len(t.tasks) {
		return
	}
	task := &t.tasks[t.current]
	task.CompletedPomodoros++
	if task.Done() {
		task.Status = TaskCompleted
		t.current++
		t.logger.Info("task completed", "task", task.Title, "pomodoros", task.CompletedPomodoros)
	}
}

func (t *Timer) advancePastDoneLocked() {
	for t.current < len(t.tasks) && t.tasks[t.current].Done() {
		t.tasks[t.current].Status = TaskCompleted
		t.current++
	}
}

func (t *Timer) markCurrentLocked(status TaskStatus) {
	if t.current < len(t.tasks) && t.tasks[t.current].Status != TaskCompleted {
		t.tasks[t.current].Status = status
	}
}

func (t *Timer) effectiveStateLocked() State {
	if t.state == StatePaused {
		return t.prePause
	}
	return t.state
}

func (t *Timer) clearPauseLocked() {
	t.prePause = StateIdle
	t.pausedRemaining = 0
}

func (t *Timer) clearSkipLocked() {
	t.preSkip = StateIdle
	t.skippedRemaining = 0
	t.skipShown = false
	t.skipFromPause = false
	t.target = StateIdle
	t.hasTarget = false
	t.credited = false
}

// recoverLocked turns a panic during a transition into a fall back to idle.
func (t *Timer) recoverLocked(op string) {
	if r := recover(); r != nil {
		t.logger.Error("timer transition failed, falling back to idle",
			"op", op, "panic", r, "stack", string(debug.Stack()))
		t.enterIdleLocked()
	}
}

func (t *Timer) notifyLocked(s State) {
	t.pending = append(t.pending, notification{state: s})
}

// unlockAndDispatch releases the lock and then delivers the notifications
// queued while it was held.
func (t *Timer) unlockAndDispatch() {
	pending := t.pending
	t.pending = nil
	var stateFns []func(State)
	var checkInFns []func(CheckIn)
	if len(pending) > 0 {
		stateFns = append(stateFns, t.stateCallbacks...)
		checkInFns = append(checkInFns, t.checkInCallbacks...)
	}
	t.mu.Unlock()

	for _, n := range pending {
		if n.checkIn != nil {
			for _, fn := range checkInFns {
				t.safeCall("check-in", func() { fn(*n.checkIn) })
			}
			continue
		}
		for _, fn := range stateFns {
			t.safeCall("state change", func() { fn(n.state) })
		}
	}
}

func (t *Timer) safeCall(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("timer callback panicked", "callback", kind, "panic", r)
		}
	}()
	fn()
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
