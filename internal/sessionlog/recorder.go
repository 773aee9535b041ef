// Package sessionlog records a timer run as a sequence of session events and
// summarises the focus snapshots taken during it.
package sessionlog

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/focusassist/internal/focus"
	"github.com/sadopc/focusassist/internal/logging"
	"github.com/sadopc/focusassist/internal/pomodoro"
)

// Event types written to the session log.
const (
	TimerStart     = "TIMER_START"
	PomStart       = "POM_START"
	PomEnd         = "POM_END"
	BreakStart     = "BREAK_START"
	BreakEnd       = "BREAK_END"
	LongBreakStart = "LONG_BREAK_START"
	LongBreakEnd   = "LONG_BREAK_END"
	AISnap         = "AI_SNAP"
)

// Sink persists events and session progress. *store.Store implements it.
type Sink interface {
	InsertEvent(sessionID int64, eventType string, relativeMs int64, data map[string]any) (int64, error)
	IncrementSession(id int64) error
	CompleteSession(id int64) error
	CancelSession(id int64) error
	UpdateTaskProgress(task pomodoro.Task) error
}

// Option configures a Recorder.
type Option func(*Recorder)

func WithClock(c pomodoro.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Recorder follows one timer through one stored session. Event timestamps
// are milliseconds since the start of the current interval; pausing and
// skipping do not move that baseline.
type Recorder struct {
	mu        sync.Mutex
	sink      Sink
	sessionID int64
	timer     *pomodoro.Timer
	clock     pomodoro.Clock
	logger    *slog.Logger

	baseline  time.Time
	last      pomodoro.State
	pomodoros int
	credited  int
	finished  bool
}

// NewRecorder subscribes to t's state changes. Call Start before starting
// the timer so TIMER_START leads the log.
func NewRecorder(sink Sink, sessionID int64, t *pomodoro.Timer, opts ...Option) *Recorder {
	r := &Recorder{
		sink:      sink,
		sessionID: sessionID,
		timer:     t,
		clock:     wallClock{},
		logger:    logging.Discard(),
		credited:  t.CompletedPomodoros(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.baseline = r.clock.Now()
	r.logger = r.logger.With("session", sessionID)
	t.OnStateChange(r.handleState)
	return r
}

// SessionID returns the stored session this recorder writes to.
func (r *Recorder) SessionID() int64 {
	return r.sessionID
}

// Start writes TIMER_START with the interval lengths in seconds.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.timer.Config()
	r.baseline = r.clock.Now()
	r.insertLocked(TimerStart, map[string]any{
		"pomodoro_length":   int(cfg.Work.Seconds()),
		"break_length":      int(cfg.ShortBreak.Seconds()),
		"long_break_length": int(cfg.LongBreak.Seconds()),
	})
}

// RecordSnapshot writes an AI_SNAP for a successful focus analysis.
func (r *Recorder) RecordSnapshot(res focus.Result) {
	if res.Err != nil || res.Snapshot.Level == focus.LevelUnknown {
		r.logger.Debug("focus result not recorded", "index", res.CheckIn.Index, "error", res.Err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}

	s := res.Snapshot
	r.insertLocked(AISnap, map[string]any{
		"category":   s.Category,
		"focus":      s.Rating,
		"productive": s.Productive,
		"level":      string(s.Level),
		"confidence": s.Confidence,
		"checkin":    res.CheckIn.Index,
	})
}

// Close cancels the session if the timer never reached idle.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return nil
	}
	r.finished = true
	r.syncProgressLocked()
	return r.sink.CancelSession(r.sessionID)
}

func (r *Recorder) handleState(s pomodoro.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}

	switch {
	case s.Active():
		if s == r.last {
			// resumed from a pause
			return
		}
		r.endIntervalLocked()
		r.baseline = r.clock.Now()
		r.last = s
		switch s {
		case pomodoro.StateWork:
			r.pomodoros++
			data := map[string]any{"curr_pomodoro": r.pomodoros}
			if task, ok := r.timer.CurrentTask(); ok {
				data["task_title"] = task.Title
			}
			r.insertLocked(PomStart, data)
		case pomodoro.StateShortBreak:
			r.insertLocked(BreakStart, nil)
		case pomodoro.StateLongBreak:
			r.insertLocked(LongBreakStart, nil)
		}
	case s == pomodoro.StateIdle:
		r.endIntervalLocked()
		r.last = s
		r.finished = true
		if err := r.sink.CompleteSession(r.sessionID); err != nil {
			r.logger.Error("complete session failed", "error", err)
		}
	}
}

// endIntervalLocked closes the interval recorded last and syncs progress.
func (r *Recorder) endIntervalLocked() {
	switch r.last {
	case pomodoro.StateWork:
		r.insertLocked(PomEnd, nil)
	case pomodoro.StateShortBreak:
		r.insertLocked(BreakEnd, nil)
	case pomodoro.StateLongBreak:
		r.insertLocked(LongBreakEnd, nil)
	default:
		return
	}
	r.syncProgressLocked()
}

func (r *Recorder) syncProgressLocked() {
	for done := r.timer.CompletedPomodoros(); r.credited < done; r.credited++ {
		if err := r.sink.IncrementSession(r.sessionID); err != nil {
			r.logger.Error("increment session failed", "error", err)
		}
	}
	for _, task := range r.timer.Tasks() {
		if err := r.sink.UpdateTaskProgress(task); err != nil {
			r.logger.Error("save task progress failed", "task", task.ID, "error", err)
		}
	}
}

func (r *Recorder) insertLocked(eventType string, data map[string]any) {
	rel := r.clock.Now().Sub(r.baseline).Milliseconds()
	if rel < 0 {
		rel = 0
	}
	if _, err := r.sink.InsertEvent(r.sessionID, eventType, rel, data); err != nil {
		r.logger.Error("record event failed", "event", eventType, "error", err)
		return
	}
	r.logger.Debug("event recorded", "event", eventType, "relative_ms", rel)
}
