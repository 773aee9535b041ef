package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/focusassist/internal/focus"
	"github.com/sadopc/focusassist/internal/logging"
	"github.com/sadopc/focusassist/internal/pomodoro"
	"github.com/sadopc/focusassist/internal/sessionlog"
	"github.com/sadopc/focusassist/internal/store"
)

// eventBuffer bounds callback messages waiting for the UI loop.
const eventBuffer = 64

var errNoOpenTasks = errors.New("no open tasks, add some on the Tasks tab")

// session is one timer run: the timer, its recorder and the focus pipeline.
// The UI holds it by pointer so value copies of the models share it.
type session struct {
	timer      *pomodoro.Timer
	recorder   *sessionlog.Recorder
	dispatcher *focus.Dispatcher
	events     chan tea.Msg
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// startSession loads the open tasks and timer settings, records a new stored
// session and starts the timer.
func startSession(st *store.Store, opts Options) (*session, error) {
	tasks, err := st.OpenTasks(pomodoro.MaxTasks)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, errNoOpenTasks
	}

	cfg := pomodoro.DemoConfig()
	if !opts.Demo {
		if cfg, err = st.TimerSettings(); err != nil {
			return nil, err
		}
	}
	if opts.SkipDisplay > 0 {
		cfg.SkipDisplay = opts.SkipDisplay
	}

	logger := opts.logger()
	timerOpts := []pomodoro.Option{pomodoro.WithLogger(logger.With("component", "timer"))}
	recOpts := []sessionlog.Option{sessionlog.WithLogger(logger)}
	if opts.Clock != nil {
		timerOpts = append(timerOpts, pomodoro.WithClock(opts.Clock))
		recOpts = append(recOpts, sessionlog.WithClock(opts.Clock))
	}

	timer, err := pomodoro.New(cfg, tasks, timerOpts...)
	if err != nil {
		return nil, err
	}
	stored, err := st.StartSession(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{
		timer:    timer,
		recorder: sessionlog.NewRecorder(st, stored.ID, timer, recOpts...),
		events:   make(chan tea.Msg, eventBuffer),
		logger:   logger,
	}
	timer.OnStateChange(func(state pomodoro.State) { s.send(stateMsg{from: s, state: state}) })
	timer.OnCheckIn(s.checkIn)

	if len(opts.Detectors) > 0 {
		s.dispatcher = focus.NewDispatcher(opts.Detectors, opts.Focus)
		s.dispatcher.OnResult(s.recorder.RecordSnapshot)
		s.dispatcher.OnResult(func(res focus.Result) { s.send(focusMsg{from: s, result: res}) })
	}

	s.recorder.Start()
	timer.Start()
	return s, nil
}

func (s *session) checkIn(ci pomodoro.CheckIn) {
	s.send(checkInMsg{from: s, checkIn: ci})
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Request(ci); err != nil {
		s.logger.Warn("check-in dropped", "index", ci.Index, "error", err)
	}
}

// send never blocks: callbacks run inside the UI's own Update call.
func (s *session) send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- msg:
	default:
		s.logger.Warn("ui event dropped", "type", fmt.Sprintf("%T", msg))
	}
}

// listen waits for the next callback message. It yields nothing once the
// session is closed.
func (s *session) listen() tea.Cmd {
	events := s.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// finished reports whether the timer has run out of tasks.
func (s *session) finished() bool {
	return s.timer.State() == pomodoro.StateIdle
}

// close stops the focus pipeline and cancels the stored session unless it
// already completed. It is safe to call more than once.
func (s *session) close() {
	if s == nil || s.isClosed() {
		return
	}
	if s.dispatcher != nil {
		s.dispatcher.Stop()
	}
	if err := s.recorder.Close(); err != nil {
		s.logger.Error("close session failed", "session", s.recorder.SessionID(), "error", err)
	}

	s.mu.Lock()
	s.closed = true
	close(s.events)
	s.mu.Unlock()
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) stats() focus.Stats {
	if s.dispatcher == nil {
		return focus.Stats{}
	}
	return s.dispatcher.Stats()
}

// Options configures the interactive UI.
type Options struct {
	// PollInterval is how often the timer is polled; 0 means 100ms.
	PollInterval time.Duration
	SkipDisplay  time.Duration
	// Demo runs second-scale intervals instead of the stored settings.
	Demo      bool
	Detectors []focus.Detector
	Focus     focus.Options
	Logger    *slog.Logger
	// Clock replaces the wall clock for the timer and recorder.
	Clock pomodoro.Clock
}

func (o Options) pollInterval() time.Duration {
	if o.PollInterval <= 0 {
		return pomodoro.DefaultPollInterval
	}
	return o.PollInterval
}

func (o Options) logger() *slog.Logger {
	return logging.OrDiscard(o.Logger)
}
