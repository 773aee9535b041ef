package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/sadopc/focusassist/internal/focus"
	"github.com/sadopc/focusassist/internal/pomodoro"
	"github.com/sadopc/focusassist/internal/store"
)

// pomodoroModel is the Timer tab. It owns the running session, if any.
type pomodoroModel struct {
	store  *store.Store
	opts   Options
	width  int
	height int

	session *session
	snap    pomodoro.Snapshot

	lastCheckIn *pomodoro.CheckIn
	lastFocus   *focus.Result
}

func newPomodoroModel(s *store.Store, opts Options) pomodoroModel {
	return pomodoroModel{store: s, opts: opts}
}

func (p *pomodoroModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

// running reports whether a session is active (including paused).
func (p pomodoroModel) running() bool {
	return p.session != nil && !p.session.isClosed()
}

func (p pomodoroModel) update(msg tea.Msg) (pomodoroModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return p.poll()

	case stateMsg:
		if msg.from != p.session {
			return p, nil
		}
		p.snap = p.session.timer.Snapshot()
		return p, tea.Batch(p.session.listen(), transitionStatus(msg.state, p.snap))

	case checkInMsg:
		if msg.from != p.session {
			return p, nil
		}
		ci := msg.checkIn
		p.lastCheckIn = &ci
		return p, p.session.listen()

	case focusMsg:
		if msg.from != p.session {
			return p, nil
		}
		res := msg.result
		p.lastFocus = &res
		return p, p.session.listen()

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return p, nil
}

// poll drives the timer; expiry, skips and check-ins happen here.
func (p pomodoroModel) poll() (pomodoroModel, tea.Cmd) {
	if !p.running() {
		return p, nil
	}
	p.session.timer.RemainingTime()
	p.snap = p.session.timer.Snapshot()
	if p.session.finished() {
		p.session.close()
		done := p.snap.CompletedPomodoros
		return p, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("All tasks done: %d pomodoros \a", done)}
		}
	}
	return p, nil
}

func (p pomodoroModel) handleKey(msg tea.KeyMsg) (pomodoroModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Start):
		if !p.running() {
			return p.start()
		}
		p.session.timer.Start()
	case key.Matches(msg, keys.Pause):
		if !p.running() {
			return p, nil
		}
		if p.session.timer.State() == pomodoro.StatePaused {
			p.session.timer.Start()
		} else {
			p.session.timer.Pause()
		}
	case key.Matches(msg, keys.Skip):
		if p.running() {
			p.session.timer.Skip()
		}
	case key.Matches(msg, keys.SkipWork):
		return p.skipTo(pomodoro.StateWork)
	case key.Matches(msg, keys.SkipBreak):
		return p.skipTo(pomodoro.StateShortBreak)
	case key.Matches(msg, keys.SkipLong):
		return p.skipTo(pomodoro.StateLongBreak)
	case key.Matches(msg, keys.Stop):
		if p.running() {
			p.shutdown()
			return p, func() tea.Msg { return statusMsg{text: "Session cancelled"} }
		}
		return p, nil
	default:
		return p, nil
	}
	if p.running() {
		p.snap = p.session.timer.Snapshot()
	}
	return p, nil
}

func (p pomodoroModel) start() (pomodoroModel, tea.Cmd) {
	s, err := startSession(p.store, p.opts)
	if err != nil {
		return p, errorStatus("Cannot start: %v", err)
	}
	p.session = s
	p.snap = s.timer.Snapshot()
	p.lastCheckIn = nil
	p.lastFocus = nil
	return p, s.listen()
}

func (p pomodoroModel) skipTo(target pomodoro.State) (pomodoroModel, tea.Cmd) {
	if !p.running() {
		return p, nil
	}
	if !p.session.timer.SkipTo(target) {
		return p, errorStatus("Already in %s", target.Label())
	}
	p.snap = p.session.timer.Snapshot()
	return p, nil
}

// shutdown cancels a running session. Safe on a zero model.
func (p *pomodoroModel) shutdown() {
	if p.session != nil {
		p.session.close()
	}
}

func transitionStatus(s pomodoro.State, snap pomodoro.Snapshot) tea.Cmd {
	var text string
	switch s {
	case pomodoro.StateWork:
		if task, ok := snap.CurrentTask(); ok {
			text = "Focus on: " + task.Title
		}
	case pomodoro.StateShortBreak, pomodoro.StateLongBreak:
		text = s.Label() + " time! \a"
	}
	if text == "" {
		return nil
	}
	return func() tea.Msg { return statusMsg{text: text} }
}

func (p pomodoroModel) view() string {
	w := p.width - 4
	title := titleStyle.Render("Pomodoro Timer")

	if p.session == nil {
		content := lipgloss.JoinVertical(lipgloss.Center,
			title,
			"",
			timerStyle.Width(max(w-6, 10)).Render("--:--"),
			mutedStyle.Render("Ready to start"),
			"",
			mutedStyle.Render("Press s to work through your open tasks"),
		)
		return panelStyle.Width(w).Render(content)
	}

	state := p.snap.State
	style := stateStyle(state)
	countdown := style.Bold(true).Width(max(w-6, 10)).Align(lipgloss.Center).Render(formatCountdown(p.snap.Remaining))
	label := style.Bold(true).Render(strings.ToUpper(state.Label()))
	if state == pomodoro.StatePaused || state == pomodoro.StateSkipped {
		label += mutedStyle.Render(" (" + p.snap.Underlying.Label() + ")")
	}

	rows := []string{title, "", countdown, label, "", p.renderTask(w), "", p.renderProgress(), p.renderFocus()}
	content := lipgloss.JoinVertical(lipgloss.Center, rows...)

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", p.renderControls()),
	)
}

func (p pomodoroModel) renderTask(w int) string {
	task, ok := p.snap.CurrentTask()
	if !ok {
		return successStyle.Bold(true).Render("All tasks done!")
	}
	line := highlightStyle.Bold(true).Render(task.Title) +
		mutedStyle.Render(fmt.Sprintf("  %d/%d", task.CompletedPomodoros, task.EstimatedPomodoros))
	if task.Description == "" {
		return line
	}
	desc := wordwrap.String(task.Description, max(w-10, 20))
	return lipgloss.JoinVertical(lipgloss.Center, line, mutedStyle.Render(desc))
}

func (p pomodoroModel) renderProgress() string {
	cycle := p.session.timer.Config().PomosBeforeLongBreak
	done := p.snap.CompletedPomodoros % cycle
	working := p.snap.Underlying == pomodoro.StateWork

	var parts []string
	for i := 0; i < cycle; i++ {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && working:
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d pomodoros  %d check-ins", p.snap.CompletedPomodoros, p.snap.CheckIns))
	return strings.Join(parts, " ") + counter
}

func (p pomodoroModel) renderFocus() string {
	if p.lastFocus == nil {
		if p.lastCheckIn != nil {
			return mutedStyle.Render(fmt.Sprintf("check-in %d at %s", p.lastCheckIn.Index, p.lastCheckIn.Elapsed.Round(time.Second)))
		}
		return ""
	}
	res := p.lastFocus
	if res.Err != nil {
		return errorStyle.Render("focus check failed: " + res.Err.Error())
	}
	s := res.Snapshot
	style := successStyle
	switch s.Level {
	case focus.LevelDistracted:
		style = warningStyle
	case focus.LevelAway, focus.LevelUnknown:
		style = mutedStyle
	}
	text := fmt.Sprintf("focus: %s", s.Level)
	if s.Category != "" {
		text += " · " + s.Category
	}
	return style.Render(text) + mutedStyle.Render(fmt.Sprintf("  (%.0f%% sure)", s.Confidence*100))
}

func (p pomodoroModel) renderControls() string {
	if !p.running() {
		return mutedStyle.Render("s: new session")
	}
	switch p.snap.State {
	case pomodoro.StatePaused:
		return mutedStyle.Render("s/space: resume  n: skip  x: stop")
	case pomodoro.StateSkipped:
		return mutedStyle.Render("skipping...")
	default:
		return mutedStyle.Render("space: pause  n: skip  w/b/l: jump to work/break/long  x: stop")
	}
}
