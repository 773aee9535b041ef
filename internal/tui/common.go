package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/focusassist/internal/focus"
	"github.com/sadopc/focusassist/internal/pomodoro"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewTasks
	viewReports
	viewSettings
)

var viewNames = []string{"Timer", "Tasks", "Reports", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// stateMsg, checkInMsg and focusMsg arrive from timer and dispatcher
// callbacks through the session's event channel. from identifies the
// session so messages from a stopped one can be ignored.
type stateMsg struct {
	from  *session
	state pomodoro.State
}

type checkInMsg struct {
	from    *session
	checkIn pomodoro.CheckIn
}

type focusMsg struct {
	from   *session
	result focus.Result
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatCountdown renders MM:SS, rounding partial seconds up so a fresh
// interval shows its full length.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func errorStatus(format string, args ...any) tea.Cmd {
	text := fmt.Sprintf(format, args...)
	return func() tea.Msg {
		return statusMsg{text: text, isError: true}
	}
}
