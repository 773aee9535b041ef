package pomodoro

import "fmt"

// State is the lifecycle state of a Timer.
type State int

const (
	StateIdle State = iota
	StateWork
	StateShortBreak
	StateLongBreak
	StatePaused
	StateSkipped
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateWork:       "work",
	StateShortBreak: "short_break",
	StateLongBreak:  "long_break",
	StatePaused:     "paused",
	StateSkipped:    "skipped",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Label returns a human readable name for display.
func (s State) Label() string {
	switch s {
	case StateWork:
		return "Work"
	case StateShortBreak:
		return "Short Break"
	case StateLongBreak:
		return "Long Break"
	case StatePaused:
		return "Paused"
	case StateSkipped:
		return "Skipped"
	default:
		return "Idle"
	}
}

// Active reports whether s is a running interval.
func (s State) Active() bool {
	switch s {
	case StateWork, StateShortBreak, StateLongBreak:
		return true
	}
	return false
}

// IsBreak reports whether s is a short or long break.
func (s State) IsBreak() bool {
	return s == StateShortBreak || s == StateLongBreak
}

// ParseState converts a state name such as "short_break" back into a State.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return StateIdle, fmt.Errorf("unknown timer state %q", name)
}
