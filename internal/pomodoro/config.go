package pomodoro

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Limits applied to tasks and task lists.
const (
	MaxTasks             = 20
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MinPomodoros         = 1
	MaxPomodoros         = 50
)

// DefaultSkipDisplay is how long the Skipped state stays visible before the
// next interval lands.
const DefaultSkipDisplay = 500 * time.Millisecond

var (
	// ErrTooManyTasks is returned when a task list would exceed MaxTasks.
	ErrTooManyTasks = errors.New("too many tasks")
	// ErrNoTasks is returned when a timer is built without tasks.
	ErrNoTasks = errors.New("at least one task is required")
	// ErrNotIdle is returned by operations that require an idle timer.
	ErrNotIdle = errors.New("timer is not idle")
)

// Config holds the interval lengths and break cadence of a Timer.
type Config struct {
	Work                 time.Duration
	ShortBreak           time.Duration
	LongBreak            time.Duration
	PomosBeforeLongBreak int
	CheckInInterval      time.Duration
	SkipDisplay          time.Duration
}

// DefaultConfig returns the classic 25/5/15 cadence with a check-in every minute.
func DefaultConfig() Config {
	return Config{
		Work:                 25 * time.Minute,
		ShortBreak:           5 * time.Minute,
		LongBreak:            15 * time.Minute,
		PomosBeforeLongBreak: 4,
		CheckInInterval:      time.Minute,
		SkipDisplay:          DefaultSkipDisplay,
	}
}

// DemoConfig returns second-scale intervals for trying the app out.
func DemoConfig() Config {
	return Config{
		Work:                 5 * time.Second,
		ShortBreak:           3 * time.Second,
		LongBreak:            8 * time.Second,
		PomosBeforeLongBreak: 4,
		CheckInInterval:      2 * time.Second,
		SkipDisplay:          DefaultSkipDisplay,
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid field found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Validate checks every field and returns nil or a ValidationErrors.
func (c Config) Validate() error {
	var errs ValidationErrors
	positive := func(field string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, ValidationError{Field: field, Value: d, Message: "must be positive"})
		}
	}
	positive("work", c.Work)
	positive("short_break", c.ShortBreak)
	positive("long_break", c.LongBreak)
	positive("checkin_interval", c.CheckInInterval)
	positive("skip_display", c.SkipDisplay)
	if c.PomosBeforeLongBreak <= 0 {
		errs = append(errs, ValidationError{
			Field:   "pomos_before_long_break",
			Value:   c.PomosBeforeLongBreak,
			Message: "must be positive",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// length returns the interval length for an active state.
func (c Config) length(s State) time.Duration {
	switch s {
	case StateWork:
		return c.Work
	case StateShortBreak:
		return c.ShortBreak
	case StateLongBreak:
		return c.LongBreak
	}
	return 0
}
