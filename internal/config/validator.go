package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
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

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateTimer()...)
	errs = append(errs, c.validateFocus()...)
	return errs
}

func (c *Config) validateStore() []ValidationError {
	if strings.TrimSpace(c.Store.Path) == "" {
		return []ValidationError{{Field: "store.path", Value: c.Store.Path, Message: "must not be empty"}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		return []ValidationError{{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		}}
	}
	return nil
}

func (c *Config) validateTimer() []ValidationError {
	var errs []ValidationError
	if c.Timer.PollInterval <= 0 {
		errs = append(errs, ValidationError{Field: "timer.poll_interval", Value: c.Timer.PollInterval, Message: "must be positive"})
	}
	if c.Timer.SkipDisplay <= 0 {
		errs = append(errs, ValidationError{Field: "timer.skip_display", Value: c.Timer.SkipDisplay, Message: "must be positive"})
	}
	return errs
}

func (c *Config) validateFocus() []ValidationError {
	var errs []ValidationError
	if c.Focus.Workers < 1 || c.Focus.Workers > 16 {
		errs = append(errs, ValidationError{Field: "focus.workers", Value: c.Focus.Workers, Message: "must be between 1 and 16"})
	}
	if c.Focus.QueueSize < 1 {
		errs = append(errs, ValidationError{Field: "focus.queue_size", Value: c.Focus.QueueSize, Message: "must be at least 1"})
	}
	if c.Focus.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "focus.timeout", Value: c.Focus.Timeout, Message: "must be positive"})
	}
	if c.Focus.IdleEnabled && c.Focus.IdleAwayAfter <= 0 {
		errs = append(errs, ValidationError{Field: "focus.idle_away_after", Value: c.Focus.IdleAwayAfter, Message: "must be positive when idle detection is enabled"})
	}
	return errs
}
