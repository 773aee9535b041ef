package pomodoro

import (
	"context"
	"time"
)

// DefaultPollInterval is the cadence drivers poll RemainingTime at.
const DefaultPollInterval = 100 * time.Millisecond

// Drive polls t every interval until ctx is done or the timer is idle.
// fn, if non-nil, sees the state and remaining time of each poll. Start the
// timer before calling Drive; an idle timer returns immediately.
func Drive(ctx context.Context, t *Timer, every time.Duration, fn func(State, time.Duration)) error {
	if every <= 0 {
		every = DefaultPollInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		remaining, ok := t.RemainingTime()
		if fn != nil {
			fn(t.State(), remaining)
		}
		if !ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
