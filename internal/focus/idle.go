package focus

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// IdleSource reports the time since the last keyboard or mouse input.
type IdleSource interface {
	IdleDuration(ctx context.Context) (time.Duration, error)
}

// IdleDetector treats a long input pause as the user being away. Recent input
// only weakly suggests focus, so it reports focused with low confidence.
type IdleDetector struct {
	Source    IdleSource
	AwayAfter time.Duration
}

// NewIdleDetector uses xprintidle when it is installed.
func NewIdleDetector(awayAfter time.Duration) *IdleDetector {
	return &IdleDetector{Source: NewXPrintIdle(), AwayAfter: awayAfter}
}

func (d *IdleDetector) Name() string { return "idle" }

func (d *IdleDetector) Analyze(ctx context.Context) (Snapshot, error) {
	idle, err := d.Source.IdleDuration(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Details: map[string]string{"idle": idle.Round(time.Second).String()},
	}
	if idle >= d.AwayAfter {
		snap.Level = LevelAway
		snap.Confidence = 0.9
		snap.Category = "AWAY"
	} else {
		snap.Level = LevelFocused
		snap.Confidence = 0.3
		snap.Productive = true
	}
	snap.Rating = RatingFor(snap.Level)
	return snap, nil
}

// XPrintIdle reads idle time from the xprintidle utility (X11 only).
type XPrintIdle struct {
	path string
}

// NewXPrintIdle looks xprintidle up on PATH. A missing binary makes every
// call fail with ErrIdleUnsupported.
func NewXPrintIdle() *XPrintIdle {
	path, _ := exec.LookPath("xprintidle")
	return &XPrintIdle{path: path}
}

func (x *XPrintIdle) IdleDuration(ctx context.Context) (time.Duration, error) {
	if x.path == "" {
		return 0, ErrIdleUnsupported
	}
	out, err := exec.CommandContext(ctx, x.path).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseIdleMillis(string(out))
}

func parseIdleMillis(s string) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond, nil
}
