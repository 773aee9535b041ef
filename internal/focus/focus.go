// Package focus analyses the user's attention when the timer asks for a
// check-in. Detectors run in parallel on a small worker pool and their
// verdicts are merged by majority vote.
package focus

import (
	"context"
	"errors"
	"maps"
	"time"
)

var (
	// ErrQueueFull is returned by Request when analyses are backed up.
	ErrQueueFull = errors.New("focus queue full")
	// ErrStopped is returned by Request after Stop.
	ErrStopped = errors.New("focus dispatcher stopped")
	// ErrIdleUnsupported means the platform cannot report idle time.
	ErrIdleUnsupported = errors.New("idle detection unsupported")
)

// Level is the attention verdict of an analysis.
type Level string

const (
	LevelFocused    Level = "focused"
	LevelDistracted Level = "distracted"
	LevelAway       Level = "away"
	LevelUnknown    Level = "unknown"
)

// Focus ratings reported with a snapshot.
const (
	RatingLow    = "low"
	RatingMedium = "medium"
	RatingHigh   = "high"
)

// Snapshot is one detector's (or the merged) view of the user's attention.
type Snapshot struct {
	At         time.Time
	Level      Level
	Confidence float64
	// Category is a free-form activity label such as WORK or SOCIAL.
	Category   string
	Rating     string
	Productive bool
	Source     string
	Details    map[string]string
	Took       time.Duration
}

// Detector produces a Snapshot. Analyze must return when ctx is done.
type Detector interface {
	Name() string
	Analyze(ctx context.Context) (Snapshot, error)
}

// RatingFor maps a level to the low/medium/high scale used by session stats.
func RatingFor(l Level) string {
	switch l {
	case LevelFocused:
		return RatingHigh
	case LevelDistracted, LevelAway:
		return RatingLow
	}
	return ""
}

// Aggregate merges detector results by majority vote on Level. Ties go to
// the level reported first. Confidence is the mean over all snapshots.
func Aggregate(snaps []Snapshot) Snapshot {
	switch len(snaps) {
	case 0:
		return Snapshot{Level: LevelUnknown, Details: map[string]string{"error": "analysis failed"}}
	case 1:
		return snaps[0]
	}

	counts := make(map[Level]int)
	var order []Level
	var confidence float64
	details := make(map[string]string)
	for _, s := range snaps {
		if counts[s.Level] == 0 {
			order = append(order, s.Level)
		}
		counts[s.Level]++
		confidence += s.Confidence
		maps.Copy(details, s.Details)
	}

	winner := order[0]
	for _, l := range order[1:] {
		if counts[l] > counts[winner] {
			winner = l
		}
	}

	// The most confident snapshot that voted for the winner supplies the labels.
	var best *Snapshot
	var productive int
	for i := range snaps {
		s := &snaps[i]
		if s.Level != winner {
			continue
		}
		if s.Productive {
			productive++
		}
		if best == nil || s.Confidence > best.Confidence {
			best = s
		}
	}

	out := Snapshot{
		At:         best.At,
		Level:      winner,
		Confidence: confidence / float64(len(snaps)),
		Category:   best.Category,
		Rating:     best.Rating,
		Productive: productive*2 >= counts[winner],
		Source:     "aggregate",
		Details:    details,
	}
	if out.Rating == "" {
		out.Rating = RatingFor(winner)
	}
	return out
}
