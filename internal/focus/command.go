package focus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandDetector runs an external program (typically screenshot, OCR and a
// language model chained in a script) and reads its verdict from stdout:
//
//	{"category": "WORK", "focus": "high", "productive": true, "confidence": 0.8}
//
// "level" may be given explicitly; otherwise it is derived from productive.
type CommandDetector struct {
	Command string
	Shell   string
}

// NewCommandDetector returns a detector running command through sh -c.
func NewCommandDetector(command string) *CommandDetector {
	return &CommandDetector{Command: command, Shell: "sh"}
}

func (c *CommandDetector) Name() string { return "command" }

type commandVerdict struct {
	Level      string            `json:"level"`
	Category   string            `json:"category"`
	Focus      string            `json:"focus"`
	Productive *bool             `json:"productive"`
	Confidence *float64          `json:"confidence"`
	Details    map[string]string `json:"details"`
}

func (c *CommandDetector) Analyze(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Shell, "-c", c.Command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Snapshot{}, fmt.Errorf("run focus command: %w: %s", err, msg)
		}
		return Snapshot{}, fmt.Errorf("run focus command: %w", err)
	}

	snap, err := parseVerdict(stdout.Bytes())
	if err != nil {
		return Snapshot{}, err
	}
	snap.At = start
	snap.Took = time.Since(start)
	return snap, nil
}

func parseVerdict(out []byte) (Snapshot, error) {
	// Scripts often log before the verdict; the last non-empty line wins.
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return Snapshot{}, fmt.Errorf("parse focus verdict: empty output")
	}

	var v commandVerdict
	if err := json.Unmarshal([]byte(last), &v); err != nil {
		return Snapshot{}, fmt.Errorf("parse focus verdict: %w", err)
	}

	snap := Snapshot{
		Category:   strings.ToUpper(strings.TrimSpace(v.Category)),
		Rating:     strings.ToLower(strings.TrimSpace(v.Focus)),
		Confidence: 0.5,
		Details:    v.Details,
	}
	switch snap.Rating {
	case "", RatingLow, RatingMedium, RatingHigh:
	default:
		return Snapshot{}, fmt.Errorf("parse focus verdict: unknown focus %q", v.Focus)
	}
	if v.Confidence != nil {
		snap.Confidence = min(max(*v.Confidence, 0), 1)
	}

	switch Level(strings.ToLower(v.Level)) {
	case LevelFocused, LevelDistracted, LevelAway:
		snap.Level = Level(strings.ToLower(v.Level))
	case "":
		switch {
		case v.Productive != nil && *v.Productive:
			snap.Level = LevelFocused
		case v.Productive != nil:
			snap.Level = LevelDistracted
		case snap.Rating == RatingLow:
			snap.Level = LevelDistracted
		case snap.Rating != "":
			snap.Level = LevelFocused
		default:
			snap.Level = LevelUnknown
		}
	default:
		return Snapshot{}, fmt.Errorf("parse focus verdict: unknown level %q", v.Level)
	}

	if v.Productive != nil {
		snap.Productive = *v.Productive
	} else {
		snap.Productive = snap.Level == LevelFocused
	}
	if snap.Rating == "" {
		snap.Rating = RatingFor(snap.Level)
	}
	return snap, nil
}
