// Package export writes recorded sessions to CSV, JSON and YAML files.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/focusassist/internal/sessionlog"
	"github.com/sadopc/focusassist/internal/store"
)

// Formats accepted by Write.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report is one exported session, or every session when Session is nil.
type Report struct {
	Session *store.PomodoroSession
	Events  []store.SessionEvent
}

// Write exports r to path in the named format.
func Write(format string, r Report, path string) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ToCSV(r.Events, path)
	case FormatJSON:
		return ToJSON(r, path)
	case FormatYAML, "yml":
		return ToYAML(r, path)
	default:
		return fmt.Errorf("unknown export format %q (want csv, json or yaml)", format)
	}
}

type document struct {
	ExportedAt string       `json:"exported_at" yaml:"exported_at"`
	Session    *sessionDoc  `json:"session,omitempty" yaml:"session,omitempty"`
	Count      int          `json:"count" yaml:"count"`
	Events     []eventDoc   `json:"events" yaml:"events"`
	Blocks     []focusBlock `json:"focus_blocks,omitempty" yaml:"focus_blocks,omitempty"`
}

type sessionDoc struct {
	ID             int64  `json:"id" yaml:"id"`
	Status         string `json:"status" yaml:"status"`
	WorkSeconds    int    `json:"work_seconds" yaml:"work_seconds"`
	BreakSeconds   int    `json:"break_seconds" yaml:"break_seconds"`
	LongBreakSecs  int    `json:"long_break_seconds" yaml:"long_break_seconds"`
	CompletedCount int    `json:"completed_pomodoros" yaml:"completed_pomodoros"`
	StartedAt      string `json:"started_at" yaml:"started_at"`
	CompletedAt    string `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

type eventDoc struct {
	ID         int64          `json:"id" yaml:"id"`
	SessionID  int64          `json:"session_id" yaml:"session_id"`
	Type       string         `json:"type" yaml:"type"`
	RelativeMs int64          `json:"relative_ms" yaml:"relative_ms"`
	Relative   string         `json:"relative" yaml:"relative"`
	Data       map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

type focusBlock struct {
	Pomodoro          int     `json:"pomodoro" yaml:"pomodoro"`
	Task              string  `json:"task,omitempty" yaml:"task,omitempty"`
	Snapshots         int     `json:"snapshots" yaml:"snapshots"`
	Category          string  `json:"category,omitempty" yaml:"category,omitempty"`
	AvgFocus          string  `json:"avg_focus,omitempty" yaml:"avg_focus,omitempty"`
	PercentProductive float64 `json:"percent_productive" yaml:"percent_productive"`
}

func (r Report) document() document {
	doc := document{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(r.Events),
	}
	if s := r.Session; s != nil {
		doc.Session = &sessionDoc{
			ID:             s.ID,
			Status:         s.Status,
			WorkSeconds:    s.WorkDuration,
			BreakSeconds:   s.BreakDuration,
			LongBreakSecs:  s.LongBreakDuration,
			CompletedCount: s.CompletedCount,
			StartedAt:      formatTime(s.StartedAt),
		}
		if s.CompletedAt != nil {
			doc.Session.CompletedAt = formatTime(*s.CompletedAt)
		}
	}

	for _, e := range r.Events {
		doc.Events = append(doc.Events, eventDoc{
			ID:         e.ID,
			SessionID:  e.SessionID,
			Type:       e.Type,
			RelativeMs: e.RelativeMs,
			Relative:   formatElapsed(e.RelativeMs),
			Data:       e.Data,
			CreatedAt:  formatTime(e.CreatedAt),
		})
	}

	// Blocks only make sense within a single session.
	if r.Session != nil {
		for _, b := range sessionlog.Stats(r.Events) {
			doc.Blocks = append(doc.Blocks, focusBlock(b))
		}
	}
	return doc
}
