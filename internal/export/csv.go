package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/focusassist/internal/store"
)

// ToCSV writes one row per session event.
func ToCSV(events []store.SessionEvent, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Session", "Event", "Relative (ms)", "Relative", "Data", "Created"}); err != nil {
		return err
	}

	for _, e := range events {
		data, err := encodeData(e.Data)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.ID, err)
		}
		row := []string{
			strconv.FormatInt(e.ID, 10),
			strconv.FormatInt(e.SessionID, 10),
			e.Type,
			strconv.FormatInt(e.RelativeMs, 10),
			formatElapsed(e.RelativeMs),
			data,
			formatTime(e.CreatedAt),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// encodeData renders event data as compact JSON with sorted keys; empty
// data becomes an empty cell.
func encodeData(data map[string]any) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// formatElapsed renders milliseconds as HH:MM:SS, truncating sub-second time.
func formatElapsed(ms int64) string {
	secs := ms / 1000
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(time.RFC3339)
}
