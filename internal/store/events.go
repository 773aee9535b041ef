package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// InsertEvent appends an event to a session's log. data may be nil.
func (s *Store) InsertEvent(sessionID int64, eventType string, relativeMs int64, data map[string]any) (int64, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("encode event data: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO session_events (session_id, event_type, relative_ms, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, eventType, relativeMs, string(raw), now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

// ListEvents returns a session's events in insertion order. A zero
// sessionID lists every session's events.
func (s *Store) ListEvents(sessionID int64) ([]SessionEvent, error) {
	query := `SELECT id, session_id, event_type, relative_ms, data, created_at FROM session_events`
	var args []any
	if sessionID != 0 {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		var raw, createdAt string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Type, &e.RelativeMs, &raw, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &e.Data); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", e.ID, err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}
