package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/focusassist/internal/pomodoro"
)

// StartSession records a new running session with the lengths it runs with.
func (s *Store) StartSession(cfg pomodoro.Config) (*PomodoroSession, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO pomodoro_sessions (work_duration, break_duration, long_break_duration, status, started_at)
		 VALUES (?, ?, ?, 'running', ?)`,
		int(cfg.Work.Seconds()), int(cfg.ShortBreak.Seconds()), int(cfg.LongBreak.Seconds()), now,
	)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetSession(id)
}

func (s *Store) GetSession(id int64) (*PomodoroSession, error) {
	p, err := scanSession(s.db.QueryRow(
		`SELECT id, work_duration, break_duration, long_break_duration, completed_count, status, started_at, completed_at
		 FROM pomodoro_sessions WHERE id = ?`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return p, nil
}

// LatestSession returns the most recently started session.
func (s *Store) LatestSession() (*PomodoroSession, error) {
	p, err := scanSession(s.db.QueryRow(
		`SELECT id, work_duration, break_duration, long_break_duration, completed_count, status, started_at, completed_at
		 FROM pomodoro_sessions ORDER BY id DESC LIMIT 1`,
	))
	if err != nil {
		return nil, fmt.Errorf("latest session: %w", err)
	}
	return p, nil
}

// ListSessions returns the newest sessions first.
func (s *Store) ListSessions(limit int) ([]PomodoroSession, error) {
	rows, err := s.db.Query(
		`SELECT id, work_duration, break_duration, long_break_duration, completed_count, status, started_at, completed_at
		 FROM pomodoro_sessions ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []PomodoroSession
	for rows.Next() {
		p, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *p)
	}
	return sessions, rows.Err()
}

func (s *Store) IncrementSession(id int64) error {
	_, err := s.db.Exec(
		`UPDATE pomodoro_sessions SET completed_count = completed_count + 1 WHERE id = ?`, id,
	)
	return err
}

// CompleteSession marks a running session completed.
func (s *Store) CompleteSession(id int64) error {
	return s.finishSession(id, SessionCompleted)
}

// CancelSession marks a running session cancelled. Finished sessions are left alone.
func (s *Store) CancelSession(id int64) error {
	return s.finishSession(id, SessionCancelled)
}

func (s *Store) finishSession(id int64, status string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`UPDATE pomodoro_sessions SET status = ?, completed_at = ? WHERE id = ? AND status = 'running'`,
		status, now, id,
	)
	if err != nil {
		return fmt.Errorf("%s session %d: %w", status, id, err)
	}
	return nil
}

// GetDailyPomodoros sums completed pomodoros per day for sessions started in [from, to).
func (s *Store) GetDailyPomodoros(from, to time.Time) ([]DailyPomodoros, error) {
	rows, err := s.db.Query(`
		SELECT date(started_at) AS day, COALESCE(SUM(completed_count), 0), COUNT(*)
		FROM pomodoro_sessions
		WHERE started_at >= ? AND started_at < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily pomodoros: %w", err)
	}
	defer rows.Close()

	var days []DailyPomodoros
	for rows.Next() {
		var d DailyPomodoros
		if err := rows.Scan(&d.Date, &d.Completed, &d.Sessions); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func scanSession(row rowScanner) (*PomodoroSession, error) {
	p := &PomodoroSession{}
	var startedAt string
	var completedAt sql.NullString
	err := row.Scan(&p.ID, &p.WorkDuration, &p.BreakDuration, &p.LongBreakDuration,
		&p.CompletedCount, &p.Status, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	p.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		p.CompletedAt = &t
	}
	return p, nil
}
