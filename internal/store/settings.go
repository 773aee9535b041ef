package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sadopc/focusassist/internal/pomodoro"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// TimerSettings reads the timer lengths and cadence from the settings table.
func (s *Store) TimerSettings() (pomodoro.Config, error) {
	seconds := func(key string) (time.Duration, error) {
		n, err := s.intSetting(key)
		return time.Duration(n) * time.Second, err
	}

	cfg := pomodoro.DefaultConfig()
	var err error
	if cfg.Work, err = seconds("pomodoro_work"); err != nil {
		return cfg, err
	}
	if cfg.ShortBreak, err = seconds("pomodoro_break"); err != nil {
		return cfg, err
	}
	if cfg.LongBreak, err = seconds("pomodoro_long_break"); err != nil {
		return cfg, err
	}
	if cfg.CheckInInterval, err = seconds("checkin_interval"); err != nil {
		return cfg, err
	}
	if cfg.PomosBeforeLongBreak, err = s.intSetting("pomodoro_count"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (s *Store) intSetting(key string) (int, error) {
	v, err := s.GetSetting(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("setting %q: %w", key, err)
	}
	return n, nil
}
