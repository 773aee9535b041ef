package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/focusassist/internal/pomodoro"
)

const taskColumns = `id, title, description, estimated_pomodoros, completed_pomodoros, status, position, archived, created_at, updated_at`

// CreateTask stores a validated task at the end of the queue.
func (s *Store) CreateTask(task pomodoro.Task) (*Task, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	status := task.Status
	if status == "" {
		status = pomodoro.TaskNotStarted
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, title, description, estimated_pomodoros, completed_pomodoros, status, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM tasks), ?, ?)`,
		task.ID, task.Title, task.Description, task.EstimatedPomodoros, task.CompletedPomodoros, string(status), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(task.ID)
}

func (s *Store) GetTask(id string) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// ListTasks returns tasks in queue order.
func (s *Store) ListTasks(includeArchived bool) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY position, created_at`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// OpenTasks returns up to limit unarchived, unfinished tasks ready for a timer.
func (s *Store) OpenTasks(limit int) ([]pomodoro.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE archived = 0 AND status != 'completed'
		 ORDER BY position, created_at LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}
	defer rows.Close()

	var tasks []pomodoro.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t.Pomodoro())
	}
	return tasks, rows.Err()
}

// UpdateTask edits a task's text and estimate. The status follows the new
// estimate: reaching it completes the task, raising it past the completed
// count reopens a finished one.
func (s *Store) UpdateTask(id, title, description string, estimated int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, estimated_pomodoros = ?, updated_at = ?,
		 status = CASE
		   WHEN completed_pomodoros >= ? THEN 'completed'
		   WHEN status = 'completed' THEN 'in_progress'
		   ELSE status END
		 WHERE id = ?`,
		title, description, estimated, now, estimated, id,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update task %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// UpdateTaskProgress copies the timer's counters and status back to the row.
func (s *Store) UpdateTaskProgress(task pomodoro.Task) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`UPDATE tasks SET completed_pomodoros = ?, status = ?, updated_at = ? WHERE id = ?`,
		task.CompletedPomodoros, string(task.Status), now, task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task progress: %w", err)
	}
	return nil
}

func (s *Store) ArchiveTask(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE tasks SET archived = 1, updated_at = ? WHERE id = ?`, now, id,
	)
	if err != nil {
		return fmt.Errorf("archive task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("archive task %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var status, createdAt, updatedAt string
	var archived int
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.EstimatedPomodoros, &t.CompletedPomodoros,
		&status, &t.Position, &archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = pomodoro.TaskStatus(status)
	t.Archived = archived == 1
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return t, nil
}
