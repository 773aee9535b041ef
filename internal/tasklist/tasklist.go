// Package tasklist loads task queues from TOML files.
//
//	[[task]]
//	title = "Write report"
//	description = "first draft"
//	pomodoros = 3
package tasklist

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/sadopc/focusassist/internal/pomodoro"
)

// DefaultPomodoros is used when an entry omits pomodoros.
const DefaultPomodoros = 1

type file struct {
	Tasks []entry `toml:"task"`
}

type entry struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Pomodoros   *int   `toml:"pomodoros"`
}

// Load reads and validates the task list at path.
func Load(path string) ([]pomodoro.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task list: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes a task list document. Unknown keys are rejected so typos do
// not silently drop fields.
func Parse(doc string) ([]pomodoro.Task, error) {
	var f file
	md, err := toml.Decode(doc, &f)
	if err != nil {
		return nil, fmt.Errorf("parse task list: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse task list: unknown key %q", undecoded[0].String())
	}
	if len(f.Tasks) == 0 {
		return nil, pomodoro.ErrNoTasks
	}
	if len(f.Tasks) > pomodoro.MaxTasks {
		return nil, fmt.Errorf("%w: %d tasks", pomodoro.ErrTooManyTasks, len(f.Tasks))
	}

	tasks := make([]pomodoro.Task, 0, len(f.Tasks))
	var errs pomodoro.ValidationErrors
	for i, e := range f.Tasks {
		n := DefaultPomodoros
		if e.Pomodoros != nil {
			n = *e.Pomodoros
		}
		task, err := pomodoro.NewTask(e.Title, e.Description, n)
		if err != nil {
			var verrs pomodoro.ValidationErrors
			if errors.As(err, &verrs) {
				for _, v := range verrs {
					v.Field = fmt.Sprintf("task[%d].%s", i, v.Field)
					errs = append(errs, v)
				}
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return tasks, nil
}
