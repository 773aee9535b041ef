package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/sadopc/focusassist/internal/pomodoro"
	"github.com/sadopc/focusassist/internal/store"
)

type tasksModel struct {
	store  *store.Store
	width  int
	height int

	tasks        []store.Task
	cursor       int
	showArchived bool

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formTitle       *string
	formDescription *string
	formPomodoros   *string
}

func newTasksModel(s *store.Store) tasksModel {
	title, desc, pomos := "", "", "1"
	return tasksModel{
		store:           s,
		formTitle:       &title,
		formDescription: &desc,
		formPomodoros:   &pomos,
	}
}

func (t *tasksModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

type tasksDataMsg struct {
	tasks []store.Task
}

func (t tasksModel) refresh() tea.Cmd {
	return func() tea.Msg {
		tasks, _ := t.store.ListTasks(t.showArchived)
		return tasksDataMsg{tasks: tasks}
	}
}

func (t tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksDataMsg:
		t.tasks = msg.tasks
		if t.cursor >= len(t.tasks) {
			t.cursor = max(0, len(t.tasks)-1)
		}
		return t, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if t.cursor > 0 {
				t.cursor--
			}
		case key.Matches(msg, keys.Down):
			if t.cursor < len(t.tasks)-1 {
				t.cursor++
			}
		case key.Matches(msg, keys.New):
			return t.showNewTaskForm()
		case key.Matches(msg, keys.Delete):
			if len(t.tasks) > 0 {
				task := t.tasks[t.cursor]
				if err := t.store.ArchiveTask(task.ID); err != nil {
					return t, errorStatus("Archive failed: %v", err)
				}
				return t, t.refresh()
			}
		case key.Matches(msg, keys.Archived):
			t.showArchived = !t.showArchived
			return t, t.refresh()
		}
	}
	return t, nil
}

func (t tasksModel) showNewTaskForm() (tasksModel, tea.Cmd) {
	*t.formTitle = ""
	*t.formDescription = ""
	*t.formPomodoros = "1"

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task").Value(t.formTitle).Validate(validateTitle),
			huh.NewText().Title("Description").CharLimit(pomodoro.MaxDescriptionLength).Value(t.formDescription),
			huh.NewInput().Title("Estimated pomodoros").Value(t.formPomodoros).Validate(validatePomodoros),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			t.formActive = false
			t.form = nil
			return t, nil
		}
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State == huh.StateCompleted {
		t.formActive = false
		n, _ := strconv.Atoi(strings.TrimSpace(*t.formPomodoros))
		task, err := pomodoro.NewTask(*t.formTitle, *t.formDescription, n)
		if err != nil {
			return t, errorStatus("Invalid task: %v", err)
		}
		if _, err := t.store.CreateTask(task); err != nil {
			return t, errorStatus("Save failed: %v", err)
		}
		return t, tea.Batch(t.refresh(), func() tea.Msg {
			return statusMsg{text: "Added " + task.Title}
		})
	}

	return t, cmd
}

func validateTitle(s string) error {
	n := len([]rune(strings.TrimSpace(s)))
	if n == 0 || n > pomodoro.MaxTitleLength {
		return fmt.Errorf("title must be 1-%d characters", pomodoro.MaxTitleLength)
	}
	return nil
}

func validatePomodoros(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < pomodoro.MinPomodoros || n > pomodoro.MaxPomodoros {
		return fmt.Errorf("enter a number from %d to %d", pomodoro.MinPomodoros, pomodoro.MaxPomodoros)
	}
	return nil
}

func (t tasksModel) view() string {
	w := t.width - 4
	if t.formActive && t.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("New Task"), "", t.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Tasks")
	if t.showArchived {
		title += mutedStyle.Render("  (including archived)")
	}

	if len(t.tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks yet. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("    %-40s %-12s %s", "Task", "Status", "Pomodoros")))

	for i, task := range t.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == t.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		status := string(task.Status)
		if task.Archived {
			status = "archived"
		}
		row := style.Render(fmt.Sprintf("%s%s %-40s", cursor, statusMark(task), truncate(task.Title, 40))) +
			statusStyle(task).Render(fmt.Sprintf(" %-12s", status)) +
			mutedStyle.Render(fmt.Sprintf(" %d/%d", task.CompletedPomodoros, task.EstimatedPomodoros))
		rows = append(rows, row)
		if i == t.cursor && task.Description != "" {
			desc := indent.String(wordwrap.String(task.Description, max(w-12, 20)), 6)
			rows = append(rows, mutedStyle.Render(desc))
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  d: archive  a: toggle archived"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func statusMark(t store.Task) string {
	switch {
	case t.Archived:
		return "-"
	case t.Status == pomodoro.TaskCompleted:
		return "✓"
	case t.Status == pomodoro.TaskInProgress:
		return "◐"
	default:
		return "○"
	}
}

func statusStyle(t store.Task) lipgloss.Style {
	switch {
	case t.Archived:
		return mutedStyle
	case t.Status == pomodoro.TaskCompleted:
		return successStyle
	case t.Status == pomodoro.TaskInProgress:
		return accentStyle
	default:
		return normalItemStyle
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
