package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/sadopc/focusassist/internal/pomodoro"
	"github.com/sadopc/focusassist/internal/store"
	"github.com/sadopc/focusassist/internal/tasklist"
)

const (
	// shortIDLen is how much of a task ID listings show.
	shortIDLen  = 8
	wrapColumns = 72
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task"},
	Short:   "Manage the task queue",
}

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks in queue order",
	Args:    cobra.NoArgs,
	RunE:    runTasksList,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add a task to the end of the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksAdd,
}

var tasksImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add every task from a TOML task list",
	Long: `Add every task from a TOML task list:

  [[task]]
  title = "Write report"
  description = "first draft"
  pomodoros = 3`,
	Args: cobra.ExactArgs(1),
	RunE: runTasksImport,
}

var tasksArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Hide a task from the queue (ID may be a unique prefix or the title)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksArchive,
}

var tasksEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change a task's title, description or estimate (ID may be a unique prefix or the title)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksEdit,
}

var (
	tasksListAll  bool
	tasksAddPomos int
	tasksAddDesc  string

	tasksEditTitle string
	tasksEditDesc  string
	tasksEditPomos int
)

func init() {
	tasksListCmd.Flags().BoolVarP(&tasksListAll, "all", "a", false, "include archived tasks")
	tasksAddCmd.Flags().IntVarP(&tasksAddPomos, "pomodoros", "p", 1, "estimated pomodoros")
	tasksAddCmd.Flags().StringVarP(&tasksAddDesc, "description", "d", "", "task description")
	tasksEditCmd.Flags().StringVar(&tasksEditTitle, "title", "", "new title")
	tasksEditCmd.Flags().StringVarP(&tasksEditDesc, "description", "d", "", "new description")
	tasksEditCmd.Flags().IntVarP(&tasksEditPomos, "pomodoros", "p", 0, "new estimate")
	tasksEditCmd.MarkFlagsOneRequired("title", "description", "pomodoros")

	tasksCmd.AddCommand(tasksListCmd, tasksAddCmd, tasksEditCmd, tasksImportCmd, tasksArchiveCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	tasks, err := st.ListTasks(tasksListAll)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return nil
	}
	for _, t := range tasks {
		printTask(out, t)
	}
	return nil
}

func printTask(out io.Writer, t store.Task) {
	status := string(t.Status)
	if t.Archived {
		status = "archived"
	}
	fmt.Fprintf(out, "%s  %-11s  %d/%d  %s\n", shortID(t.ID), status, t.CompletedPomodoros, t.EstimatedPomodoros, t.Title)
	if t.Description != "" {
		fmt.Fprintln(out, indent.String(wordwrap.String(t.Description, wrapColumns), 4))
	}
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	task, err := pomodoro.NewTask(args[0], tasksAddDesc, tasksAddPomos)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	saved, err := st.CreateTask(task)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q (%d pomodoros)\n", shortID(saved.ID), saved.Title, saved.EstimatedPomodoros)
	return nil
}

func runTasksImport(cmd *cobra.Command, args []string) error {
	tasks, err := tasklist.Load(args[0])
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	for _, task := range tasks {
		if _, err := st.CreateTask(task); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks from %s\n", len(tasks), args[0])
	return nil
}

func runTasksEdit(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := findTask(st, args[0])
	if err != nil {
		return err
	}

	edited := task.Pomodoro()
	flags := cmd.Flags()
	if flags.Changed("title") {
		edited.Title = tasksEditTitle
	}
	if flags.Changed("description") {
		edited.Description = tasksEditDesc
	}
	if flags.Changed("pomodoros") {
		edited.EstimatedPomodoros = tasksEditPomos
	}
	edited.Title = strings.TrimSpace(edited.Title)
	if err := edited.Validate(); err != nil {
		return err
	}

	if err := st.UpdateTask(task.ID, edited.Title, edited.Description, edited.EstimatedPomodoros); err != nil {
		return err
	}
	saved, err := st.GetTask(task.ID)
	if err != nil {
		return err
	}
	printTask(cmd.OutOrStdout(), *saved)
	return nil
}

func runTasksArchive(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := findTask(st, args[0])
	if err != nil {
		return err
	}
	if err := st.ArchiveTask(task.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Archived %s %q\n", shortID(task.ID), task.Title)
	return nil
}

// findTask resolves a full task ID, an unambiguous prefix of one, or failing
// those an exact title.
func findTask(st *store.Store, prefix string) (*store.Task, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("empty task ID")
	}
	tasks, err := st.ListTasks(true)
	if err != nil {
		return nil, err
	}

	var matches []*store.Task
	for i := range tasks {
		if tasks[i].ID == prefix {
			return &tasks[i], nil
		}
		if strings.HasPrefix(tasks[i].ID, prefix) {
			matches = append(matches, &tasks[i])
		}
	}
	if len(matches) == 0 {
		for i := range tasks {
			if tasks[i].Title == prefix {
				matches = append(matches, &tasks[i])
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no task with ID %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("task ID %q is ambiguous", prefix)
	}
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
