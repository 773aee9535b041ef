package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/focusassist/internal/focus"
	"github.com/sadopc/focusassist/internal/pomodoro"
	"github.com/sadopc/focusassist/internal/sessionlog"
	"github.com/sadopc/focusassist/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the timer without the interactive UI",
	Long: `Run the timer headless, printing every transition and check-in.

Tasks come from repeated --task flags ("Title" or "Title:N" for N pomodoros)
or, when none are given, from the open tasks in the database. The run ends
when every task is finished, or on Ctrl-C, which cancels the session.`,
	Example: `  focusassist run --task "Write report:2" --task "Email"
  focusassist run --demo`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runTasks     []string
	runDemo      bool
	runWork      time.Duration
	runBreak     time.Duration
	runLongBreak time.Duration
	runCheckIn   time.Duration
)

func init() {
	runCmd.Flags().StringArrayVarP(&runTasks, "task", "t", nil, `task to work on as "Title" or "Title:N" (repeatable)`)
	runCmd.Flags().BoolVar(&runDemo, "demo", false, "use second-scale intervals")
	runCmd.Flags().DurationVar(&runWork, "work", 0, "override the work interval")
	runCmd.Flags().DurationVar(&runBreak, "break", 0, "override the short break")
	runCmd.Flags().DurationVar(&runLongBreak, "long-break", 0, "override the long break")
	runCmd.Flags().DurationVar(&runCheckIn, "checkin", 0, "override the check-in interval")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	tasks, err := runTaskQueue(st)
	if err != nil {
		return err
	}
	tcfg, err := runTimerConfig(st)
	if err != nil {
		return err
	}

	logger := appLogger.With("component", "timer")
	timer, err := pomodoro.New(tcfg, tasks, pomodoro.WithLogger(logger))
	if err != nil {
		return err
	}
	sess, err := st.StartSession(tcfg)
	if err != nil {
		return err
	}
	rec := sessionlog.NewRecorder(st, sess.ID, timer, sessionlog.WithLogger(appLogger.Logger))

	out := &lockedWriter{w: cmd.OutOrStdout()}
	out.printf("session %d: %d task(s), work %s, break %s, long break %s every %d\n",
		sess.ID, len(tasks), tcfg.Work, tcfg.ShortBreak, tcfg.LongBreak, tcfg.PomosBeforeLongBreak)

	timer.OnStateChange(func(s pomodoro.State) {
		printTransition(out, timer, s)
	})

	var dispatcher *focus.Dispatcher
	if ds := detectors(appConfig.Focus); len(ds) > 0 {
		dispatcher = focus.NewDispatcher(ds, dispatcherOptions(appConfig.Focus))
		dispatcher.OnResult(rec.RecordSnapshot)
		dispatcher.OnResult(func(res focus.Result) {
			printResult(out, res)
		})
	}
	timer.OnCheckIn(func(ci pomodoro.CheckIn) {
		out.printf("  check-in %d at %s: %s\n", ci.Index, ci.Elapsed.Round(time.Second), ci.Task.Title)
		if dispatcher == nil {
			return
		}
		if err := dispatcher.Request(ci); err != nil {
			logger.Warn("check-in dropped", "index", ci.Index, "error", err)
		}
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec.Start()
	timer.Start()
	driveErr := pomodoro.Drive(ctx, timer, appConfig.Timer.PollInterval, nil)

	if dispatcher != nil {
		dispatcher.Stop()
	}
	if driveErr != nil {
		if err := rec.Close(); err != nil {
			return err
		}
		if errors.Is(driveErr, context.Canceled) {
			out.printf("interrupted: session %d cancelled after %d pomodoro(s)\n", sess.ID, timer.CompletedPomodoros())
			return nil
		}
		return driveErr
	}

	out.printf("done: %d pomodoro(s) completed\n", timer.CompletedPomodoros())
	for _, t := range timer.Tasks() {
		out.printf("  %-12s %d/%d  %s\n", t.Status, t.CompletedPomodoros, t.EstimatedPomodoros, t.Title)
	}
	return nil
}

// runTaskQueue builds the run's tasks from --task flags, saving them, or
// loads the open tasks from the store.
func runTaskQueue(st *store.Store) ([]pomodoro.Task, error) {
	if len(runTasks) == 0 {
		tasks, err := st.OpenTasks(pomodoro.MaxTasks)
		if err != nil {
			return nil, err
		}
		if len(tasks) == 0 {
			return nil, errors.New("no open tasks: add one with 'focusassist tasks add' or pass --task")
		}
		return tasks, nil
	}

	if len(runTasks) > pomodoro.MaxTasks {
		return nil, fmt.Errorf("%w: %d given", pomodoro.ErrTooManyTasks, len(runTasks))
	}
	tasks := make([]pomodoro.Task, 0, len(runTasks))
	for _, arg := range runTasks {
		title, n := parseTaskFlag(arg)
		task, err := pomodoro.NewTask(title, "", n)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", arg, err)
		}
		if _, err := st.CreateTask(task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// parseTaskFlag splits "Title:N". A suffix that is not a number belongs to
// the title, and the task gets one pomodoro.
func parseTaskFlag(arg string) (string, int) {
	if i := strings.LastIndex(arg, ":"); i >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(arg[i+1:])); err == nil {
			return arg[:i], n
		}
	}
	return arg, 1
}

func runTimerConfig(st *store.Store) (pomodoro.Config, error) {
	var cfg pomodoro.Config
	if runDemo || appConfig.Timer.Demo {
		cfg = pomodoro.DemoConfig()
	} else {
		var err error
		if cfg, err = st.TimerSettings(); err != nil {
			return cfg, err
		}
	}
	cfg.SkipDisplay = appConfig.Timer.SkipDisplay

	override := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	override(&cfg.Work, runWork)
	override(&cfg.ShortBreak, runBreak)
	override(&cfg.LongBreak, runLongBreak)
	override(&cfg.CheckInInterval, runCheckIn)
	return cfg, cfg.Validate()
}

func printTransition(out *lockedWriter, timer *pomodoro.Timer, s pomodoro.State) {
	if s == pomodoro.StateWork {
		if task, ok := timer.CurrentTask(); ok {
			out.printf("[%s] %s (%d/%d)\n", s, task.Title, task.CompletedPomodoros+1, task.EstimatedPomodoros)
			return
		}
	}
	out.printf("[%s]\n", s)
}

func printResult(out *lockedWriter, res focus.Result) {
	if res.Err != nil {
		out.printf("  focus %d: failed: %v\n", res.CheckIn.Index, res.Err)
		return
	}
	s := res.Snapshot
	out.printf("  focus %d: %s (%s, %s, confidence %.2f)\n", res.CheckIn.Index, s.Level, s.Category, s.Rating, s.Confidence)
}

// lockedWriter serializes output from the timer and focus worker goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}
