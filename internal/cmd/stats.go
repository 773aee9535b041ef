package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/focusassist/internal/sessionlog"
	"github.com/sadopc/focusassist/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show focus statistics for a session",
	Long: `Show per-pomodoro focus statistics for a session (the latest by default):
the most common activity category, the average focus rating and the share
of check-ins judged productive. --days adds completed pomodoros per day.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var (
	statsSession  int64
	statsDays     int
	sessionsLimit int
)

func init() {
	statsCmd.Flags().Int64VarP(&statsSession, "session", "s", 0, "session ID (default latest)")
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "also show pomodoros per day for this many days")
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 10, "how many sessions to show")
	rootCmd.AddCommand(statsCmd, sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(sessionsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(out, "%4d  %s  %-9s  %2d pomodoros  work %s\n",
			s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"), s.Status, s.CompletedCount, seconds(s.WorkDuration))
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := resolveSession(st, statsSession)
	if err != nil {
		return err
	}
	events, err := st.ListEvents(sess.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSession(out, sess)
	printBlocks(out, sessionlog.Stats(events))

	if statsDays > 0 {
		y, m, d := time.Now().Date()
		to := time.Date(y, m, d+1, 0, 0, 0, 0, time.Local)
		from := to.AddDate(0, 0, -statsDays)
		days, err := st.GetDailyPomodoros(from, to)
		if err != nil {
			return err
		}
		printDays(out, days)
	}
	return nil
}

func printSession(out io.Writer, sess *store.PomodoroSession) {
	fmt.Fprintf(out, "SESSION %d (%s)\n", sess.ID, sess.Status)
	fmt.Fprintln(out, strings.Repeat("─", 50))
	fmt.Fprintf(out, "Started:   %s\n", sess.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Intervals: work %s, break %s, long break %s\n",
		seconds(sess.WorkDuration), seconds(sess.BreakDuration), seconds(sess.LongBreakDuration))
	fmt.Fprintf(out, "Completed: %d pomodoros\n", sess.CompletedCount)
	fmt.Fprintln(out)
}

func printBlocks(out io.Writer, blocks []sessionlog.Block) {
	fmt.Fprintln(out, "FOCUS")
	fmt.Fprintln(out, strings.Repeat("─", 50))
	if len(blocks) == 0 {
		fmt.Fprintln(out, "No focus snapshots recorded.")
		return
	}
	for _, b := range blocks {
		task := b.Task
		if task == "" {
			task = "-"
		}
		fmt.Fprintf(out, "Pomodoro %d  %s\n", b.Pomodoro, task)
		fmt.Fprintf(out, "  %d snapshots, mostly %s, focus %s, %.0f%% productive\n",
			b.Snapshots, orDash(b.Category), orDash(b.AvgFocus), b.PercentProductive)
	}
}

func printDays(out io.Writer, days []store.DailyPomodoros) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "DAILY")
	fmt.Fprintln(out, strings.Repeat("─", 50))
	if len(days) == 0 {
		fmt.Fprintln(out, "No completed pomodoros.")
		return
	}
	for _, d := range days {
		fmt.Fprintf(out, "%s  %3d pomodoros in %d sessions\n", d.Date, d.Completed, d.Sessions)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
