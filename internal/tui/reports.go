package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/focusassist/internal/sessionlog"
	"github.com/sadopc/focusassist/internal/store"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportWeekly
)

type reportsModel struct {
	store  *store.Store
	width  int
	height int

	mode   reportMode
	days   []store.DailyPomodoros
	offset int // weeks or 7-day blocks offset from today (0 = current)

	session *store.PomodoroSession
	blocks  []sessionlog.Block

	chart barchart.Model
}

func newReportsModel(s *store.Store) reportsModel {
	return reportsModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	days    []store.DailyPomodoros
	session *store.PomodoroSession
	blocks  []sessionlog.Block
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := r.dateRange()
		days, _ := r.store.GetDailyPomodoros(from, to)
		msg := reportsDataMsg{days: days}
		if sess, err := r.store.LatestSession(); err == nil {
			msg.session = sess
			if events, err := r.store.ListEvents(sess.ID); err == nil {
				msg.blocks = sessionlog.Stats(events)
			}
		}
		return msg
	}
}

func (r reportsModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch r.mode {
	case reportWeekly:
		// Start of current week (Monday)
		weekday := today.Weekday()
		if weekday == time.Sunday {
			weekday = 7
		}
		startOfWeek := today.AddDate(0, 0, -int(weekday-time.Monday))
		startOfWeek = startOfWeek.AddDate(0, 0, -7*r.offset)
		return startOfWeek, startOfWeek.AddDate(0, 0, 7)
	default:
		// Daily: last 7 days
		end := today.AddDate(0, 0, 1-7*r.offset)
		start := end.AddDate(0, 0, -7)
		return start, end
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.days = msg.days
		r.session = msg.session
		r.blocks = msg.blocks
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Mode):
			if r.mode == reportDaily {
				r.mode = reportWeekly
			} else {
				r.mode = reportDaily
			}
			r.offset = 0
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if r.height > 30 {
		chartHeight = 14
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	from, to := r.dateRange()
	byDate := make(map[string]int, len(r.days))
	for _, d := range r.days {
		byDate[d.Date] = d.Completed
	}

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		n := byDate[d.Format("2006-01-02")]
		style := lipgloss.NewStyle().Foreground(colorAccent)
		if n == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: []barchart.BarValue{{Name: "pomodoros", Value: float64(n), Style: style}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	// Mode tabs
	dailyTab := inactiveTabStyle.Render("Daily")
	weeklyTab := inactiveTabStyle.Render("Weekly")
	if r.mode == reportDaily {
		dailyTab = activeTabStyle.Render("Daily")
	} else {
		weeklyTab = activeTabStyle.Render("Weekly")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, weeklyTab)

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate  m: switch mode")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderTotals(), "", r.renderBlocks(w), "", nav,
		),
	)
}

func (r reportsModel) renderTotals() string {
	total, sessions := 0, 0
	for _, d := range r.days {
		total += d.Completed
		sessions += d.Sessions
	}
	if sessions == 0 {
		return mutedStyle.Render("  No sessions in this period")
	}
	return fmt.Sprintf("  %s pomodoros in %d sessions",
		highlightStyle.Bold(true).Render(fmt.Sprint(total)), sessions)
}

func (r reportsModel) renderBlocks(w int) string {
	if r.session == nil {
		return mutedStyle.Render("  No sessions recorded yet")
	}

	var rows []string
	rows = append(rows, titleStyle.Render(fmt.Sprintf("  Last session #%d", r.session.ID))+
		mutedStyle.Render(fmt.Sprintf("  %s, %d pomodoros, %s",
			r.session.StartedAt.Local().Format("Jan 02 15:04"), r.session.CompletedCount, r.session.Status)))

	if len(r.blocks) == 0 {
		rows = append(rows, mutedStyle.Render("  No focus snapshots"))
		return strings.Join(rows, "\n")
	}

	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-4s %-28s %6s %-12s %-8s %11s", "#", "Task", "Snaps", "Category", "Focus", "Productive")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 74))))
	for _, b := range r.blocks {
		rows = append(rows, fmt.Sprintf("  %-4d %-28s %6d %-12s %s %10.0f%%",
			b.Pomodoro, truncate(b.Task, 28), b.Snapshots, b.Category,
			focusStyle(b.AvgFocus).Render(fmt.Sprintf("%-8s", b.AvgFocus)), b.PercentProductive))
	}
	return strings.Join(rows, "\n")
}

func focusStyle(rating string) lipgloss.Style {
	switch rating {
	case "high":
		return successStyle
	case "medium":
		return warningStyle
	default:
		return errorStyle
	}
}
