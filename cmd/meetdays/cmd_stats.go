package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"meetdays/internal/stats"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7"))
	labelStyle = lipgloss.NewStyle().Faint(true).Width(10)
	valueStyle = lipgloss.NewStyle().Bold(true)
	metStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A"))
	missStyle  = lipgloss.NewStyle().Faint(true)
)

func statsCmd(a *app) *cobra.Command {
	var (
		year, month int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show streaks and attendance ratios for the local set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closer, err := a.openStore()
			if err != nil {
				return err
			}
			defer closer.Close()

			dates := st.Load()
			eng := a.engine()
			sum := eng.Summarize(dates)
			if year > 0 {
				sum.Year = year
				sum.YearRatio = eng.RatioYear(dates, year)
				if month == 0 {
					sum.Month = 0
				}
			}
			if month > 0 {
				if month > 12 {
					return fmt.Errorf("month must be 1-12, got %d", month)
				}
				sum.Month = month
				sum.MonthRatio = eng.RatioMonth(dates, sum.Year, month)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			renderSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Year for the yearly ratio (default: current year)")
	cmd.Flags().IntVar(&month, "month", 0, "Month (1-12) for the monthly ratio (default: current month)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderSummary(w io.Writer, s stats.Summary) {
	row := func(label, value string) string {
		return labelStyle.Render(label) + " " + valueStyle.Render(value)
	}

	lines := []string{
		titleStyle.Render("Meet days"),
		row("Today", s.Today),
		row("Total", plural(s.Total, "day")),
		row("Streak", fmt.Sprintf("%s (longest %d)", plural(s.CurrentStreak, "day"), s.LongestStreak)),
		row("Last 30", percent(s.Last30)),
		row("Last 365", percent(s.Last365)),
		row(strconv.Itoa(s.Year), percent(s.YearRatio)),
	}
	if s.Month > 0 {
		lines = append(lines, row(fmt.Sprintf("%d-%02d", s.Year, s.Month), percent(s.MonthRatio)))
	}
	if len(s.Years) > 0 {
		ys := make([]string, 0, len(s.Years))
		for _, y := range s.Years {
			ys = append(ys, strconv.Itoa(y))
		}
		lines = append(lines, row("Years", strings.Join(ys, ", ")))
	}
	if len(s.Recent) > 0 {
		var strip strings.Builder
		for _, d := range s.Recent {
			if d.Met {
				strip.WriteString(metStyle.Render("■"))
			} else {
				strip.WriteString(missStyle.Render("·"))
			}
		}
		lines = append(lines, labelStyle.Render("Recent")+" "+strip.String())
	}

	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func percent(r float64) string {
	return fmt.Sprintf("%.1f%%", r*100)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
