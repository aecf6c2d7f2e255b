package cli

import (
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newAnalyticsCmd(app *App) *cobra.Command {
	var period domain.Period
	var chart bool
	var days int

	cmd := &cobra.Command{
		Use:     "analytics",
		Aliases: []string{"stats"},
		Short:   "Earnings and hours per period",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var snaps []domain.AnalyticsSnapshot
			if period != "" {
				snap, err := app.Analytics.GetAnalytics(ctx, app.UserID, period)
				if err != nil {
					return err
				}
				snaps = append(snaps, *snap)
			} else {
				report, err := app.Analytics.GetAll(ctx, app.UserID)
				if err != nil {
					return err
				}
				snaps = report.Periods
			}
			fmt.Fprintln(out, formatter.RenderBox("Analytics", renderAnalytics(app, snaps)))

			if !chart {
				return nil
			}
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			to := domain.UTCDay(app.now()).AddDate(0, 0, 1)
			from := to.AddDate(0, 0, -days)
			totals, err := app.Analytics.DailyBreakdown(ctx, app.UserID, from, to)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("Daily earnings · last %d days", days)
			fmt.Fprintln(out, formatter.RenderBox(title, renderDailyChart(app, totals, 12)))
			return nil
		},
	}

	cmd.Flags().Var(newPeriodValue(&period), "period", "Only show one period: today, week, month or total")
	cmd.Flags().BoolVar(&chart, "chart", false, "Draw a daily earnings bar chart")
	cmd.Flags().IntVar(&days, "days", 14, "Days covered by --chart")

	return cmd
}

func renderAnalytics(app *App, snaps []domain.AnalyticsSnapshot) string {
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []string{
			formatter.PeriodLabel(s.Period),
			fmt.Sprintf("%d", s.SessionCount),
			formatter.FormatSeconds(s.Seconds),
			formatter.Bold(app.money(s.EarningsCents)),
			formatter.Rate(app.Currency, s.AverageHourlyRateCents()),
		})
	}
	return formatter.Table{
		Headers: []string{"PERIOD", "SESSIONS", "TIME", "EARNED", "AVG RATE"},
		Rows:    rows,
		Right:   map[int]bool{1: true, 2: true, 3: true, 4: true},
	}.Render()
}

// renderDailyChart draws one bar per day, scaled in whole currency units,
// followed by the range total and the best day.
func renderDailyChart(app *App, totals []domain.DailyTotal, height int) string {
	if len(totals) == 0 {
		return formatter.Dim("No data.")
	}

	bc := barchart.New(len(totals)*5, height)

	style := lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	empty := lipgloss.NewStyle().Foreground(formatter.ColorDim)
	var best domain.DailyTotal
	var total int64
	bars := make([]barchart.BarData, 0, len(totals))
	for _, d := range totals {
		s := style
		if d.EarningsCents == 0 {
			s = empty
		}
		bars = append(bars, barchart.BarData{
			Label:  dayLabel(d.Date),
			Values: []barchart.BarValue{{Name: "earned", Value: float64(d.EarningsCents) / 100, Style: s}},
		})
		if d.EarningsCents > best.EarningsCents {
			best = d
		}
		total += d.EarningsCents
	}
	bc.PushAll(bars)
	bc.Draw()

	summary := fmt.Sprintf("Total %s", formatter.Bold(app.money(total)))
	if best.EarningsCents > 0 {
		summary += formatter.Dim(fmt.Sprintf("  ·  best day %s (%s)", best.Date, app.money(best.EarningsCents)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, bc.View(), "", summary)
}

// dayLabel shortens a YYYY-MM-DD date to a bar label like "16".
func dayLabel(date string) string {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return day.Format("02")
}
