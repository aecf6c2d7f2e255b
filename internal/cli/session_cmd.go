package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect tracked sessions",
	}

	cmd.AddCommand(
		newSessionListCmd(app),
		newSessionShowCmd(app),
	)

	return cmd
}

func newSessionListCmd(app *App) *cobra.Command {
	period := domain.PeriodWeek
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List finalized sessions for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var sessions []*domain.TrackedSession
			var err error
			title := "Sessions · " + formatter.PeriodLabel(period)
			if active {
				title = "Unfinished sessions"
				sessions, err = app.Sessions.ListActive(ctx, app.UserID)
			} else {
				sessions, err = listPeriod(ctx, app, period)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			fmt.Fprintln(out, formatter.RenderBox(title, sessionTable(ctx, app, sessions)))
			return nil
		},
	}

	cmd.Flags().Var(newPeriodValue(&period), "period", "today, week, month or total")
	cmd.Flags().BoolVar(&active, "active", false, "Show records that were never finalized")

	return cmd
}

func newSessionShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one session record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.Sessions.GetByID(ctx, args[0])
			if err != nil {
				return err
			}

			state := formatter.StyleGreen.Render("finalized")
			ended := "–"
			if s.IsActive {
				state = formatter.StyleYellow.Render("active")
			}
			if s.EndedAt != nil {
				ended = s.EndedAt.Local().Format("Jan 2 15:04:05")
			}

			lines := []string{
				fmt.Sprintf("%s  %s", formatter.Dim("ID       "), s.ID),
				fmt.Sprintf("%s  %s", formatter.Dim("Task     "), formatter.Bold(s.TaskID)),
				fmt.Sprintf("%s  %s", formatter.Dim("Category "), categoryName(ctx, app, s.CategoryID)),
				fmt.Sprintf("%s  %s", formatter.Dim("Rate     "), formatter.Rate(app.Currency, s.HourlyRateCents)),
				fmt.Sprintf("%s  %s", formatter.Dim("Started  "), s.StartedAt.Local().Format("Jan 2 15:04:05")),
				fmt.Sprintf("%s  %s", formatter.Dim("Ended    "), ended),
				fmt.Sprintf("%s  %s", formatter.Dim("Duration "), formatter.FormatSeconds(s.DurationSeconds)),
				fmt.Sprintf("%s  %s", formatter.Dim("Earned   "), app.money(s.EarningsCents)),
				fmt.Sprintf("%s  %s", formatter.Dim("State    "), state),
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox("Session", strings.Join(lines, "\n")))
			return nil
		},
	}
}

func listPeriod(ctx context.Context, app *App, period domain.Period) ([]*domain.TrackedSession, error) {
	from, err := domain.PeriodStart(period, app.now())
	if err != nil {
		return nil, err
	}
	return app.Sessions.ListFinalized(ctx, app.UserID, from, nil)
}

func sessionTable(ctx context.Context, app *App, sessions []*domain.TrackedSession) string {
	now := app.now()
	rows := make([][]string, 0, len(sessions))
	var totalSecs, totalCents int64
	for _, s := range sessions {
		when := s.UpdatedAt
		if s.EndedAt != nil {
			when = *s.EndedAt
		}
		rows = append(rows, []string{
			formatter.TruncID(s.ID),
			s.TaskID,
			categoryName(ctx, app, s.CategoryID),
			formatter.HumanTimestamp(when, now),
			formatter.FormatSeconds(s.DurationSeconds),
			app.money(s.EarningsCents),
		})
		totalSecs += s.DurationSeconds
		totalCents += s.EarningsCents
	}
	rows = append(rows, []string{
		"", formatter.Bold("Total"), "", "",
		formatter.Bold(formatter.FormatSeconds(totalSecs)),
		formatter.Bold(app.money(totalCents)),
	})
	return formatter.Table{
		Headers: []string{"ID", "TASK", "CATEGORY", "WHEN", "TIME", "EARNED"},
		Rows:    rows,
		Right:   map[int]bool{4: true, 5: true},
	}.Render()
}

// categoryName resolves a category reference for display. Deleted or
// missing categories render as a dash.
func categoryName(ctx context.Context, app *App, id *string) string {
	if id == nil {
		return formatter.Dim("–")
	}
	c, err := app.Categories.GetByID(ctx, *id)
	if err != nil {
		return formatter.Dim("–")
	}
	return c.Name
}
