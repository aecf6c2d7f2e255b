package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newTrackCmd(app *App) *cobra.Command {
	var categoryRef string
	var headless bool
	var reportEvery time.Duration

	cmd := &cobra.Command{
		Use:   "track [TASK]",
		Short: "Run live timers",
		Long: "Open the live timer screen. With --headless, track a single task\n" +
			"until interrupted, then stop and save it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task := ""
			if len(args) == 1 {
				task = args[0]
			}

			var categoryID *string
			if categoryRef != "" {
				c, err := app.Categories.Resolve(ctx, app.UserID, categoryRef)
				if err != nil {
					return err
				}
				categoryID = &c.ID
			}

			if headless {
				if task == "" {
					return fmt.Errorf("--headless needs a TASK argument")
				}
				return runHeadless(ctx, app, cmd.OutOrStdout(), task, categoryID, reportEvery)
			}
			if !app.interactive() {
				return fmt.Errorf("track needs an interactive terminal; use --headless")
			}

			p := tea.NewProgram(newTrackModel(ctx, app, task, categoryID), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err := p.Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&categoryRef, "category", "c", "", "Category name or ID for the timer's rate")
	cmd.Flags().BoolVar(&headless, "headless", false, "Track without the screen until interrupted")
	cmd.Flags().DurationVar(&reportEvery, "report-every", time.Minute, "Progress line interval in headless mode")

	return cmd
}

// runHeadless tracks one task on a plain ticker until ctx is cancelled,
// then stops the timer. The final write completes during shutdown.
func runHeadless(ctx context.Context, app *App, out io.Writer, task string, categoryID *string, reportEvery time.Duration) error {
	v, err := app.Tracking.StartTimer(ctx, task, categoryID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Tracking %s at %s. Press Ctrl+C to stop.\n", v.TaskID, formatter.Rate(app.Currency, v.HourlyRateCents))

	ticker := time.NewTicker(app.tickInterval())
	defer ticker.Stop()
	lastReport := app.now()

	for {
		select {
		case <-ctx.Done():
			res, err := app.Tracking.StopTimer(context.WithoutCancel(ctx), task)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nStopped %s: %s, %s\n", task, formatter.FormatSeconds(res.DurationSeconds), app.money(res.EarningsCents))
			return nil
		case <-ticker.C:
			snap := app.Tracking.Tick()
			if reportEvery <= 0 || app.now().Sub(lastReport) < reportEvery {
				continue
			}
			lastReport = app.now()
			for _, t := range snap.Timers {
				if t.TaskID != task {
					continue
				}
				st := app.Tracking.SyncStatus(task)
				fmt.Fprintf(out, "%s  %s  %s\n", formatter.Clock(t.Elapsed), app.money(t.EarningsCents),
					formatter.SyncIndicator(st.State, st.Attempts))
			}
		}
	}
}
