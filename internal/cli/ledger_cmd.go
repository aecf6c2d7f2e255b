package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newLedgerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Balance, streaks and target progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showLedger(cmd, app)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the current balance ledger",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showLedger(cmd, app)
			},
		},
		newLedgerTargetCmd(app),
		newLedgerNewCycleCmd(app),
		newLedgerRecomputeCmd(app),
	)

	return cmd
}

func showLedger(cmd *cobra.Command, app *App) error {
	l, err := app.Ledger.Get(cmd.Context(), app.UserID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox("Ledger", renderLedger(app, l)))
	return nil
}

func renderLedger(app *App, l *domain.BalanceLedger) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s  %s\n", formatter.Dim(fmt.Sprintf("%-16s", label)), value)
	}

	row("Balance", formatter.Bold(app.money(l.CurrentBalanceCents)))
	row("Lifetime", app.money(l.LifetimeEarningsCents))
	if l.TargetBalanceCents > 0 {
		row("Target", app.money(l.TargetBalanceCents))
		row("Progress", formatter.RenderProgress(l.ProgressPercentage(), 24))
	} else {
		row("Target", formatter.Dim("not set"))
	}
	row("Streak", formatter.Streak(l.CurrentStreakDays))
	row("Best streak", formatter.Streak(l.BestStreakDays))
	row("Targets reached", fmt.Sprintf("%d", l.TargetsAchievedCount))
	if l.LastEarningDate != nil {
		row("Last earned", l.LastEarningDate.Format("Mon Jan 2, 2006"))
	}
	if !l.CycleStartedAt.IsZero() {
		row("Cycle started", l.CycleStartedAt.Local().Format("Jan 2, 2006 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func newLedgerTargetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "target AMOUNT",
		Short: "Set the balance target for the current cycle (0 clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := domain.ParseCents(args[0])
			if err != nil {
				return err
			}
			l, err := app.Ledger.SetTarget(cmd.Context(), app.UserID, cents)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cents == 0 {
				fmt.Fprintln(out, "Target cleared.")
				return nil
			}
			fmt.Fprintf(out, "Target set to %s  %s\n", app.money(cents), formatter.RenderProgress(l.ProgressPercentage(), 20))
			return nil
		},
	}
}

func newLedgerNewCycleCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "new-cycle",
		Short: "Zero the current balance and start a new target cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !yes {
				if !app.interactive() {
					return fmt.Errorf("starting a new cycle resets the balance; pass --yes to confirm")
				}
				l, err := app.Ledger.Get(ctx, app.UserID)
				if err != nil {
					return err
				}
				err = huh.NewConfirm().
					Title("Start a new cycle?").
					Description(fmt.Sprintf("The current balance of %s goes back to zero. Lifetime earnings are kept.",
						app.money(l.CurrentBalanceCents))).
					Affirmative("Start new cycle").
					Negative("Cancel").
					Value(&yes).
					Run()
				if err != nil {
					return err
				}
				if !yes {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			l, err := app.Ledger.StartNewCycle(ctx, app.UserID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "New cycle started %s. Lifetime earnings: %s\n",
				l.CycleStartedAt.Local().Format("Jan 2 15:04"), app.money(l.LifetimeEarningsCents))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func newLedgerRecomputeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild the ledger from every finalized session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			before, err := app.Ledger.Get(ctx, app.UserID)
			if err != nil {
				return err
			}
			after, err := app.Ledger.Recompute(ctx, app.UserID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if drift := after.LifetimeEarningsCents - before.LifetimeEarningsCents; drift != 0 {
				fmt.Fprintf(out, "Corrected lifetime earnings by %s\n", app.money(drift))
			} else {
				fmt.Fprintln(out, "Ledger was consistent.")
			}
			fmt.Fprintln(out, formatter.RenderBox("Ledger", renderLedger(app, after)))
			return nil
		},
	}
}
