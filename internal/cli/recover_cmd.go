package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

const (
	recoverFinalize = "finalize"
	recoverLater    = "later"
)

func newRecoverCmd(app *App) *cobra.Command {
	var finalizeAll bool
	var finalizeIDs []string

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Resolve sessions left unfinished by a previous run",
		Long: "List sessions that were still active when tally last exited and\n" +
			"finalize them as of their last saved progress. To keep tracking one\n" +
			"instead, start `tally track` and resume it from there.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			orphans, err := app.Tracking.Recover(ctx)
			if err != nil && !errors.Is(err, domain.ErrAmbiguousRecovery) {
				return err
			}
			if len(orphans) == 0 {
				fmt.Fprintln(out, "Nothing to recover.")
				return nil
			}
			fmt.Fprintln(out, formatter.RenderBox("Unfinished sessions", orphanTable(app, orphans)))

			var chosen []*domain.TrackedSession
			switch {
			case finalizeAll:
				chosen = orphans
			case len(finalizeIDs) > 0:
				byID := make(map[string]*domain.TrackedSession, len(orphans))
				for _, o := range orphans {
					byID[o.ID] = o
				}
				for _, id := range finalizeIDs {
					o, ok := byID[id]
					if !ok {
						return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
					}
					chosen = append(chosen, o)
				}
			case app.interactive():
				chosen, err = promptRecovery(app, orphans)
				if err != nil {
					return err
				}
			default:
				fmt.Fprintln(out, formatter.Dim("Pass --all or --finalize ID to close them, or resume from `tally track`."))
				return nil
			}

			return finalizeOrphans(cmd, app, out, chosen)
		},
	}

	cmd.Flags().BoolVar(&finalizeAll, "all", false, "Finalize every unfinished session")
	cmd.Flags().StringSliceVar(&finalizeIDs, "finalize", nil, "Finalize the given session IDs")
	cmd.MarkFlagsMutuallyExclusive("all", "finalize")

	return cmd
}

// promptRecovery asks what to do with each orphan and returns the ones to
// finalize.
func promptRecovery(app *App, orphans []*domain.TrackedSession) ([]*domain.TrackedSession, error) {
	choices := make([]string, len(orphans))
	fields := make([]huh.Field, 0, len(orphans))
	for i, o := range orphans {
		choices[i] = recoverFinalize
		fields = append(fields, huh.NewSelect[string]().
			Title(fmt.Sprintf("%s · %s saved, %s earned", o.TaskID,
				formatter.FormatSeconds(o.DurationSeconds), app.money(o.EarningsCents))).
			Options(
				huh.NewOption("Finalize as of last save", recoverFinalize),
				huh.NewOption("Leave for later", recoverLater),
			).
			Value(&choices[i]))
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, err
	}

	var chosen []*domain.TrackedSession
	for i, o := range orphans {
		if choices[i] == recoverFinalize {
			chosen = append(chosen, o)
		}
	}
	return chosen, nil
}

func finalizeOrphans(cmd *cobra.Command, app *App, out io.Writer, orphans []*domain.TrackedSession) error {
	var errs []error
	for _, o := range orphans {
		rec, err := app.Tracking.FinalizeRecovered(cmd.Context(), o.ID)
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(out, "%s %s: %v\n", formatter.StyleRed.Render("✖"), o.TaskID, err)
			continue
		}
		fmt.Fprintf(out, "%s %s finalized: %s, %s\n", formatter.StyleGreen.Render("✔"), rec.TaskID,
			formatter.FormatSeconds(rec.DurationSeconds), app.money(rec.EarningsCents))
	}
	return errors.Join(errs...)
}

func orphanTable(app *App, orphans []*domain.TrackedSession) string {
	now := app.now()
	rows := make([][]string, 0, len(orphans))
	for _, o := range orphans {
		rows = append(rows, []string{
			o.ID,
			o.TaskID,
			formatter.HumanTimestamp(o.UpdatedAt, now),
			formatter.FormatSeconds(o.DurationSeconds),
			app.money(o.EarningsCents),
		})
	}
	return formatter.Table{
		Headers: []string{"SESSION", "TASK", "LAST SAVED", "TIME", "EARNED"},
		Rows:    rows,
		Right:   map[int]bool{3: true, 4: true},
	}.Render()
}
