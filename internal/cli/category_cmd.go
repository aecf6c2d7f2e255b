package cli

import (
	"fmt"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/spf13/cobra"
)

func newCategoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage rate-bearing categories",
	}

	cmd.AddCommand(
		newCategoryAddCmd(app),
		newCategoryListCmd(app),
		newCategoryRateCmd(app),
	)

	return cmd
}

func newCategoryAddCmd(app *App) *cobra.Command {
	var rate int64

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a category with an hourly rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Categories.Create(cmd.Context(), app.UserID, args[0], rate)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %s at %s (%s)\n",
				formatter.Bold(c.Name), formatter.Rate(app.Currency, c.HourlyRateCents), formatter.TruncID(c.ID))
			return nil
		},
	}

	cmd.Flags().Var(newCentsValue(&rate), "rate", "Hourly rate, e.g. 60 or 42.50")
	_ = cmd.MarkFlagRequired("rate")

	return cmd
}

func newCategoryListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := app.Categories.List(cmd.Context(), app.UserID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cats) == 0 {
				fmt.Fprintln(out, "No categories yet. Add one with: tally category add NAME --rate 60")
				return nil
			}

			rows := make([][]string, 0, len(cats))
			for _, c := range cats {
				rows = append(rows, []string{
					formatter.TruncID(c.ID),
					c.Name,
					formatter.Rate(app.Currency, c.HourlyRateCents),
				})
			}
			table := formatter.Table{
				Headers: []string{"ID", "NAME", "RATE"},
				Rows:    rows,
				Right:   map[int]bool{2: true},
			}
			fmt.Fprintln(out, formatter.RenderBox("Categories", table.Render()))
			return nil
		},
	}
}

func newCategoryRateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rate CATEGORY AMOUNT",
		Short: "Change a category's hourly rate for future timers",
		Long: "Change a category's hourly rate. Timers already running keep the\n" +
			"rate they started with.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := app.Categories.Resolve(ctx, app.UserID, args[0])
			if err != nil {
				return err
			}
			cents, err := domain.ParseCents(args[1])
			if err != nil {
				return err
			}
			if err := app.Categories.UpdateRate(ctx, c.ID, cents); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s → %s\n", c.Name,
				formatter.Rate(app.Currency, c.HourlyRateCents), formatter.Rate(app.Currency, cents))
			return nil
		},
	}
}
