package cli

import (
	"time"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/service"
	"github.com/spf13/cobra"
)

// App holds the services and settings CLI commands run against.
type App struct {
	Categories service.CategoryService
	Tracking   service.TrackingService
	Ledger     service.LedgerService
	Analytics  service.AnalyticsService
	Sessions   service.SessionService

	UserID       string
	Currency     string
	TickInterval time.Duration
	Clock        clock.Clock

	// IsInteractive reports whether stdin is a terminal. Commands that
	// prompt fall back to flags when it is nil or returns false.
	IsInteractive func() bool
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) now() time.Time {
	if a.Clock == nil {
		return clock.Real{}.Now()
	}
	return a.Clock.Now()
}

func (a *App) money(cents int64) string {
	return formatter.Money(a.Currency, cents)
}

func (a *App) tickInterval() time.Duration {
	if a.TickInterval <= 0 {
		return time.Second
	}
	return a.TickInterval
}

// NewRootCmd creates the top-level "tally" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "tally",
		Short:         "Track time per task and keep an earnings ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTrackCmd(app),
		newCategoryCmd(app),
		newSessionCmd(app),
		newLedgerCmd(app),
		newAnalyticsCmd(app),
		newRecoverCmd(app),
	)

	return root
}
