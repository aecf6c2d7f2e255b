package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexanderramin/tally/internal/cli"
	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/config"
	"github.com/alexanderramin/tally/internal/db"
	"github.com/alexanderramin/tally/internal/repository"
	"github.com/alexanderramin/tally/internal/service"
	"github.com/alexanderramin/tally/internal/tracker"
	"github.com/mattn/go-isatty"
)

// shutdownGrace bounds how long exit waits for pending session writes.
const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser, err := cfg.OpenLogger()
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logCloser.Close()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	clk := clock.Real{}
	observer := service.NewLogUseCaseObserver(logger)

	// Wire repositories
	categoryRepo := repository.NewSQLiteCategoryRepo(database)
	sessionRepo := repository.NewSQLiteSessionRepo(database)
	ledgerRepo := repository.NewSQLiteLedgerRepo(database)

	// Wire unit of work for ledger updates
	uow := db.NewSQLiteUnitOfWork(database)

	ledgerSvc := service.NewLedgerService(ledgerRepo, sessionRepo, uow, clk, observer)
	trackingSvc := service.NewTrackingService(tracker.SyncerConfig{
		UserID:        cfg.UserID,
		AutosaveEvery: cfg.AutosaveEvery,
		RetryInitial:  cfg.RetryInitial,
		RetryMax:      cfg.RetryMax,
		WriteTimeout:  cfg.WriteTimeout,
	}, clk, categoryRepo, sessionRepo, ledgerSvc, logger, observer)

	app := &cli.App{
		Categories:   service.NewCategoryService(categoryRepo, clk, observer),
		Tracking:     trackingSvc,
		Ledger:       ledgerSvc,
		Analytics:    service.NewAnalyticsService(sessionRepo, clk, observer),
		Sessions:     service.NewSessionService(sessionRepo),
		UserID:       cfg.UserID,
		Currency:     cfg.Currency,
		TickInterval: cfg.TickInterval,
		Clock:        clk,
	}
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := cli.NewRootCmd(app).ExecuteContext(ctx)

	// Pending autosaves and finalizes land before the store closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	stopSpinner := formatter.StartSpinner(os.Stderr, "saving sessions", 300*time.Millisecond)
	shutdownErr := trackingSvc.Shutdown(shutdownCtx)
	stopSpinner()
	if shutdownErr != nil {
		logger.Error("shutdown left writes pending", "error", shutdownErr)
		if runErr == nil {
			return fmt.Errorf("saving sessions: %w", shutdownErr)
		}
	}
	return runErr
}
