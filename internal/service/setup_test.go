package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/db"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/repository"
	"github.com/alexanderramin/tally/internal/testutil"
	"github.com/alexanderramin/tally/internal/tracker"
	"github.com/stretchr/testify/require"
)

// wednesday is a mid-week instant so week and month bounds differ from today.
var wednesday = time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)

type harness struct {
	db         *sql.DB
	clock      *clock.Fake
	categories repository.CategoryRepo
	sessions   *repository.SQLiteSessionRepo
	store      *testutil.FlakySessionStore
	ledgers    repository.LedgerRepo
	uow        db.UnitOfWork

	categorySvc  CategoryService
	ledgerSvc    LedgerService
	analyticsSvc AnalyticsService
	tracking     TrackingService
}

func testTrackerConfig() tracker.SyncerConfig {
	return tracker.SyncerConfig{
		UserID:        testutil.TestUserID,
		AutosaveEvery: 1,
		RetryInitial:  time.Millisecond,
		RetryMax:      4 * time.Millisecond,
		WriteTimeout:  2 * time.Second,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, testutil.NewTestDB(t), clock.NewFake(wednesday))
}

// newHarnessOn builds every service over database, as a fresh process would.
func newHarnessOn(t *testing.T, database *sql.DB, clk *clock.Fake) *harness {
	t.Helper()
	h := &harness{
		db:         database,
		clock:      clk,
		categories: repository.NewSQLiteCategoryRepo(database),
		sessions:   repository.NewSQLiteSessionRepo(database),
		ledgers:    repository.NewSQLiteLedgerRepo(database),
		uow:        testutil.NewTestUoW(database),
	}
	h.store = testutil.NewFlakySessionStore(h.sessions)
	h.categorySvc = NewCategoryService(h.categories, clk)
	h.ledgerSvc = NewLedgerService(h.ledgers, h.sessions, h.uow, clk)
	h.analyticsSvc = NewAnalyticsService(h.sessions, clk)
	h.tracking = NewTrackingService(testTrackerConfig(), clk, h.categories, h.store, h.ledgerSvc, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.tracking.Shutdown(ctx)
	})
	return h
}

func (h *harness) category(t *testing.T, name string, rateCents int64) *domain.Category {
	t.Helper()
	c, err := h.categorySvc.Create(context.Background(), testutil.TestUserID, name, rateCents)
	require.NoError(t, err)
	return c
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.tracking.Flush(ctx))
}

// tickFor advances the clock by d in steps of at most a minute, ticking
// after each step.
func (h *harness) tickFor(d time.Duration) tracker.Snapshot {
	var snap tracker.Snapshot
	for d > 0 {
		step := min(d, time.Minute)
		h.clock.Advance(step)
		snap = h.tracking.Tick()
		d -= step
	}
	return snap
}

// finalized stores a finalized session directly, bypassing the timers.
func (h *harness) finalized(t *testing.T, endedAt time.Time, seconds, cents int64) *domain.TrackedSession {
	t.Helper()
	s := testutil.NewTestSession("task", testutil.WithStartedAt(endedAt.Add(-time.Duration(seconds)*time.Second)),
		testutil.WithFinalized(endedAt, seconds, cents))
	require.NoError(t, h.sessions.Finalize(context.Background(), s))
	return s
}
