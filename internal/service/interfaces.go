package service

import (
	"context"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/tracker"
)

type CategoryService interface {
	Create(ctx context.Context, userID, name string, hourlyRateCents int64) (*domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	// Resolve looks a category up by id first, then by name.
	Resolve(ctx context.Context, userID, ref string) (*domain.Category, error)
	List(ctx context.Context, userID string) ([]*domain.Category, error)
	UpdateRate(ctx context.Context, id string, hourlyRateCents int64) error
}

// TrackingService drives the live timers. Timer operations return state
// machine errors synchronously; persistence failures only show up in
// SyncStatus.
type TrackingService interface {
	StartTimer(ctx context.Context, taskID string, categoryID *string) (tracker.TimerView, error)
	PauseTimer(ctx context.Context, taskID string) (tracker.TimerView, error)
	ResumeTimer(ctx context.Context, taskID string) (tracker.TimerView, error)
	StopTimer(ctx context.Context, taskID string) (domain.StopResult, error)
	ResetTimer(ctx context.Context, taskID string) error
	Tick() tracker.Snapshot
	Snapshot() tracker.Snapshot
	SyncStatus(taskID string) tracker.SyncStatus

	// Recover lists active records with no live timer. When there are any it
	// also returns an error wrapping domain.ErrAmbiguousRecovery.
	Recover(ctx context.Context) ([]*domain.TrackedSession, error)
	ResumeRecovered(ctx context.Context, sessionID string) (tracker.TimerView, error)
	FinalizeRecovered(ctx context.Context, sessionID string) (*domain.TrackedSession, error)

	Flush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type LedgerService interface {
	Get(ctx context.Context, userID string) (*domain.BalanceLedger, error)
	// ApplyFinalized folds a finalized session into its user's ledger. It
	// reports applied=false when the session had already been folded in.
	ApplyFinalized(ctx context.Context, s *domain.TrackedSession) (change domain.LedgerChange, applied bool, err error)
	Recompute(ctx context.Context, userID string) (*domain.BalanceLedger, error)
	SetTarget(ctx context.Context, userID string, targetCents int64) (*domain.BalanceLedger, error)
	StartNewCycle(ctx context.Context, userID string) (*domain.BalanceLedger, error)
}

type AnalyticsService interface {
	GetAnalytics(ctx context.Context, userID string, period domain.Period) (*domain.AnalyticsSnapshot, error)
	GetAll(ctx context.Context, userID string) (*domain.AnalyticsReport, error)
	// DailyBreakdown returns one entry per UTC day in [from, to), zero
	// filled, for charting.
	DailyBreakdown(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyTotal, error)
}

type SessionService interface {
	ListFinalized(ctx context.Context, userID string, from, to *time.Time) ([]*domain.TrackedSession, error)
	ListActive(ctx context.Context, userID string) ([]*domain.TrackedSession, error)
	GetByID(ctx context.Context, id string) (*domain.TrackedSession, error)
}
