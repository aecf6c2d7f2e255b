package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
)

type CategoryRepo interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByName(ctx context.Context, userID, name string) (*domain.Category, error)
	List(ctx context.Context, userID string) ([]*domain.Category, error)
	UpdateRate(ctx context.Context, id string, hourlyRateCents int64, at time.Time) error
}

// SessionRepo is the durable session store behind the timer syncer.
type SessionRepo interface {
	// Create inserts a new active session record.
	Create(ctx context.Context, s *domain.TrackedSession) error
	GetByID(ctx context.Context, id string) (*domain.TrackedSession, error)
	// Upsert writes the running totals of an active session, inserting the
	// record if an earlier create never landed. A finalized record is left
	// untouched, so a late autosave can never reopen it.
	Upsert(ctx context.Context, s *domain.TrackedSession) error
	// Finalize closes the session, inserting it first if needed. It applies
	// at most once: finalizing an already finalized record changes nothing.
	Finalize(ctx context.Context, s *domain.TrackedSession) error
	ListActive(ctx context.Context, userID string) ([]*domain.TrackedSession, error)
	// ListFinalized returns finalized sessions whose ended_at lies in
	// [from, to). Nil bounds are open.
	ListFinalized(ctx context.Context, userID string, from, to *time.Time) ([]*domain.TrackedSession, error)
	DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyTotal, error)
	// DeleteActive removes an abandoned session. Finalized records are kept.
	DeleteActive(ctx context.Context, id string) error
}

type LedgerRepo interface {
	Get(ctx context.Context, userID string) (*domain.BalanceLedger, error)
	Upsert(ctx context.Context, l *domain.BalanceLedger) error
	// MarkApplied records that a session was folded into the user's ledger.
	// It returns false when the session had already been applied.
	MarkApplied(ctx context.Context, userID, sessionID string, earningsCents int64, at time.Time) (bool, error)
}
