package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/db"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/repository"
)

type ledgerService struct {
	ledgers  repository.LedgerRepo
	sessions repository.SessionRepo
	uow      db.UnitOfWork
	clock    clock.Clock
	locks    keyedMutex
	observer UseCaseObserver
}

func NewLedgerService(
	ledgers repository.LedgerRepo,
	sessions repository.SessionRepo,
	uow db.UnitOfWork,
	clk clock.Clock,
	observers ...UseCaseObserver,
) LedgerService {
	return &ledgerService{
		ledgers:  ledgers,
		sessions: sessions,
		uow:      uow,
		clock:    clk,
		observer: useCaseObserverOrNoop(observers),
	}
}

// Get returns the user's ledger, or an empty one if nothing has been earned.
func (s *ledgerService) Get(ctx context.Context, userID string) (*domain.BalanceLedger, error) {
	return loadLedger(ctx, s.ledgers, userID)
}

func loadLedger(ctx context.Context, ledgers repository.LedgerRepo, userID string) (*domain.BalanceLedger, error) {
	l, err := ledgers.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewBalanceLedger(userID, time.Time{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return l, nil
}

func (s *ledgerService) ApplyFinalized(ctx context.Context, sess *domain.TrackedSession) (change domain.LedgerChange, applied bool, err error) {
	startedAt := time.Now()
	fields := map[string]any{"session_id": sess.ID, "earnings_cents": sess.EarningsCents}
	defer observe(ctx, s.observer, "apply-finalized-session", startedAt, fields, &err)

	if !sess.IsFinalized() {
		return change, false, fmt.Errorf("applying session %s: session is not finalized", sess.ID)
	}

	unlock := s.locks.lock(sess.UserID)
	defer unlock()

	now := s.clock.Now()
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		ledgers := repository.NewSQLiteLedgerRepo(tx)

		fresh, err := ledgers.MarkApplied(ctx, sess.UserID, sess.ID, sess.EarningsCents, now)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		l, err := loadLedger(ctx, ledgers, sess.UserID)
		if err != nil {
			return err
		}
		change = l.Apply(sess.EarningsCents, *sess.EndedAt)
		l.UpdatedAt = now
		if err := ledgers.Upsert(ctx, l); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return domain.LedgerChange{}, false, err
	}
	fields["applied"] = applied
	fields["target_achieved"] = change.TargetAchieved
	return change, applied, nil
}

// Recompute rebuilds the ledger from every finalized session and records
// each of them as applied, repairing any drift in the incremental totals.
func (s *ledgerService) Recompute(ctx context.Context, userID string) (l *domain.BalanceLedger, err error) {
	startedAt := time.Now()
	fields := map[string]any{"user_id": userID}
	defer observe(ctx, s.observer, "recompute-ledger", startedAt, fields, &err)

	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.clock.Now()
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		ledgers := repository.NewSQLiteLedgerRepo(tx)
		sessions := repository.NewSQLiteSessionRepo(tx)

		base, err := loadLedger(ctx, ledgers, userID)
		if err != nil {
			return err
		}
		finalized, err := sessions.ListFinalized(ctx, userID, nil, nil)
		if err != nil {
			return err
		}
		for _, sess := range finalized {
			if _, err := ledgers.MarkApplied(ctx, userID, sess.ID, sess.EarningsCents, now); err != nil {
				return err
			}
		}
		fields["session_count"] = len(finalized)

		l = domain.ReplayLedger(*base, finalized)
		l.UpdatedAt = now
		return ledgers.Upsert(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ledgerService) SetTarget(ctx context.Context, userID string, targetCents int64) (l *domain.BalanceLedger, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "set-target", startedAt, map[string]any{"target_cents": targetCents}, &err)

	if targetCents < 0 {
		return nil, fmt.Errorf("target must not be negative (got %s)", domain.FormatCents(targetCents))
	}
	return s.mutate(ctx, userID, func(l *domain.BalanceLedger, now time.Time) {
		l.SetTarget(targetCents, now)
	})
}

func (s *ledgerService) StartNewCycle(ctx context.Context, userID string) (l *domain.BalanceLedger, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "start-new-cycle", startedAt, nil, &err)

	return s.mutate(ctx, userID, func(l *domain.BalanceLedger, now time.Time) {
		l.StartNewCycle(now)
	})
}

func (s *ledgerService) mutate(ctx context.Context, userID string, fn func(*domain.BalanceLedger, time.Time)) (*domain.BalanceLedger, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var out *domain.BalanceLedger
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		ledgers := repository.NewSQLiteLedgerRepo(tx)
		l, err := loadLedger(ctx, ledgers, userID)
		if err != nil {
			return err
		}
		fn(l, s.clock.Now())
		out = l
		return ledgers.Upsert(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
