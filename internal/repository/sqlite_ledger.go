package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/tally/internal/db"
	"github.com/alexanderramin/tally/internal/domain"
)

// SQLiteLedgerRepo implements LedgerRepo using a SQLite database.
type SQLiteLedgerRepo struct {
	db db.DBTX
}

func NewSQLiteLedgerRepo(conn db.DBTX) *SQLiteLedgerRepo {
	return &SQLiteLedgerRepo{db: conn}
}

func (r *SQLiteLedgerRepo) Get(ctx context.Context, userID string) (*domain.BalanceLedger, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, current_balance_cents, lifetime_earnings_cents,
		target_balance_cents, current_streak_days, best_streak_days, last_earning_date,
		targets_achieved_count, cycle_started_at, updated_at
		FROM balance_ledgers WHERE user_id = ?`, userID)

	var l domain.BalanceLedger
	var lastEarning sql.NullString
	var cycleStarted, updatedAt string
	err := row.Scan(
		&l.UserID,
		&l.CurrentBalanceCents,
		&l.LifetimeEarningsCents,
		&l.TargetBalanceCents,
		&l.CurrentStreakDays,
		&l.BestStreakDays,
		&lastEarning,
		&l.TargetsAchievedCount,
		&cycleStarted,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("balance ledger: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning balance ledger: %w", err)
	}
	if l.LastEarningDate, err = parseNullableTime(lastEarning, "last_earning_date"); err != nil {
		return nil, err
	}
	if l.CycleStartedAt, err = parseTime(cycleStarted, "cycle_started_at"); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *SQLiteLedgerRepo) Upsert(ctx context.Context, l *domain.BalanceLedger) error {
	query := `INSERT OR REPLACE INTO balance_ledgers (user_id, current_balance_cents,
		lifetime_earnings_cents, target_balance_cents, current_streak_days, best_streak_days,
		last_earning_date, targets_achieved_count, cycle_started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		l.UserID,
		l.CurrentBalanceCents,
		l.LifetimeEarningsCents,
		l.TargetBalanceCents,
		l.CurrentStreakDays,
		l.BestStreakDays,
		nullableTime(l.LastEarningDate),
		l.TargetsAchievedCount,
		formatTime(l.CycleStartedAt),
		formatTime(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting balance ledger: %w", err)
	}
	return nil
}

func (r *SQLiteLedgerRepo) MarkApplied(ctx context.Context, userID, sessionID string, earningsCents int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO ledger_applications
		(user_id, session_id, earnings_cents, applied_at) VALUES (?, ?, ?, ?)`,
		userID, sessionID, earningsCents, formatTime(at))
	if err != nil {
		return false, fmt.Errorf("recording ledger application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording ledger application: %w", err)
	}
	return n == 1, nil
}
