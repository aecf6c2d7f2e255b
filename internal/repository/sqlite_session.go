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

// SQLiteSessionRepo implements SessionRepo using a SQLite database.
type SQLiteSessionRepo struct {
	db db.DBTX
}

func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

const sessionColumns = `id, user_id, task_id, category_id, hourly_rate_cents, started_at, ended_at,
	duration_seconds, earnings_cents, is_active, created_at, updated_at`

const insertSession = `INSERT INTO tracked_sessions (` + sessionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func sessionArgs(s *domain.TrackedSession) []any {
	return []any{
		s.ID,
		s.UserID,
		s.TaskID,
		nullableString(s.CategoryID),
		s.HourlyRateCents,
		formatTime(s.StartedAt),
		nullableTime(s.EndedAt),
		s.DurationSeconds,
		s.EarningsCents,
		boolToInt(s.IsActive),
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	}
}

func (r *SQLiteSessionRepo) Create(ctx context.Context, s *domain.TrackedSession) error {
	if _, err := r.db.ExecContext(ctx, insertSession, sessionArgs(s)...); err != nil {
		return fmt.Errorf("inserting tracked session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) GetByID(ctx context.Context, id string) (*domain.TrackedSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM tracked_sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *SQLiteSessionRepo) Upsert(ctx context.Context, s *domain.TrackedSession) error {
	query := insertSession + `
		ON CONFLICT(id) DO UPDATE SET
			duration_seconds = excluded.duration_seconds,
			earnings_cents   = excluded.earnings_cents,
			updated_at       = excluded.updated_at
		WHERE tracked_sessions.is_active = 1`
	if _, err := r.db.ExecContext(ctx, query, sessionArgs(s)...); err != nil {
		return fmt.Errorf("upserting tracked session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) Finalize(ctx context.Context, s *domain.TrackedSession) error {
	if s.EndedAt == nil || s.IsActive {
		return fmt.Errorf("finalizing tracked session %s: record is not closed", s.ID)
	}
	query := insertSession + `
		ON CONFLICT(id) DO UPDATE SET
			ended_at         = excluded.ended_at,
			duration_seconds = excluded.duration_seconds,
			earnings_cents   = excluded.earnings_cents,
			is_active        = 0,
			updated_at       = excluded.updated_at
		WHERE tracked_sessions.is_active = 1`
	if _, err := r.db.ExecContext(ctx, query, sessionArgs(s)...); err != nil {
		return fmt.Errorf("finalizing tracked session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) ListActive(ctx context.Context, userID string) ([]*domain.TrackedSession, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+`
		FROM tracked_sessions WHERE user_id = ? AND is_active = 1
		ORDER BY started_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *SQLiteSessionRepo) ListFinalized(ctx context.Context, userID string, from, to *time.Time) ([]*domain.TrackedSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM tracked_sessions
		WHERE user_id = ? AND is_active = 0 AND ended_at IS NOT NULL`
	args := []any{userID}
	if from != nil {
		query += ` AND ended_at >= ?`
		args = append(args, formatTime(*from))
	}
	if to != nil {
		query += ` AND ended_at < ?`
		args = append(args, formatTime(*to))
	}
	query += ` ORDER BY ended_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing finalized sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *SQLiteSessionRepo) DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(ended_at, 1, 10) AS day,
		       COALESCE(SUM(earnings_cents), 0),
		       COALESCE(SUM(duration_seconds), 0),
		       COUNT(*)
		FROM tracked_sessions
		WHERE user_id = ? AND is_active = 0
		  AND ended_at >= ? AND ended_at < ?
		GROUP BY day
		ORDER BY day`,
		userID, formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("summing daily totals: %w", err)
	}
	defer rows.Close()

	var totals []domain.DailyTotal
	for rows.Next() {
		var d domain.DailyTotal
		if err := rows.Scan(&d.Date, &d.EarningsCents, &d.Seconds, &d.SessionCount); err != nil {
			return nil, fmt.Errorf("scanning daily total: %w", err)
		}
		totals = append(totals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily totals: %w", err)
	}
	return totals, nil
}

func (r *SQLiteSessionRepo) DeleteActive(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tracked_sessions WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return fmt.Errorf("deleting abandoned session: %w", err)
	}
	return nil
}

func scanSessions(rows *sql.Rows) ([]*domain.TrackedSession, error) {
	var sessions []*domain.TrackedSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(row rowScanner) (*domain.TrackedSession, error) {
	var s domain.TrackedSession
	var categoryID, endedAt sql.NullString
	var startedAt, createdAt, updatedAt string
	var active int

	err := row.Scan(
		&s.ID, &s.UserID, &s.TaskID, &categoryID, &s.HourlyRateCents, &startedAt, &endedAt,
		&s.DurationSeconds, &s.EarningsCents, &active, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tracked session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning tracked session: %w", err)
	}

	if categoryID.Valid {
		id := categoryID.String
		s.CategoryID = &id
	}
	s.IsActive = active != 0
	if s.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if s.EndedAt, err = parseNullableTime(endedAt, "ended_at"); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &s, nil
}
