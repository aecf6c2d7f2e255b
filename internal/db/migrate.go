package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// schemaVersion is recorded in PRAGMA user_version after all statements apply.
const schemaVersion = 1

// Migrate applies the schema. Every statement is idempotent, so re-running
// on an up-to-date database is a no-op.
func Migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading user_version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// ALTER TABLE ADD COLUMN has no IF NOT EXISTS form.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("writing user_version: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		name              TEXT NOT NULL,
		hourly_rate_cents INTEGER NOT NULL DEFAULT 0 CHECK(hourly_rate_cents >= 0),
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		UNIQUE(user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS tracked_sessions (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		task_id           TEXT NOT NULL,
		category_id       TEXT REFERENCES categories(id) ON DELETE SET NULL,
		hourly_rate_cents INTEGER NOT NULL DEFAULT 0,
		started_at        TEXT NOT NULL,
		ended_at          TEXT,
		duration_seconds  INTEGER NOT NULL DEFAULT 0 CHECK(duration_seconds >= 0),
		earnings_cents    INTEGER NOT NULL DEFAULT 0 CHECK(earnings_cents >= 0),
		is_active         INTEGER NOT NULL DEFAULT 1,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		CHECK(is_active = 1 OR ended_at IS NOT NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_active ON tracked_sessions(user_id, is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_ended ON tracked_sessions(user_id, ended_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_task ON tracked_sessions(task_id)`,
	`CREATE TABLE IF NOT EXISTS balance_ledgers (
		user_id                 TEXT PRIMARY KEY,
		current_balance_cents   INTEGER NOT NULL DEFAULT 0,
		lifetime_earnings_cents INTEGER NOT NULL DEFAULT 0,
		target_balance_cents    INTEGER NOT NULL DEFAULT 0 CHECK(target_balance_cents >= 0),
		current_streak_days     INTEGER NOT NULL DEFAULT 0,
		best_streak_days        INTEGER NOT NULL DEFAULT 0,
		last_earning_date       TEXT,
		targets_achieved_count  INTEGER NOT NULL DEFAULT 0,
		cycle_started_at        TEXT NOT NULL,
		updated_at              TEXT NOT NULL
	)`,
	// One row per session folded into a ledger; makes re-application a no-op.
	`CREATE TABLE IF NOT EXISTS ledger_applications (
		user_id        TEXT NOT NULL,
		session_id     TEXT NOT NULL,
		earnings_cents INTEGER NOT NULL,
		applied_at     TEXT NOT NULL,
		PRIMARY KEY (user_id, session_id)
	)`,
}
