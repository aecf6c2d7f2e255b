package domain

import (
	"fmt"
	"math"
	"time"
)

// AnalyticsSnapshot holds finalized-session totals for one reporting period.
// It is derived on read and never persisted.
type AnalyticsSnapshot struct {
	Period        Period
	From          *time.Time // nil for PeriodTotal
	To            time.Time
	EarningsCents int64
	Seconds       int64
	SessionCount  int
}

func (a AnalyticsSnapshot) Hours() float64 {
	return float64(a.Seconds) / secondsPerHour
}

// AverageHourlyRateCents is total earnings over total hours, rounded to the
// nearest cent. Zero hours yields 0.
func (a AnalyticsSnapshot) AverageHourlyRateCents() int64 {
	if a.Seconds <= 0 {
		return 0
	}
	return int64(math.Round(float64(a.EarningsCents) * secondsPerHour / float64(a.Seconds)))
}

// AnalyticsReport groups the snapshots for every period at one instant.
type AnalyticsReport struct {
	UserID      string
	GeneratedAt time.Time
	Periods     []AnalyticsSnapshot
}

// Get returns the snapshot for p, or a zero snapshot if absent.
func (r *AnalyticsReport) Get(p Period) AnalyticsSnapshot {
	for _, s := range r.Periods {
		if s.Period == p {
			return s
		}
	}
	return AnalyticsSnapshot{Period: p, To: r.GeneratedAt}
}

// DailyTotal is one day of finalized-session totals, keyed by UTC date.
type DailyTotal struct {
	Date          string // YYYY-MM-DD
	EarningsCents int64
	Seconds       int64
	SessionCount  int
}

// PeriodStart returns the inclusive UTC start of p at now; nil for total.
// Weeks start on Monday.
func PeriodStart(p Period, now time.Time) (*time.Time, error) {
	today := UTCDay(now)
	var start time.Time
	switch p {
	case PeriodToday:
		start = today
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7 // days since Monday
		start = today.AddDate(0, 0, -offset)
	case PeriodMonth:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodTotal:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown period %q (want today, week, month or total)", p)
	}
	return &start, nil
}

// Summarize totals the finalized sessions whose end falls within p at now.
// Active sessions never count, whatever they have accrued.
func Summarize(p Period, sessions []*TrackedSession, now time.Time) (AnalyticsSnapshot, error) {
	from, err := PeriodStart(p, now)
	if err != nil {
		return AnalyticsSnapshot{}, err
	}
	snap := AnalyticsSnapshot{Period: p, From: from, To: now}
	for _, s := range sessions {
		if !s.IsFinalized() {
			continue
		}
		if from != nil && s.EndedAt.Before(*from) {
			continue
		}
		if s.EndedAt.After(now) {
			continue
		}
		snap.EarningsCents += s.EarningsCents
		snap.Seconds += s.DurationSeconds
		snap.SessionCount++
	}
	return snap, nil
}
