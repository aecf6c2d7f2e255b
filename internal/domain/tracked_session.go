package domain

import "time"

// TrackedSession is the durable record of a timer session. It is created
// active when the timer starts, updated in place by autosave, and finalized
// exactly once when the timer stops.
type TrackedSession struct {
	ID              string
	UserID          string
	TaskID          string
	CategoryID      *string
	HourlyRateCents int64
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds int64
	EarningsCents   int64
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsFinalized reports whether the session has been closed by a stop write.
func (s *TrackedSession) IsFinalized() bool {
	return !s.IsActive && s.EndedAt != nil
}

func (s *TrackedSession) Hours() float64 {
	return float64(s.DurationSeconds) / secondsPerHour
}

// Finalize closes the record with the given accounting.
func (s *TrackedSession) Finalize(endedAt time.Time, durationSeconds, earningsCents int64) {
	e := endedAt
	s.EndedAt = &e
	s.DurationSeconds = durationSeconds
	s.EarningsCents = earningsCents
	s.IsActive = false
	s.UpdatedAt = endedAt
}
