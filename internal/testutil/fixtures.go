package testutil

import (
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/google/uuid"
)

// TestUserID owns every fixture unless overridden.
const TestUserID = "user-1"

type CategoryOption func(*domain.Category)

func WithRateCents(cents int64) CategoryOption {
	return func(c *domain.Category) {
		c.HourlyRateCents = cents
	}
}

func WithCategoryUser(userID string) CategoryOption {
	return func(c *domain.Category) {
		c.UserID = userID
	}
}

func NewTestCategory(name string, opts ...CategoryOption) *domain.Category {
	now := time.Now().UTC().Truncate(time.Second)
	c := &domain.Category{
		ID:              uuid.New().String(),
		UserID:          TestUserID,
		Name:            name,
		HourlyRateCents: 6000,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type SessionOption func(*domain.TrackedSession)

func WithSessionUser(userID string) SessionOption {
	return func(s *domain.TrackedSession) {
		s.UserID = userID
	}
}

func WithCategory(c *domain.Category) SessionOption {
	return func(s *domain.TrackedSession) {
		id := c.ID
		s.CategoryID = &id
		s.HourlyRateCents = c.HourlyRateCents
	}
}

func WithStartedAt(t time.Time) SessionOption {
	return func(s *domain.TrackedSession) {
		s.StartedAt = t
		s.CreatedAt = t
		s.UpdatedAt = t
	}
}

// WithFinalized closes the session at endedAt with the given totals.
func WithFinalized(endedAt time.Time, durationSeconds, earningsCents int64) SessionOption {
	return func(s *domain.TrackedSession) {
		s.Finalize(endedAt, durationSeconds, earningsCents)
	}
}

// WithProgress sets the running totals of an active session.
func WithProgress(durationSeconds, earningsCents int64, at time.Time) SessionOption {
	return func(s *domain.TrackedSession) {
		s.DurationSeconds = durationSeconds
		s.EarningsCents = earningsCents
		s.UpdatedAt = at
	}
}

// NewTestSession returns an active session for taskID that started an hour
// ago. Apply WithStartedAt before WithFinalized or WithProgress.
func NewTestSession(taskID string, opts ...SessionOption) *domain.TrackedSession {
	started := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	s := &domain.TrackedSession{
		ID:        uuid.New().String(),
		UserID:    TestUserID,
		TaskID:    taskID,
		StartedAt: started,
		IsActive:  true,
		CreatedAt: started,
		UpdatedAt: started,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
