package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/repository"
)

type analyticsService struct {
	sessions repository.SessionRepo
	clock    clock.Clock
	observer UseCaseObserver
}

func NewAnalyticsService(sessions repository.SessionRepo, clk clock.Clock, observers ...UseCaseObserver) AnalyticsService {
	return &analyticsService{sessions: sessions, clock: clk, observer: useCaseObserverOrNoop(observers)}
}

func (s *analyticsService) GetAnalytics(ctx context.Context, userID string, period domain.Period) (snap *domain.AnalyticsSnapshot, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "get-analytics", startedAt, map[string]any{"period": string(period)}, &err)

	now := s.clock.Now()
	from, err := domain.PeriodStart(period, now)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListFinalized(ctx, userID, from, nil)
	if err != nil {
		return nil, fmt.Errorf("loading sessions for %s: %w", period, err)
	}
	out, err := domain.Summarize(period, sessions, now)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAll loads the finalized history once and summarizes every period
// against the same instant.
func (s *analyticsService) GetAll(ctx context.Context, userID string) (report *domain.AnalyticsReport, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "get-all-analytics", startedAt, nil, &err)

	now := s.clock.Now()
	sessions, err := s.sessions.ListFinalized(ctx, userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	report = &domain.AnalyticsReport{UserID: userID, GeneratedAt: now}
	for _, p := range domain.AllPeriods {
		snap, err := domain.Summarize(p, sessions, now)
		if err != nil {
			return nil, err
		}
		report.Periods = append(report.Periods, snap)
	}
	return report, nil
}

func (s *analyticsService) DailyBreakdown(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyTotal, error) {
	from, to = domain.UTCDay(from), domain.UTCDay(to)
	if !from.Before(to) {
		return nil, fmt.Errorf("daily breakdown: empty range %s..%s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	totals, err := s.sessions.DailyTotals(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]domain.DailyTotal, len(totals))
	for _, d := range totals {
		byDate[d.Date] = d
	}

	var out []domain.DailyTotal
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		d, ok := byDate[key]
		if !ok {
			d = domain.DailyTotal{Date: key}
		}
		out = append(out, d)
	}
	return out, nil
}
