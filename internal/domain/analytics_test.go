package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-06-18 is a Wednesday.
var analyticsNow = time.Date(2025, 6, 18, 15, 30, 0, 0, time.UTC)

func TestPeriodStart(t *testing.T) {
	today, err := PeriodStart(PeriodToday, analyticsNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC), *today)

	week, err := PeriodStart(PeriodWeek, analyticsNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), *week)
	assert.Equal(t, time.Monday, week.Weekday())

	month, err := PeriodStart(PeriodMonth, analyticsNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *month)

	total, err := PeriodStart(PeriodTotal, analyticsNow)
	require.NoError(t, err)
	assert.Nil(t, total)

	_, err = PeriodStart(Period("year"), analyticsNow)
	assert.Error(t, err)
}

func TestPeriodStart_SundayBelongsToPreviousWeek(t *testing.T) {
	sunday := time.Date(2025, 6, 22, 8, 0, 0, 0, time.UTC)
	week, err := PeriodStart(PeriodWeek, sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), *week)
}

func TestSummarize_ExcludesActiveSessions(t *testing.T) {
	done := finalizedSession("done", analyticsNow.Add(-time.Hour), 6000)
	active := &TrackedSession{
		ID: "live", IsActive: true, StartedAt: analyticsNow.Add(-2 * time.Hour),
		DurationSeconds: 7200, EarningsCents: 12000,
	}

	snap, err := Summarize(PeriodToday, []*TrackedSession{done, active}, analyticsNow)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.SessionCount)
	assert.Equal(t, int64(6000), snap.EarningsCents)
	assert.InDelta(t, 1.0, snap.Hours(), 1e-9)
	assert.Equal(t, int64(6000), snap.AverageHourlyRateCents())
}

func TestSummarize_PeriodBoundaries(t *testing.T) {
	sessions := []*TrackedSession{
		finalizedSession("today", analyticsNow.Add(-time.Hour), 100),
		finalizedSession("monday", time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC), 200),
		finalizedSession("lastweek", time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), 400),
		finalizedSession("lastmonth", time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC), 800),
	}

	want := map[Period]int64{
		PeriodToday: 100,
		PeriodWeek:  300,
		PeriodMonth: 700,
		PeriodTotal: 1500,
	}
	for p, cents := range want {
		snap, err := Summarize(p, sessions, analyticsNow)
		require.NoError(t, err)
		assert.Equal(t, cents, snap.EarningsCents, "period %s", p)
	}
}

func TestSnapshot_AverageRateWithNoHours(t *testing.T) {
	snap := AnalyticsSnapshot{EarningsCents: 500}
	assert.Zero(t, snap.AverageHourlyRateCents())
	assert.Zero(t, snap.Hours())
}
