package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func day(n int) time.Time {
	return testNow.AddDate(0, 0, n)
}

func finalizedSession(id string, endedAt time.Time, cents int64) *TrackedSession {
	s := &TrackedSession{ID: id, UserID: "u1", TaskID: "t", StartedAt: endedAt.Add(-time.Hour)}
	s.Finalize(endedAt, 3600, cents)
	return s
}

func TestLedger_StreakConsecutiveDays(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	l.Apply(100, day(0))
	l.Apply(100, day(1))
	ch := l.Apply(100, day(2))
	assert.Equal(t, 3, ch.StreakDays)
	assert.Equal(t, 3, l.CurrentStreakDays)
	assert.Equal(t, 3, l.BestStreakDays)
}

func TestLedger_StreakSameDayDoesNotDoubleCount(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	l.Apply(100, day(0))
	l.Apply(100, day(0).Add(3*time.Hour))
	assert.Equal(t, 1, l.CurrentStreakDays)
	require.NotNil(t, l.LastEarningDate)
	assert.Equal(t, UTCDay(day(0)), *l.LastEarningDate)
}

func TestLedger_StreakResetsAfterGap(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	l.Apply(100, day(0))
	l.Apply(100, day(1))
	l.Apply(100, day(4))
	assert.Equal(t, 1, l.CurrentStreakDays)
	assert.Equal(t, 2, l.BestStreakDays)
}

func TestLedger_StreakUsesUTCCalendarDays(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	lateNight := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	earlyMorning := time.Date(2025, 6, 16, 0, 1, 0, 0, time.UTC)
	l.Apply(100, lateNight)
	l.Apply(100, earlyMorning)
	assert.Equal(t, 2, l.CurrentStreakDays)
}

func TestLedger_LateArrivalDoesNotMoveStreak(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	l.Apply(100, day(0))
	l.Apply(100, day(1))
	l.Apply(100, day(-3))
	assert.Equal(t, 2, l.CurrentStreakDays)
	assert.Equal(t, int64(300), l.CurrentBalanceCents)
}

func TestLedger_ZeroEarningsLeavesStreak(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	l.Apply(0, day(0))
	assert.Nil(t, l.LastEarningDate)
	assert.Zero(t, l.CurrentStreakDays)
}

func TestLedger_TargetCrossedOnce(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	l.SetTarget(1000, day(-10))

	assert.False(t, l.Apply(600, day(0)).TargetAchieved)
	assert.True(t, l.Apply(400, day(0)).TargetAchieved, "reaching exactly the target counts")
	assert.False(t, l.Apply(500, day(1)).TargetAchieved)
	assert.Equal(t, 1, l.TargetsAchievedCount)
	assert.Equal(t, float64(100), l.ProgressPercentage())
}

func TestLedger_NewCycleAllowsAnotherCrossing(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	l.SetTarget(1000, day(-10))
	l.Apply(1200, day(0))
	l.StartNewCycle(day(1))

	assert.Zero(t, l.CurrentBalanceCents)
	assert.Equal(t, int64(1200), l.LifetimeEarningsCents)
	assert.Less(t, l.CurrentBalanceCents, l.LifetimeEarningsCents)

	l.Apply(1000, day(2))
	assert.Equal(t, 2, l.TargetsAchievedCount)
}

func TestLedger_SessionBeforeCycleCountsLifetimeOnly(t *testing.T) {
	l := NewBalanceLedger("u1", day(-10))
	l.StartNewCycle(day(5))
	l.Apply(700, day(3))
	assert.Zero(t, l.CurrentBalanceCents)
	assert.Equal(t, int64(700), l.LifetimeEarningsCents)
}

func TestLedger_ProgressPercentage(t *testing.T) {
	l := NewBalanceLedger("u1", testNow)
	assert.Zero(t, l.ProgressPercentage(), "no target")
	l.SetTarget(4000, testNow)
	l.CurrentBalanceCents = 1000
	assert.InDelta(t, 25.0, l.ProgressPercentage(), 1e-9)
}

func TestReplayLedger_MatchesIncrementalInOrder(t *testing.T) {
	sessions := []*TrackedSession{
		finalizedSession("a", day(0), 500),
		finalizedSession("b", day(1), 250),
		finalizedSession("c", day(1).Add(time.Hour), 0),
		finalizedSession("d", day(3), 125),
	}
	inc := NewBalanceLedger("u1", day(-1))
	for _, s := range sessions {
		inc.Apply(s.EarningsCents, *s.EndedAt)
	}
	full := ReplayLedger(*NewBalanceLedger("u1", day(-1)), sessions)

	assert.Equal(t, inc.CurrentBalanceCents, full.CurrentBalanceCents)
	assert.Equal(t, inc.LifetimeEarningsCents, full.LifetimeEarningsCents)
	assert.Equal(t, inc.CurrentStreakDays, full.CurrentStreakDays)
	assert.Equal(t, inc.BestStreakDays, full.BestStreakDays)
	assert.Equal(t, inc.LastEarningDate, full.LastEarningDate)
}

func TestReplayLedger_SkipsActiveSessions(t *testing.T) {
	active := &TrackedSession{ID: "x", IsActive: true, EarningsCents: 999}
	full := ReplayLedger(*NewBalanceLedger("u1", day(-1)), []*TrackedSession{active})
	assert.Zero(t, full.LifetimeEarningsCents)
}

// TestLedger_BalanceIndependentOfCompletionOrder checks that the balance
// from incremental application equals the full replay for any ordering of
// session completions.
func TestLedger_BalanceIndependentOfCompletionOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 25).Draw(rt, "n")
		cycleStart := day(rapid.IntRange(-5, 5).Draw(rt, "cycle"))
		sessions := make([]*TrackedSession, n)
		for i := range sessions {
			end := day(rapid.IntRange(-10, 10).Draw(rt, "day"))
			cents := rapid.Int64Range(0, 50_000).Draw(rt, "cents")
			sessions[i] = finalizedSession(fmt.Sprintf("s%d", i), end, cents)
		}
		order := rapid.Permutation(sessions).Draw(rt, "order")

		inc := NewBalanceLedger("u1", cycleStart)
		for _, s := range order {
			inc.Apply(s.EarningsCents, *s.EndedAt)
		}
		full := ReplayLedger(*NewBalanceLedger("u1", cycleStart), sessions)

		if inc.CurrentBalanceCents != full.CurrentBalanceCents {
			rt.Fatalf("balance: incremental %d, full %d", inc.CurrentBalanceCents, full.CurrentBalanceCents)
		}
		if inc.LifetimeEarningsCents != full.LifetimeEarningsCents {
			rt.Fatalf("lifetime: incremental %d, full %d", inc.LifetimeEarningsCents, full.LifetimeEarningsCents)
		}
	})
}
