package domain

import (
	"sort"
	"time"
)

// BalanceLedger is a user's running earnings balance, streaks and target
// progress. Only the ledger aggregator mutates it.
//
// LifetimeEarningsCents >= CurrentBalanceCents does not hold in general:
// StartNewCycle zeroes the current balance while lifetime keeps growing.
type BalanceLedger struct {
	UserID                string
	CurrentBalanceCents   int64
	LifetimeEarningsCents int64
	TargetBalanceCents    int64
	CurrentStreakDays     int
	BestStreakDays        int
	LastEarningDate       *time.Time
	TargetsAchievedCount  int
	CycleStartedAt        time.Time
	UpdatedAt             time.Time
}

// LedgerChange describes the effect of applying one finalized session.
type LedgerChange struct {
	EarningsCents  int64
	StreakDays     int
	TargetAchieved bool
}

// NewBalanceLedger returns an empty ledger whose cycle starts at
// cycleStart. A zero cycleStart gives a first cycle with no lower bound.
func NewBalanceLedger(userID string, cycleStart time.Time) *BalanceLedger {
	return &BalanceLedger{UserID: userID, CycleStartedAt: cycleStart, UpdatedAt: cycleStart}
}

// ProgressPercentage is min(current/target*100, 100), or 0 without a target.
func (l *BalanceLedger) ProgressPercentage() float64 {
	if l.TargetBalanceCents <= 0 || l.CurrentBalanceCents <= 0 {
		return 0
	}
	pct := float64(l.CurrentBalanceCents) / float64(l.TargetBalanceCents) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// TargetReached reports whether the current balance is at or above a set target.
func (l *BalanceLedger) TargetReached() bool {
	return l.TargetBalanceCents > 0 && l.CurrentBalanceCents >= l.TargetBalanceCents
}

// Apply folds one finalized session's earnings into the ledger.
// Sessions that ended before the current cycle started count toward
// lifetime earnings only. Zero-earning sessions leave streaks untouched.
func (l *BalanceLedger) Apply(earningsCents int64, endedAt time.Time) LedgerChange {
	change := LedgerChange{EarningsCents: earningsCents}
	if earningsCents <= 0 {
		change.StreakDays = l.CurrentStreakDays
		return change
	}

	wasReached := l.TargetReached()
	l.LifetimeEarningsCents += earningsCents
	if !endedAt.Before(l.CycleStartedAt) {
		l.CurrentBalanceCents += earningsCents
	}
	if !wasReached && l.TargetReached() {
		l.TargetsAchievedCount++
		change.TargetAchieved = true
	}

	l.advanceStreak(UTCDay(endedAt))
	change.StreakDays = l.CurrentStreakDays
	return change
}

// advanceStreak applies the UTC calendar-day streak rule for an earning on day.
func (l *BalanceLedger) advanceStreak(day time.Time) {
	switch {
	case l.LastEarningDate == nil:
		l.CurrentStreakDays = 1
	case day.Equal(*l.LastEarningDate):
		// Already earned today.
	case day.Before(*l.LastEarningDate):
		// A late-arriving older session does not move the streak.
		return
	case day.Equal(l.LastEarningDate.AddDate(0, 0, 1)):
		l.CurrentStreakDays++
	default:
		l.CurrentStreakDays = 1
	}
	d := day
	l.LastEarningDate = &d
	if l.CurrentStreakDays > l.BestStreakDays {
		l.BestStreakDays = l.CurrentStreakDays
	}
}

// SetTarget changes the target. Changing the target is not a crossing and
// never increments TargetsAchievedCount.
func (l *BalanceLedger) SetTarget(targetCents int64, now time.Time) {
	l.TargetBalanceCents = targetCents
	l.UpdatedAt = now
}

// StartNewCycle zeroes the current balance. Lifetime earnings, streaks and
// the achieved-target count carry over.
func (l *BalanceLedger) StartNewCycle(now time.Time) {
	l.CurrentBalanceCents = 0
	l.CycleStartedAt = now
	l.UpdatedAt = now
}

// ReplayLedger rebuilds balances and streaks from scratch by applying every
// finalized session in end order. Target, cycle start and the achieved
// count are carried from base since they are settings and history, not sums.
func ReplayLedger(base BalanceLedger, sessions []*TrackedSession) *BalanceLedger {
	finalized := make([]*TrackedSession, 0, len(sessions))
	for _, s := range sessions {
		if s.IsFinalized() {
			finalized = append(finalized, s)
		}
	}
	sort.SliceStable(finalized, func(i, j int) bool {
		return finalized[i].EndedAt.Before(*finalized[j].EndedAt)
	})

	out := &BalanceLedger{
		UserID:               base.UserID,
		TargetBalanceCents:   base.TargetBalanceCents,
		TargetsAchievedCount: base.TargetsAchievedCount,
		CycleStartedAt:       base.CycleStartedAt,
		UpdatedAt:            base.UpdatedAt,
	}
	for _, s := range finalized {
		if s.EarningsCents <= 0 {
			continue
		}
		out.LifetimeEarningsCents += s.EarningsCents
		if !s.EndedAt.Before(out.CycleStartedAt) {
			out.CurrentBalanceCents += s.EarningsCents
		}
		out.advanceStreak(UTCDay(*s.EndedAt))
	}
	return out
}

// UTCDay truncates t to midnight UTC.
func UTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
