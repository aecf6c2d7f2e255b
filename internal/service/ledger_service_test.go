package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLedger_GetWithoutHistory(t *testing.T) {
	h := newHarness(t)
	l, err := h.ledgerSvc.Get(context.Background(), testutil.TestUserID)
	require.NoError(t, err)
	assert.Zero(t, l.CurrentBalanceCents)
	assert.Zero(t, l.ProgressPercentage())
	assert.True(t, l.CycleStartedAt.IsZero())
}

func TestLedger_ApplyFinalizedIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.finalized(t, wednesday, 3600, 6000)

	change, applied, err := h.ledgerSvc.ApplyFinalized(ctx, s)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 1, change.StreakDays)

	_, applied, err = h.ledgerSvc.ApplyFinalized(ctx, s)
	require.NoError(t, err)
	assert.False(t, applied)

	l, err := h.ledgerSvc.Get(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), l.CurrentBalanceCents)
}

func TestLedger_FailedUpsertRollsBackApplication(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.finalized(t, wednesday, 3600, 6000)

	// The second exec in the transaction is the ledger upsert.
	injected := errors.New("disk full")
	failing := NewLedgerService(h.ledgers, h.sessions, &testutil.FailOnNthExecUoW{DB: h.db, FailOn: 2, Err: injected}, h.clock)
	_, applied, err := failing.ApplyFinalized(ctx, s)
	require.ErrorIs(t, err, injected)
	assert.False(t, applied)

	// The application mark rolled back with the upsert, so a retry counts it.
	_, applied, err = h.ledgerSvc.ApplyFinalized(ctx, s)
	require.NoError(t, err)
	assert.True(t, applied)

	l, err := h.ledgerSvc.Get(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), l.CurrentBalanceCents)
}

func TestLedger_ApplyRejectsActiveSession(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.ledgerSvc.ApplyFinalized(context.Background(), testutil.NewTestSession("task"))
	assert.Error(t, err)
}

func TestLedger_ConcurrentApplicationsDoNotDoubleCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var sessions []*domain.TrackedSession
	for i := 0; i < 5; i++ {
		sessions = append(sessions, h.finalized(t, wednesday.Add(time.Duration(i)*time.Minute), 600, 1000))
	}

	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		for _, s := range sessions {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, _, err := h.ledgerSvc.ApplyFinalized(ctx, s); err != nil {
					t.Errorf("apply %s: %v", s.ID, err)
				}
			}()
		}
	}
	wg.Wait()

	l, err := h.ledgerSvc.Get(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), l.CurrentBalanceCents)
	assert.Equal(t, int64(5000), l.LifetimeEarningsCents)
}

func TestLedger_TargetCrossingCountedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ledgerSvc.SetTarget(ctx, testutil.TestUserID, 10000)
	require.NoError(t, err)

	amounts := []int64{6000, 5000, 3000}
	var crossings int
	for i, cents := range amounts {
		s := h.finalized(t, wednesday.Add(time.Duration(i)*time.Hour), 3600, cents)
		change, _, err := h.ledgerSvc.ApplyFinalized(ctx, s)
		require.NoError(t, err)
		if change.TargetAchieved {
			crossings++
		}
	}
	assert.Equal(t, 1, crossings)

	l, err := h.ledgerSvc.Get(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, l.TargetsAchievedCount)
	assert.Equal(t, float64(100), l.ProgressPercentage())

	// Raising the target is not a crossing; earning past it again is.
	_, err = h.ledgerSvc.SetTarget(ctx, testutil.TestUserID, 20000)
	require.NoError(t, err)
	s := h.finalized(t, wednesday.Add(4*time.Hour), 3600, 6000)
	change, _, err := h.ledgerSvc.ApplyFinalized(ctx, s)
	require.NoError(t, err)
	assert.True(t, change.TargetAchieved)

	l, err = h.ledgerSvc.Get(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, l.TargetsAchievedCount)
}

func TestLedger_StartNewCycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s := h.finalized(t, wednesday, 3600, 6000)
	_, _, err := h.ledgerSvc.ApplyFinalized(ctx, s)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	l, err := h.ledgerSvc.StartNewCycle(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Zero(t, l.CurrentBalanceCents)
	assert.Equal(t, int64(6000), l.LifetimeEarningsCents)

	// A late session that ended before the rollover counts for lifetime only.
	late := h.finalized(t, wednesday.Add(30*time.Minute), 600, 1000)
	_, _, err = h.ledgerSvc.ApplyFinalized(ctx, late)
	require.NoError(t, err)
	fresh := h.finalized(t, wednesday.Add(2*time.Hour), 600, 1000)
	_, _, err = h.ledgerSvc.ApplyFinalized(ctx, fresh)
	require.NoError(t, err)

	l, err = h.ledgerSvc.Get(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), l.CurrentBalanceCents)
	assert.Equal(t, int64(8000), l.LifetimeEarningsCents)

	re, err := h.ledgerSvc.Recompute(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, l.CurrentBalanceCents, re.CurrentBalanceCents)
	assert.Equal(t, l.LifetimeEarningsCents, re.LifetimeEarningsCents)
}

func TestLedger_SetTargetRejectsNegative(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledgerSvc.SetTarget(context.Background(), testutil.TestUserID, -1)
	assert.Error(t, err)
}

func TestLedger_RecomputeMarksSessionsApplied(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s := h.finalized(t, wednesday, 3600, 6000)
	l, err := h.ledgerSvc.Recompute(ctx, testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), l.CurrentBalanceCents)

	_, applied, err := h.ledgerSvc.ApplyFinalized(ctx, s)
	require.NoError(t, err)
	assert.False(t, applied, "recompute already folded the session in")
}

// Incremental application in any arrival order must agree with a full
// recompute on balances and the best streak.
func TestLedger_IncrementalMatchesRecompute(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t)
		ctx := context.Background()

		n := rapid.IntRange(1, 12).Draw(rt, "sessions")
		var sessions []*domain.TrackedSession
		for i := 0; i < n; i++ {
			day := rapid.IntRange(0, 20).Draw(rt, fmt.Sprintf("day%d", i))
			cents := rapid.Int64Range(0, 20000).Draw(rt, fmt.Sprintf("cents%d", i))
			end := wednesday.AddDate(0, 0, day).Add(time.Duration(i) * time.Second)
			sessions = append(sessions, h.finalized(t, end, 60, cents))
		}
		// Arrival order that respects end order keeps streak semantics exact.
		for _, s := range sortedByEnd(sessions) {
			if _, _, err := h.ledgerSvc.ApplyFinalized(ctx, s); err != nil {
				rt.Fatalf("apply: %v", err)
			}
		}
		inc, err := h.ledgerSvc.Get(ctx, testutil.TestUserID)
		if err != nil {
			rt.Fatalf("get: %v", err)
		}
		full, err := h.ledgerSvc.Recompute(ctx, testutil.TestUserID)
		if err != nil {
			rt.Fatalf("recompute: %v", err)
		}

		if inc.CurrentBalanceCents != full.CurrentBalanceCents {
			rt.Fatalf("balance: incremental %d, full %d", inc.CurrentBalanceCents, full.CurrentBalanceCents)
		}
		if inc.LifetimeEarningsCents != full.LifetimeEarningsCents {
			rt.Fatalf("lifetime: incremental %d, full %d", inc.LifetimeEarningsCents, full.LifetimeEarningsCents)
		}
		if inc.CurrentStreakDays != full.CurrentStreakDays || inc.BestStreakDays != full.BestStreakDays {
			rt.Fatalf("streaks: incremental %d/%d, full %d/%d",
				inc.CurrentStreakDays, inc.BestStreakDays, full.CurrentStreakDays, full.BestStreakDays)
		}
	})
}

func sortedByEnd(in []*domain.TrackedSession) []*domain.TrackedSession {
	out := append([]*domain.TrackedSession(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].EndedAt.Before(*out[j-1].EndedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
