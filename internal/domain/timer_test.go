package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func rateCategory(cents int64) *Category {
	return &Category{ID: "cat-1", Name: "Client", HourlyRateCents: cents}
}

func TestTimer_StartPauseResumeStop(t *testing.T) {
	ts := NewTimerSession("task-a", rateCategory(6000))
	require.NoError(t, ts.Start(testNow))
	assert.Equal(t, TimerRunning, ts.State)
	require.NotNil(t, ts.StartedAt)
	assert.Equal(t, testNow, *ts.StartedAt)

	require.NoError(t, ts.Pause(testNow.Add(30*time.Minute)))
	assert.Equal(t, TimerPaused, ts.State)
	assert.Nil(t, ts.LastResumedAt)
	assert.Equal(t, 30*time.Minute, ts.Accumulated)

	// Paused time is not counted.
	assert.Equal(t, 30*time.Minute, ts.Elapsed(testNow.Add(2*time.Hour)))

	require.NoError(t, ts.Resume(testNow.Add(2*time.Hour)))
	res, err := ts.Stop(testNow.Add(2*time.Hour + 30*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, TimerStopped, ts.State)
	assert.Equal(t, int64(3600), res.DurationSeconds)
	assert.Equal(t, int64(6000), res.EarningsCents)
	require.NotNil(t, ts.EndedAt)
	assert.Equal(t, testNow.Add(2*time.Hour+30*time.Minute), res.EndedAt)
}

func TestTimer_InvalidTransitions(t *testing.T) {
	ts := NewTimerSession("task-a", nil)
	assert.ErrorIs(t, ts.Pause(testNow), ErrInvalidTransition)
	assert.ErrorIs(t, ts.Resume(testNow), ErrInvalidTransition)
	_, err := ts.Stop(testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, ts.Start(testNow))
	assert.ErrorIs(t, ts.Start(testNow), ErrInvalidTransition)
	assert.ErrorIs(t, ts.Resume(testNow), ErrInvalidTransition)

	require.NoError(t, ts.Pause(testNow))
	assert.ErrorIs(t, ts.Pause(testNow), ErrInvalidTransition)
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	ts := NewTimerSession("task-a", rateCategory(1000))
	require.NoError(t, ts.Start(testNow))

	first, err := ts.Stop(testNow.Add(45 * time.Minute))
	require.NoError(t, err)
	second, err := ts.Stop(testNow.Add(3 * time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(2700), second.DurationSeconds)
	assert.Equal(t, int64(750), second.EarningsCents)
}

func TestTimer_StopFromPaused(t *testing.T) {
	ts := NewTimerSession("task-a", rateCategory(1000))
	require.NoError(t, ts.Start(testNow))
	require.NoError(t, ts.Pause(testNow.Add(10*time.Minute)))

	res, err := ts.Stop(testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(600), res.DurationSeconds)
	assert.Equal(t, testNow.Add(time.Hour), res.EndedAt)
}

func TestTimer_ResetDiscardsEverything(t *testing.T) {
	ts := NewTimerSession("task-a", rateCategory(1000))
	require.NoError(t, ts.Start(testNow))
	require.NoError(t, ts.Pause(testNow.Add(time.Hour)))

	ts.Reset()
	assert.Equal(t, TimerIdle, ts.State)
	assert.Nil(t, ts.StartedAt)
	assert.Zero(t, ts.Elapsed(testNow.Add(2*time.Hour)))
	assert.Nil(t, ts.Result())

	// A reset timer can be started again.
	require.NoError(t, ts.Start(testNow.Add(2*time.Hour)))
}

func TestTimer_RateSnapshotAtCreation(t *testing.T) {
	cat := rateCategory(1000)
	ts := NewTimerSession("task-a", cat)
	cat.HourlyRateCents = 99999

	require.NoError(t, ts.Start(testNow))
	assert.Equal(t, int64(1000), ts.EarningsCents(testNow.Add(time.Hour)))
}

func TestTimer_NoCategoryEarnsZero(t *testing.T) {
	ts := NewTimerSession("task-b", nil)
	require.NoError(t, ts.Start(testNow))
	res, err := ts.Stop(testNow.Add(10 * time.Minute))
	require.NoError(t, err)
	assert.Nil(t, res.CategoryID)
	assert.Equal(t, int64(600), res.DurationSeconds)
	assert.Zero(t, res.EarningsCents)
}

func TestTimer_ElapsedNeverDecreasesOnClockSkew(t *testing.T) {
	ts := NewTimerSession("task-a", nil)
	require.NoError(t, ts.Start(testNow))
	seen := ts.Observe(testNow.Add(10 * time.Minute))
	assert.Equal(t, 10*time.Minute, seen)

	// Clock jumps back five minutes.
	assert.Equal(t, 10*time.Minute, ts.Elapsed(testNow.Add(5*time.Minute)))
	require.NoError(t, ts.Pause(testNow.Add(5*time.Minute)))
	assert.Equal(t, 10*time.Minute, ts.Accumulated)
}

func TestTimer_Restore(t *testing.T) {
	ts := NewTimerSession("task-a", rateCategory(1200))
	require.NoError(t, ts.Restore(testNow, 25*time.Minute))
	assert.Equal(t, TimerPaused, ts.State)
	assert.Equal(t, 25*time.Minute, ts.Elapsed(testNow.Add(5*time.Hour)))

	require.NoError(t, ts.Resume(testNow.Add(5*time.Hour)))
	res, err := ts.Stop(testNow.Add(5*time.Hour + 5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1800), res.DurationSeconds)
	assert.Equal(t, int64(600), res.EarningsCents)
}

// TestTimer_PauseResumeNoDrift checks that any pause/resume sequence counts
// exactly the wall-clock time spent running.
func TestTimer_PauseResumeNoDrift(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ts := NewTimerSession("task", nil)
		now := testNow
		if err := ts.Start(now); err != nil {
			rt.Fatalf("start: %v", err)
		}

		var expected time.Duration
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			gap := time.Duration(rapid.Int64Range(0, int64(3*time.Hour)).Draw(rt, "gap"))
			if ts.State == TimerRunning {
				expected += gap
			}
			now = now.Add(gap)
			if ts.State == TimerRunning {
				if err := ts.Pause(now); err != nil {
					rt.Fatalf("pause: %v", err)
				}
			} else if err := ts.Resume(now); err != nil {
				rt.Fatalf("resume: %v", err)
			}
			if got := ts.Elapsed(now); got != expected {
				rt.Fatalf("step %d: elapsed %v, want %v", i, got, expected)
			}
		}
	})
}
