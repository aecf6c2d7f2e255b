package domain

import (
	"fmt"
	"time"
)

// TimerSession is the in-memory timer for one task:
// idle -> running <-> paused -> stopped. Reset returns any state to idle.
//
// Elapsed time is Accumulated plus the open running interval. The hourly
// rate is captured at construction so a later category change never alters
// an in-flight session.
type TimerSession struct {
	TaskID          string
	CategoryID      *string
	HourlyRateCents int64

	State         TimerState
	StartedAt     *time.Time
	Accumulated   time.Duration
	LastResumedAt *time.Time
	EndedAt       *time.Time

	// floor is the highest elapsed value ever observed; it keeps Elapsed
	// non-decreasing when the wall clock steps backwards.
	floor  time.Duration
	result *StopResult
}

// StopResult is the final accounting of a stopped session.
type StopResult struct {
	TaskID          string
	CategoryID      *string
	HourlyRateCents int64
	StartedAt       time.Time
	EndedAt         time.Time
	Duration        time.Duration
	DurationSeconds int64
	EarningsCents   int64
}

// NewTimerSession creates an idle timer for taskID. A nil category means
// the session earns nothing.
func NewTimerSession(taskID string, category *Category) *TimerSession {
	ts := &TimerSession{TaskID: taskID, State: TimerIdle}
	if category != nil {
		id := category.ID
		ts.CategoryID = &id
		ts.HourlyRateCents = category.HourlyRateCents
	}
	return ts
}

func (t *TimerSession) transitionErr(op string) error {
	return fmt.Errorf("%w: cannot %s a %s timer for task %s", ErrInvalidTransition, op, t.State, t.TaskID)
}

func (t *TimerSession) Start(now time.Time) error {
	if t.State != TimerIdle {
		return t.transitionErr("start")
	}
	started := now
	resumed := now
	t.StartedAt = &started
	t.LastResumedAt = &resumed
	t.State = TimerRunning
	return nil
}

func (t *TimerSession) Pause(now time.Time) error {
	if t.State != TimerRunning {
		return t.transitionErr("pause")
	}
	t.fold(now)
	t.State = TimerPaused
	return nil
}

func (t *TimerSession) Resume(now time.Time) error {
	if t.State != TimerPaused {
		return t.transitionErr("resume")
	}
	resumed := now
	t.LastResumedAt = &resumed
	t.State = TimerRunning
	return nil
}

// Stop finalizes the timer and returns its accounting. Stopping an already
// stopped timer returns the original result unchanged, so a double-fired
// stop is harmless.
func (t *TimerSession) Stop(now time.Time) (StopResult, error) {
	switch t.State {
	case TimerStopped:
		return *t.result, nil
	case TimerIdle:
		return StopResult{}, t.transitionErr("stop")
	case TimerRunning:
		t.fold(now)
	}

	ended := now
	if ended.Before(*t.StartedAt) {
		ended = *t.StartedAt
	}
	t.EndedAt = &ended
	t.State = TimerStopped

	secs := int64(t.Accumulated / time.Second)
	t.result = &StopResult{
		TaskID:          t.TaskID,
		CategoryID:      t.CategoryID,
		HourlyRateCents: t.HourlyRateCents,
		StartedAt:       *t.StartedAt,
		EndedAt:         ended,
		Duration:        t.Accumulated,
		DurationSeconds: secs,
		EarningsCents:   Earnings(secs, t.HourlyRateCents),
	}
	return *t.result, nil
}

// Reset abandons the session, discarding all tracked time.
func (t *TimerSession) Reset() {
	t.State = TimerIdle
	t.StartedAt = nil
	t.LastResumedAt = nil
	t.EndedAt = nil
	t.Accumulated = 0
	t.floor = 0
	t.result = nil
}

// Restore rehydrates a paused timer from durable state. Only the persisted
// duration is trusted; time between the last write and now is not invented.
func (t *TimerSession) Restore(startedAt time.Time, accumulated time.Duration) error {
	if t.State != TimerIdle {
		return t.transitionErr("restore")
	}
	s := startedAt
	t.StartedAt = &s
	t.Accumulated = accumulated
	t.floor = accumulated
	t.State = TimerPaused
	return nil
}

// Elapsed returns the tracked duration as of now.
func (t *TimerSession) Elapsed(now time.Time) time.Duration {
	e := t.Accumulated
	if t.State == TimerRunning && t.LastResumedAt != nil {
		if open := now.Sub(*t.LastResumedAt); open > 0 {
			e += open
		}
	}
	if e < t.floor {
		return t.floor
	}
	return e
}

// ElapsedSeconds returns Elapsed truncated to whole seconds.
func (t *TimerSession) ElapsedSeconds(now time.Time) int64 {
	return int64(t.Elapsed(now) / time.Second)
}

// Observe records the elapsed value seen at now, raising the floor.
// The coordinator calls it on every tick.
func (t *TimerSession) Observe(now time.Time) time.Duration {
	e := t.Elapsed(now)
	t.floor = e
	return e
}

// EarningsCents returns the earnings accrued as of now.
func (t *TimerSession) EarningsCents(now time.Time) int64 {
	return Earnings(t.ElapsedSeconds(now), t.HourlyRateCents)
}

// Result returns the stop result, or nil if the timer has not stopped.
func (t *TimerSession) Result() *StopResult {
	if t.result == nil {
		return nil
	}
	r := *t.result
	return &r
}

// fold moves the open running interval into Accumulated.
func (t *TimerSession) fold(now time.Time) {
	t.Accumulated = t.Elapsed(now)
	t.floor = t.Accumulated
	t.LastResumedAt = nil
}
