// Package tracker runs the live timers: the coordinator owns every
// in-memory TimerSession and the syncer mirrors them into the session store.
package tracker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/domain"
)

// TimerView is a read-only copy of one timer as of a tick.
type TimerView struct {
	TaskID          string
	CategoryID      *string
	HourlyRateCents int64
	State           domain.TimerState
	StartedAt       *time.Time
	Elapsed         time.Duration
	EarningsCents   int64
}

func (v TimerView) ElapsedSeconds() int64 {
	return int64(v.Elapsed / time.Second)
}

// Snapshot is the aggregate view emitted on every tick. Totals cover live
// timers only; stopped timers awaiting their finalize write are listed but
// not summed.
type Snapshot struct {
	At                 time.Time
	TotalEarningsCents int64
	TotalActiveTimers  int
	Timers             []TimerView
}

// Coordinator holds one timer per task. Any number of tasks may be timed at
// once. All methods are serialized by a single mutex.
type Coordinator struct {
	mu     sync.Mutex
	clock  clock.Clock
	timers map[string]*domain.TimerSession
}

func NewCoordinator(c clock.Clock) *Coordinator {
	return &Coordinator{clock: c, timers: make(map[string]*domain.TimerSession)}
}

// Start begins timing taskID. If a live timer already exists it is returned
// unchanged with created=false. A stopped timer whose finalize has not been
// confirmed blocks a new start with ErrFinalizePending.
func (c *Coordinator) Start(taskID string, category *domain.Category) (TimerView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if ts, ok := c.timers[taskID]; ok {
		if ts.State == domain.TimerStopped {
			return TimerView{}, false, fmt.Errorf("starting task %s: %w", taskID, domain.ErrFinalizePending)
		}
		if ts.State.Live() {
			return viewOf(ts, now), false, nil
		}
	}

	ts := domain.NewTimerSession(taskID, category)
	if err := ts.Start(now); err != nil {
		return TimerView{}, false, err
	}
	c.timers[taskID] = ts
	return viewOf(ts, now), true, nil
}

func (c *Coordinator) Pause(taskID string) (TimerView, error) {
	return c.apply(taskID, func(ts *domain.TimerSession, now time.Time) error {
		return ts.Pause(now)
	})
}

func (c *Coordinator) Resume(taskID string) (TimerView, error) {
	return c.apply(taskID, func(ts *domain.TimerSession, now time.Time) error {
		return ts.Resume(now)
	})
}

// Stop stops the timer and returns its final accounting. The stopped timer
// stays registered until Remove confirms the finalize write.
func (c *Coordinator) Stop(taskID string) (domain.StopResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.timers[taskID]
	if !ok {
		return domain.StopResult{}, fmt.Errorf("stopping task %s: %w", taskID, domain.ErrSessionNotFound)
	}
	return ts.Stop(c.clock.Now())
}

// Reset abandons a live timer and forgets it. A stopped timer cannot be
// reset; its result is already on its way to the store.
func (c *Coordinator) Reset(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.timers[taskID]
	if !ok {
		return fmt.Errorf("resetting task %s: %w", taskID, domain.ErrSessionNotFound)
	}
	if ts.State == domain.TimerStopped {
		return fmt.Errorf("resetting task %s: %w", taskID, domain.ErrFinalizePending)
	}
	ts.Reset()
	delete(c.timers, taskID)
	return nil
}

// Restore registers a paused timer rebuilt from a persisted session.
func (c *Coordinator) Restore(taskID string, categoryID *string, rateCents int64, startedAt time.Time, accumulated time.Duration) (TimerView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.timers[taskID]; ok {
		return TimerView{}, fmt.Errorf("restoring task %s: a timer is already registered", taskID)
	}
	ts := &domain.TimerSession{TaskID: taskID, CategoryID: categoryID, HourlyRateCents: rateCents, State: domain.TimerIdle}
	if err := ts.Restore(startedAt, accumulated); err != nil {
		return TimerView{}, err
	}
	c.timers[taskID] = ts
	return viewOf(ts, c.clock.Now()), nil
}

// Remove forgets a stopped timer once its finalize write is durable.
// Live timers are left alone.
func (c *Coordinator) Remove(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.timers[taskID]
	if !ok || ts.State != domain.TimerStopped {
		return false
	}
	delete(c.timers, taskID)
	return true
}

// Tick observes every timer at the current instant and returns the totals.
// It has no persistence side effects.
func (c *Coordinator) Tick() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for _, ts := range c.timers {
		if ts.State.Live() {
			ts.Observe(now)
		}
	}
	return c.snapshotLocked(now)
}

// Snapshot returns the current view without observing the timers.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(c.clock.Now())
}

// Get returns the view of one timer.
func (c *Coordinator) Get(taskID string) (TimerView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.timers[taskID]
	if !ok {
		return TimerView{}, false
	}
	return viewOf(ts, c.clock.Now()), true
}

func (c *Coordinator) apply(taskID string, fn func(*domain.TimerSession, time.Time) error) (TimerView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.timers[taskID]
	if !ok {
		return TimerView{}, fmt.Errorf("task %s: %w", taskID, domain.ErrSessionNotFound)
	}
	now := c.clock.Now()
	if err := fn(ts, now); err != nil {
		return TimerView{}, err
	}
	return viewOf(ts, now), nil
}

func (c *Coordinator) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{At: now, Timers: make([]TimerView, 0, len(c.timers))}
	for _, ts := range c.timers {
		v := viewOf(ts, now)
		snap.Timers = append(snap.Timers, v)
		if ts.State.Live() {
			snap.TotalEarningsCents += v.EarningsCents
			snap.TotalActiveTimers++
		}
	}
	sort.Slice(snap.Timers, func(i, j int) bool {
		return snap.Timers[i].TaskID < snap.Timers[j].TaskID
	})
	return snap
}

func viewOf(ts *domain.TimerSession, now time.Time) TimerView {
	v := TimerView{
		TaskID:          ts.TaskID,
		CategoryID:      ts.CategoryID,
		HourlyRateCents: ts.HourlyRateCents,
		State:           ts.State,
	}
	if ts.StartedAt != nil {
		s := *ts.StartedAt
		v.StartedAt = &s
	}
	if r := ts.Result(); r != nil {
		v.Elapsed = r.Duration
		v.EarningsCents = r.EarningsCents
		return v
	}
	v.Elapsed = ts.Elapsed(now)
	v.EarningsCents = ts.EarningsCents(now)
	return v
}
