package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/repository"
	"github.com/google/uuid"
)

// SyncStatus reports how far the store lags behind one timer.
type SyncStatus struct {
	TaskID    string
	SessionID string
	State     domain.SyncState
	Pending   int
	Attempts  int
	LastError error
	UpdatedAt time.Time
}

// FinalizedFunc runs after a session's finalize write is durable. Returning
// an error retries both the write and the hook, so it must be idempotent.
type FinalizedFunc func(ctx context.Context, s *domain.TrackedSession) error

type SyncerConfig struct {
	UserID        string
	AutosaveEvery int
	RetryInitial  time.Duration
	RetryMax      time.Duration
	WriteTimeout  time.Duration
}

func DefaultSyncerConfig(userID string) SyncerConfig {
	return SyncerConfig{
		UserID:        userID,
		AutosaveEvery: 30,
		RetryInitial:  500 * time.Millisecond,
		RetryMax:      30 * time.Second,
		WriteTimeout:  5 * time.Second,
	}
}

// Syncer mirrors timers into the session store without ever blocking the
// caller. Each session has its own FIFO queue drained by its own goroutine,
// so writes for one session land in order while sessions proceed
// independently. Failures surface through Status and the logger only.
type Syncer struct {
	store       repository.SessionRepo
	clock       clock.Clock
	logger      *slog.Logger
	cfg         SyncerConfig
	onFinalized FinalizedFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	tracks   map[string]*track
	ticks    int
	draining int
	idle     chan struct{}
	closed   bool
}

type track struct {
	record    domain.TrackedSession
	queue     writeQueue
	draining  bool
	inflight  context.CancelFunc
	stopped   bool
	abandoned bool
	status    SyncStatus
}

func NewSyncer(store repository.SessionRepo, clk clock.Clock, logger *slog.Logger, cfg SyncerConfig, onFinalized FinalizedFunc) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		store:       store,
		clock:       clk,
		logger:      logger,
		cfg:         cfg,
		onFinalized: onFinalized,
		ctx:         ctx,
		cancel:      cancel,
		tracks:      make(map[string]*track),
	}
}

// Started registers a freshly started timer and queues its create write.
// It returns the id of the session record.
func (s *Syncer) Started(v TimerView) string {
	now := s.clock.Now()
	started := now
	if v.StartedAt != nil {
		started = *v.StartedAt
	}
	rec := domain.TrackedSession{
		ID:              uuid.New().String(),
		UserID:          s.cfg.UserID,
		TaskID:          v.TaskID,
		CategoryID:      v.CategoryID,
		HourlyRateCents: v.HourlyRateCents,
		StartedAt:       started,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.register(rec, domain.SyncPending)
	s.enqueueLocked(t, writeJob{kind: writeCreate, at: now})
	return rec.ID
}

// Adopt registers a timer that already has a durable record, as happens
// when a session is resumed after a crash.
func (s *Syncer) Adopt(rec *domain.TrackedSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.register(*rec, domain.SyncSynced)
}

func (s *Syncer) register(rec domain.TrackedSession, state domain.SyncState) *track {
	t := &track{
		record: rec,
		status: SyncStatus{TaskID: rec.TaskID, SessionID: rec.ID, State: state, UpdatedAt: s.clock.Now()},
	}
	s.tracks[rec.TaskID] = t
	return t
}

// Tick counts host ticks and queues an autosave for every live timer in
// snap on each AutosaveEvery-th tick.
func (s *Syncer) Tick(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++
	if s.cfg.AutosaveEvery <= 0 || s.ticks%s.cfg.AutosaveEvery != 0 {
		return
	}
	for _, v := range snap.Timers {
		if v.State.Live() {
			s.autosaveLocked(v, snap.At)
		}
	}
}

// Checkpoint queues an immediate autosave for one timer.
func (s *Syncer) Checkpoint(v TimerView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosaveLocked(v, s.clock.Now())
}

func (s *Syncer) autosaveLocked(v TimerView, at time.Time) {
	t, ok := s.tracks[v.TaskID]
	if !ok || t.stopped || t.abandoned {
		return
	}
	s.enqueueLocked(t, writeJob{
		kind:            writeAutosave,
		durationSeconds: v.ElapsedSeconds(),
		earningsCents:   v.EarningsCents,
		at:              at,
	})
}

// Stopped queues the finalize write for a stopped timer. The write is
// retried with backoff until it lands or the syncer closes.
func (s *Syncer) Stopped(res domain.StopResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tracks[res.TaskID]
	if !ok || t.abandoned {
		return fmt.Errorf("finalizing task %s: %w", res.TaskID, domain.ErrSessionNotFound)
	}
	if t.stopped {
		return nil
	}
	t.stopped = true
	s.enqueueLocked(t, writeJob{
		kind:            writeFinalize,
		durationSeconds: res.DurationSeconds,
		earningsCents:   res.EarningsCents,
		at:              res.EndedAt,
		endedAt:         res.EndedAt,
	})
	return nil
}

// Abandoned drops every pending write for taskID, cancels the write in
// flight and then discards the orphaned active record.
func (s *Syncer) Abandoned(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tracks[taskID]
	if !ok || t.stopped {
		return
	}
	t.abandoned = true
	dropped := t.queue.clear()
	if t.inflight != nil {
		t.inflight()
	}
	s.logger.Debug("session abandoned", "task_id", taskID, "session_id", t.record.ID, "dropped_writes", dropped)
	s.enqueueLocked(t, writeJob{kind: writeDiscard, at: s.clock.Now()})
}

// Status returns the sync state of taskID's session. Unknown tasks report
// synced with ok=false.
func (s *Syncer) Status(taskID string) (SyncStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tracks[taskID]
	if !ok {
		return SyncStatus{TaskID: taskID, State: domain.SyncSynced}, false
	}
	st := t.status
	st.Pending = t.queue.len()
	if t.inflight != nil {
		st.Pending++
	}
	return st, true
}

// SessionID returns the record id backing taskID's timer.
func (s *Syncer) SessionID(taskID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[taskID]
	if !ok {
		return "", false
	}
	return t.record.ID, true
}

// Flush blocks until every queue is drained or ctx is done.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.draining == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flushing session writes: %w", ctx.Err())
	}
}

// Close cancels outstanding writes and retries and waits for the drain
// goroutines to exit. Later writes are dropped.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Syncer) enqueueLocked(t *track, j writeJob) {
	if s.closed {
		s.logger.Warn("syncer closed, dropping write", "op", j.kind.String(), "session_id", t.record.ID)
		return
	}
	t.queue.push(j)
	t.status.State = domain.SyncPending
	if t.draining {
		return
	}
	t.draining = true
	if s.draining == 0 {
		s.idle = make(chan struct{})
	}
	s.draining++
	s.wg.Add(1)
	go s.drain(t)
}

func (s *Syncer) drain(t *track) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		j, ok := t.queue.pop()
		if !ok {
			t.draining = false
			s.draining--
			if s.draining == 0 {
				close(s.idle)
			}
			s.mu.Unlock()
			return
		}
		ctx, cancel := context.WithCancel(s.ctx)
		if j.kind != writeDiscard {
			t.inflight = cancel
		}
		rec := t.record
		s.mu.Unlock()

		err := s.execute(ctx, t, j, rec)
		cancel()

		s.mu.Lock()
		t.inflight = nil
		s.settleLocked(t, j, err)
		s.mu.Unlock()
	}
}

func (s *Syncer) execute(ctx context.Context, t *track, j writeJob, rec domain.TrackedSession) error {
	switch j.kind {
	case writeCreate:
		return s.write(ctx, j.kind, &rec, s.store.Create)
	case writeAutosave:
		// Upsert inserts the record when the create never landed.
		rec.DurationSeconds = j.durationSeconds
		rec.EarningsCents = j.earningsCents
		rec.UpdatedAt = j.at
		return s.write(ctx, j.kind, &rec, s.store.Upsert)
	case writeFinalize:
		rec.Finalize(j.endedAt, j.durationSeconds, j.earningsCents)
		return s.finalize(ctx, t, &rec)
	case writeDiscard:
		return s.write(ctx, j.kind, &rec, func(ctx context.Context, r *domain.TrackedSession) error {
			return s.store.DeleteActive(ctx, r.ID)
		})
	}
	return fmt.Errorf("unknown write kind %d", j.kind)
}

func (s *Syncer) write(ctx context.Context, kind writeKind, rec *domain.TrackedSession, fn func(context.Context, *domain.TrackedSession) error) error {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	if err := fn(wctx, rec); err != nil {
		return fmt.Errorf("%s session %s: %w: %w", kind, rec.ID, domain.ErrPersistenceWriteFailed, err)
	}
	return nil
}

// finalize retries the finalize write and the OnFinalized hook together with
// exponential backoff. Both are idempotent, so a retry after a partial
// success is harmless.
func (s *Syncer) finalize(ctx context.Context, t *track, rec *domain.TrackedSession) error {
	delay := s.cfg.RetryInitial
	for attempt := 1; ; attempt++ {
		err := s.write(ctx, writeFinalize, rec, s.store.Finalize)
		if err == nil && s.onFinalized != nil {
			if hookErr := s.onFinalized(ctx, rec); hookErr != nil {
				err = fmt.Errorf("applying finalized session %s: %w", rec.ID, hookErr)
			}
		}
		if err == nil {
			if attempt > 1 {
				s.logger.Info("session finalized after retry", "session_id", rec.ID, "attempts", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		s.mu.Lock()
		t.status.State = domain.SyncFailed
		t.status.LastError = err
		t.status.Attempts = attempt
		t.status.UpdatedAt = s.clock.Now()
		s.mu.Unlock()
		s.logger.Warn("finalize failed, will retry",
			"task_id", rec.TaskID, "session_id", rec.ID, "attempt", attempt, "retry_in", delay, "error", err)

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.cfg.RetryMax {
			delay = s.cfg.RetryMax
		}
	}
}

func (s *Syncer) settleLocked(t *track, j writeJob, err error) {
	t.status.UpdatedAt = s.clock.Now()
	if err != nil {
		if t.abandoned && errors.Is(err, context.Canceled) {
			return
		}
		t.status.State = domain.SyncFailed
		t.status.LastError = err
		level := slog.LevelWarn
		if j.kind == writeCreate {
			// The next autosave performs the create.
			level = slog.LevelInfo
		}
		s.logger.Log(s.ctx, level, "session write failed",
			"op", j.kind.String(), "task_id", t.record.TaskID, "session_id", t.record.ID, "error", err)
		return
	}

	t.status.LastError = nil
	t.status.Attempts = 0
	if j.kind == writeFinalize || j.kind == writeDiscard {
		t.status.State = domain.SyncSynced
		if s.tracks[t.record.TaskID] == t {
			delete(s.tracks, t.record.TaskID)
		}
		return
	}
	if t.queue.len() == 0 {
		t.status.State = domain.SyncSynced
	}
}
