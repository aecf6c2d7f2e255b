package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/repository"
	"github.com/alexanderramin/tally/internal/tracker"
)

type trackingService struct {
	userID     string
	clock      clock.Clock
	categories repository.CategoryRepo
	sessions   repository.SessionRepo
	ledger     LedgerService
	coord      *tracker.Coordinator
	syncer     *tracker.Syncer
	logger     *slog.Logger
	observer   UseCaseObserver

	// mu pairs each coordinator transition with its syncer call so the
	// store sees transitions in the order they happened.
	mu sync.Mutex
}

// NewTrackingService wires a coordinator and a syncer for cfg.UserID. A
// finalized session is folded into the ledger before its stopped timer is
// dropped from the coordinator.
func NewTrackingService(
	cfg tracker.SyncerConfig,
	clk clock.Clock,
	categories repository.CategoryRepo,
	sessions repository.SessionRepo,
	ledger LedgerService,
	logger *slog.Logger,
	observers ...UseCaseObserver,
) TrackingService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &trackingService{
		userID:     cfg.UserID,
		clock:      clk,
		categories: categories,
		sessions:   sessions,
		ledger:     ledger,
		coord:      tracker.NewCoordinator(clk),
		logger:     logger,
		observer:   useCaseObserverOrNoop(observers),
	}
	s.syncer = tracker.NewSyncer(sessions, clk, logger.With("component", "syncer"), cfg, s.onFinalized)
	return s
}

func (s *trackingService) onFinalized(ctx context.Context, rec *domain.TrackedSession) error {
	change, applied, err := s.ledger.ApplyFinalized(ctx, rec)
	if err != nil {
		return err
	}
	if change.TargetAchieved {
		s.logger.Info("target reached", "session_id", rec.ID, "streak_days", change.StreakDays)
	}
	if !applied {
		s.logger.Debug("session already applied to ledger", "session_id", rec.ID)
	}
	s.coord.Remove(rec.TaskID)
	return nil
}

func (s *trackingService) StartTimer(ctx context.Context, taskID string, categoryID *string) (v tracker.TimerView, err error) {
	startedAt := time.Now()
	fields := map[string]any{"task_id": taskID}
	defer observe(ctx, s.observer, "start-timer", startedAt, fields, &err)

	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return v, fmt.Errorf("task id is required")
	}
	var cat *domain.Category
	if categoryID != nil {
		cat, err = s.categories.GetByID(ctx, *categoryID)
		if err != nil {
			return v, fmt.Errorf("loading category: %w", err)
		}
		fields["category_id"] = cat.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, created, err := s.coord.Start(taskID, cat)
	if err != nil {
		return v, err
	}
	if created {
		fields["session_id"] = s.syncer.Started(v)
	}
	fields["created"] = created
	return v, nil
}

func (s *trackingService) PauseTimer(ctx context.Context, taskID string) (v tracker.TimerView, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "pause-timer", startedAt, map[string]any{"task_id": taskID}, &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	v, err = s.coord.Pause(taskID)
	if err != nil {
		return v, err
	}
	// Persist the folded total so a crash while paused loses nothing.
	s.syncer.Checkpoint(v)
	return v, nil
}

func (s *trackingService) ResumeTimer(ctx context.Context, taskID string) (v tracker.TimerView, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "resume-timer", startedAt, map[string]any{"task_id": taskID}, &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coord.Resume(taskID)
}

func (s *trackingService) StopTimer(ctx context.Context, taskID string) (res domain.StopResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"task_id": taskID}
	defer observe(ctx, s.observer, "stop-timer", startedAt, fields, &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err = s.coord.Stop(taskID)
	if err != nil {
		return res, err
	}
	fields["duration_seconds"] = res.DurationSeconds
	fields["earnings_cents"] = res.EarningsCents
	if syncErr := s.syncer.Stopped(res); syncErr != nil {
		s.logger.Warn("stopped timer has no session record", "task_id", taskID, "error", syncErr)
	}
	return res, nil
}

func (s *trackingService) ResetTimer(ctx context.Context, taskID string) (err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "reset-timer", startedAt, map[string]any{"task_id": taskID}, &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.coord.Reset(taskID); err != nil {
		return err
	}
	s.syncer.Abandoned(taskID)
	return nil
}

// Tick advances the live view and schedules autosaves. It never waits on
// the store.
func (s *trackingService) Tick() tracker.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.coord.Tick()
	s.syncer.Tick(snap)
	return snap
}

func (s *trackingService) Snapshot() tracker.Snapshot {
	return s.coord.Snapshot()
}

func (s *trackingService) SyncStatus(taskID string) tracker.SyncStatus {
	st, _ := s.syncer.Status(taskID)
	return st
}

func (s *trackingService) Recover(ctx context.Context) (orphans []*domain.TrackedSession, err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer observe(ctx, s.observer, "recover", startedAt, fields, &err)

	active, err := s.sessions.ListActive(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}
	for _, rec := range active {
		if id, ok := s.syncer.SessionID(rec.TaskID); ok && id == rec.ID {
			continue
		}
		orphans = append(orphans, rec)
	}
	fields["orphans"] = len(orphans)
	if len(orphans) > 0 {
		return orphans, fmt.Errorf("%d unfinished session(s) from a previous run: %w", len(orphans), domain.ErrAmbiguousRecovery)
	}
	return nil, nil
}

// ResumeRecovered rehydrates an orphaned session as a paused timer holding
// exactly the persisted duration.
func (s *trackingService) ResumeRecovered(ctx context.Context, sessionID string) (v tracker.TimerView, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "resume-recovered", startedAt, map[string]any{"session_id": sessionID}, &err)

	rec, err := s.orphan(ctx, sessionID)
	if err != nil {
		return v, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, err = s.coord.Restore(rec.TaskID, rec.CategoryID, rec.HourlyRateCents, rec.StartedAt,
		time.Duration(rec.DurationSeconds)*time.Second)
	if err != nil {
		return v, err
	}
	s.syncer.Adopt(rec)
	return v, nil
}

// FinalizeRecovered closes an orphaned session as of its last durable write
// and applies it to the ledger.
func (s *trackingService) FinalizeRecovered(ctx context.Context, sessionID string) (rec *domain.TrackedSession, err error) {
	startedAt := time.Now()
	fields := map[string]any{"session_id": sessionID}
	defer observe(ctx, s.observer, "finalize-recovered", startedAt, fields, &err)

	rec, err = s.orphan(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ended := rec.UpdatedAt
	if ended.Before(rec.StartedAt) {
		ended = rec.StartedAt
	}
	rec.Finalize(ended, rec.DurationSeconds, domain.Earnings(rec.DurationSeconds, rec.HourlyRateCents))
	fields["earnings_cents"] = rec.EarningsCents

	if err = s.sessions.Finalize(ctx, rec); err != nil {
		return nil, fmt.Errorf("finalizing recovered session: %w", err)
	}
	if _, _, err = s.ledger.ApplyFinalized(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *trackingService) orphan(ctx context.Context, sessionID string) (*domain.TrackedSession, error) {
	rec, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
		}
		return nil, err
	}
	if !rec.IsActive {
		return nil, fmt.Errorf("session %s is already finalized", sessionID)
	}
	if rec.UserID != s.userID {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if _, live := s.coord.Get(rec.TaskID); live {
		return nil, fmt.Errorf("task %s already has a live timer", rec.TaskID)
	}
	return rec, nil
}

func (s *trackingService) Flush(ctx context.Context) error {
	return s.syncer.Flush(ctx)
}

// Shutdown drains pending writes until ctx is done, then stops the syncer.
// Sessions still unfinalized are picked up by Recover on the next run.
func (s *trackingService) Shutdown(ctx context.Context) error {
	err := s.syncer.Flush(ctx)
	s.syncer.Close()
	return err
}
