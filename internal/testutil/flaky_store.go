package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
)

// ErrInjected is returned by FlakySessionStore for every injected failure.
var ErrInjected = errors.New("injected write failure")

// SessionStore mirrors repository.SessionRepo so the wrapper can be used
// from repository tests without an import cycle.
type SessionStore interface {
	Create(ctx context.Context, s *domain.TrackedSession) error
	GetByID(ctx context.Context, id string) (*domain.TrackedSession, error)
	Upsert(ctx context.Context, s *domain.TrackedSession) error
	Finalize(ctx context.Context, s *domain.TrackedSession) error
	ListActive(ctx context.Context, userID string) ([]*domain.TrackedSession, error)
	ListFinalized(ctx context.Context, userID string, from, to *time.Time) ([]*domain.TrackedSession, error)
	DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyTotal, error)
	DeleteActive(ctx context.Context, id string) error
}

// WriteOp names a write method on the session store.
type WriteOp string

const (
	OpCreate   WriteOp = "create"
	OpUpsert   WriteOp = "upsert"
	OpFinalize WriteOp = "finalize"
	OpDelete   WriteOp = "delete"
)

// WriteCall is one observed write.
type WriteCall struct {
	Op              WriteOp
	SessionID       string
	DurationSeconds int64
	Err             error
}

// FlakySessionStore wraps a SessionStore and fails writes on demand.
// Reads always pass through. Every write attempt is recorded in order.
type FlakySessionStore struct {
	SessionStore

	mu       sync.Mutex
	failures map[WriteOp]int
	failAll  map[WriteOp]bool
	block    chan struct{}
	calls    []WriteCall
}

func NewFlakySessionStore(inner SessionStore) *FlakySessionStore {
	return &FlakySessionStore{
		SessionStore: inner,
		failures:     make(map[WriteOp]int),
		failAll:      make(map[WriteOp]bool),
	}
}

// FailNext makes the next n calls of op fail.
func (f *FlakySessionStore) FailNext(op WriteOp, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] += n
}

// FailAlways makes every call of op fail until Heal is called.
func (f *FlakySessionStore) FailAlways(op WriteOp) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll[op] = true
}

func (f *FlakySessionStore) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[WriteOp]int)
	f.failAll = make(map[WriteOp]bool)
}

// Block makes every write wait until the returned release func is called
// or the write's context is cancelled.
func (f *FlakySessionStore) Block() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.block = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.block == ch {
				f.block = nil
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns a copy of the recorded writes.
func (f *FlakySessionStore) Calls() []WriteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WriteCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the recorded writes of op.
func (f *FlakySessionStore) CallsFor(op WriteOp) []WriteCall {
	var out []WriteCall
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *FlakySessionStore) write(ctx context.Context, op WriteOp, id string, dur int64, fn func() error) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			f.record(WriteCall{Op: op, SessionID: id, DurationSeconds: dur, Err: ctx.Err()})
			return ctx.Err()
		}
	}

	f.mu.Lock()
	var err error
	if f.failAll[op] {
		err = ErrInjected
	} else if f.failures[op] > 0 {
		f.failures[op]--
		err = ErrInjected
	}
	f.mu.Unlock()

	if err == nil {
		err = fn()
	}
	f.record(WriteCall{Op: op, SessionID: id, DurationSeconds: dur, Err: err})
	return err
}

func (f *FlakySessionStore) record(c WriteCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *FlakySessionStore) Create(ctx context.Context, s *domain.TrackedSession) error {
	return f.write(ctx, OpCreate, s.ID, s.DurationSeconds, func() error {
		return f.SessionStore.Create(ctx, s)
	})
}

func (f *FlakySessionStore) Upsert(ctx context.Context, s *domain.TrackedSession) error {
	return f.write(ctx, OpUpsert, s.ID, s.DurationSeconds, func() error {
		return f.SessionStore.Upsert(ctx, s)
	})
}

func (f *FlakySessionStore) Finalize(ctx context.Context, s *domain.TrackedSession) error {
	return f.write(ctx, OpFinalize, s.ID, s.DurationSeconds, func() error {
		return f.SessionStore.Finalize(ctx, s)
	})
}

func (f *FlakySessionStore) DeleteActive(ctx context.Context, id string) error {
	return f.write(ctx, OpDelete, id, 0, func() error {
		return f.SessionStore.DeleteActive(ctx, id)
	})
}
