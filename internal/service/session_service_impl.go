package service

import (
	"context"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/repository"
)

type sessionService struct {
	sessions repository.SessionRepo
}

func NewSessionService(sessions repository.SessionRepo) SessionService {
	return &sessionService{sessions: sessions}
}

func (s *sessionService) ListFinalized(ctx context.Context, userID string, from, to *time.Time) ([]*domain.TrackedSession, error) {
	return s.sessions.ListFinalized(ctx, userID, from, to)
}

func (s *sessionService) ListActive(ctx context.Context, userID string) ([]*domain.TrackedSession, error) {
	return s.sessions.ListActive(ctx, userID)
}

func (s *sessionService) GetByID(ctx context.Context, id string) (*domain.TrackedSession, error) {
	return s.sessions.GetByID(ctx, id)
}
