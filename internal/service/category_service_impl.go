package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/clock"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/repository"
	"github.com/google/uuid"
)

type categoryService struct {
	categories repository.CategoryRepo
	clock      clock.Clock
	observer   UseCaseObserver
}

func NewCategoryService(categories repository.CategoryRepo, clk clock.Clock, observers ...UseCaseObserver) CategoryService {
	return &categoryService{categories: categories, clock: clk, observer: useCaseObserverOrNoop(observers)}
}

func (s *categoryService) Create(ctx context.Context, userID, name string, hourlyRateCents int64) (c *domain.Category, err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "create-category", startedAt, map[string]any{"name": name}, &err)

	now := s.clock.Now()
	c = &domain.Category{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            strings.TrimSpace(name),
		HourlyRateCents: hourlyRateCents,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	if _, lookupErr := s.categories.GetByName(ctx, userID, c.Name); lookupErr == nil {
		return nil, fmt.Errorf("category %q already exists", c.Name)
	}
	if err = s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *categoryService) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *categoryService) Resolve(ctx context.Context, userID, ref string) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, ref)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	c, err = s.categories.GetByName(ctx, userID, ref)
	if err != nil {
		return nil, fmt.Errorf("resolving category %q: %w", ref, err)
	}
	return c, nil
}

func (s *categoryService) List(ctx context.Context, userID string) ([]*domain.Category, error) {
	return s.categories.List(ctx, userID)
}

// UpdateRate changes the rate for future timers. Running timers keep the
// rate they snapshotted at start.
func (s *categoryService) UpdateRate(ctx context.Context, id string, hourlyRateCents int64) (err error) {
	startedAt := time.Now()
	defer observe(ctx, s.observer, "update-category-rate", startedAt, map[string]any{"category_id": id}, &err)

	if hourlyRateCents < 0 {
		return fmt.Errorf("hourly rate must not be negative (got %s)", domain.FormatCents(hourlyRateCents))
	}
	return s.categories.UpdateRate(ctx, id, hourlyRateCents, s.clock.Now())
}
