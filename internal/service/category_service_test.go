package service

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/tally/internal/repository"
	"github.com/alexanderramin/tally/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategory_CreateValidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.categorySvc.Create(ctx, testutil.TestUserID, "  ", 100)
	assert.Error(t, err)
	_, err = h.categorySvc.Create(ctx, testutil.TestUserID, "Neg", -5)
	assert.Error(t, err)

	c, err := h.categorySvc.Create(ctx, testutil.TestUserID, " Writing ", 4500)
	require.NoError(t, err)
	assert.Equal(t, "Writing", c.Name)

	_, err = h.categorySvc.Create(ctx, testutil.TestUserID, "Writing", 1)
	assert.Error(t, err, "duplicate names are rejected")
}

func TestCategory_Resolve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Design", 9000)

	byID, err := h.categorySvc.Resolve(ctx, testutil.TestUserID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byID.ID)

	byName, err := h.categorySvc.Resolve(ctx, testutil.TestUserID, "Design")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)

	_, err = h.categorySvc.Resolve(ctx, testutil.TestUserID, "Nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCategory_RateChangeDoesNotAffectRunningTimer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Client", 6000)

	_, err := h.tracking.StartTimer(ctx, "task-a", &c.ID)
	require.NoError(t, err)
	h.tickFor(30 * time.Minute)

	require.NoError(t, h.categorySvc.UpdateRate(ctx, c.ID, 12000))
	h.tickFor(30 * time.Minute)

	res, err := h.tracking.StopTimer(ctx, "task-a")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), res.EarningsCents)
	assert.Equal(t, int64(6000), res.HourlyRateCents)

	updated, err := h.categorySvc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), updated.HourlyRateCents)

	assert.Error(t, h.categorySvc.UpdateRate(ctx, c.ID, -1))
}
