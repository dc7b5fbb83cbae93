package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(id string, ttl time.Duration) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:        id,
		UserID:    "u1",
		Email:     "ana@example.com",
		Name:      "Ana",
		Role:      models.RoleClient,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemorySessionRepository_SetGetDelete(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	session := testSession("s1", time.Hour)
	require.NoError(t, repo.SetSession(ctx, session))

	stored, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "u1", stored.UserID)

	require.NoError(t, repo.DeleteSession(ctx, "s1"))

	stored, err = repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestMemorySessionRepository_ExpiredSessionGone(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, testSession("s1", -time.Minute)))

	stored, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestMemorySessionRepository_RateLimit(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := repo.CheckRateLimit(ctx, "login:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different key has its own budget.
	allowed, err = repo.CheckRateLimit(ctx, "login:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
