package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisRepo(t *testing.T) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSessionRepository(client, time.Hour), mr
}

func TestRedisSessionRepository_SetGetDelete(t *testing.T) {
	repo, _ := newMiniredisRepo(t)
	ctx := context.Background()

	session := testSession("s1", time.Hour)
	require.NoError(t, repo.SetSession(ctx, session))

	stored, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, session.Email, stored.Email)
	assert.Equal(t, session.Role, stored.Role)

	require.NoError(t, repo.DeleteSession(ctx, "s1"))

	stored, err = repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRedisSessionRepository_TTLFollowsExpiry(t *testing.T) {
	repo, mr := newMiniredisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, testSession("s1", 30*time.Minute)))

	ttl := mr.TTL("session:s1")
	assert.Greater(t, ttl, 29*time.Minute)
	assert.LessOrEqual(t, ttl, 30*time.Minute)
}

func TestRedisSessionRepository_SessionExpires(t *testing.T) {
	repo, mr := newMiniredisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, testSession("s1", time.Minute)))

	mr.FastForward(2 * time.Minute)

	stored, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRedisSessionRepository_RateLimit(t *testing.T) {
	repo, mr := newMiniredisRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "login:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := repo.CheckRateLimit(ctx, "login:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Window reset clears the counter.
	mr.FastForward(2 * time.Minute)
	allowed, err = repo.CheckRateLimit(ctx, "login:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
