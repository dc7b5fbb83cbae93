package service

import (
	"context"
	"testing"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"
	"github.com/Diegogs92/vuelavuela/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(t *testing.T, ttl time.Duration) *SessionService {
	t.Helper()
	logger := zerolog.Nop()
	repo := repository.NewMemorySessionRepository(ttl)
	return NewSessionService(repo, "test-secret", ttl, &logger)
}

func sessionUser() *models.User {
	return &models.User{
		ID:    "u1",
		Email: "ana@example.com",
		Name:  "Ana",
		Role:  models.RoleClient,
	}
}

func TestSessionCreateAndVerify(t *testing.T) {
	svc := newSessionService(t, time.Hour)
	ctx := context.Background()

	token, session, err := svc.Create(ctx, sessionUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, session.ID)

	verified, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", verified.UserID)
	assert.Equal(t, "ana@example.com", verified.Email)
	assert.Equal(t, models.RoleClient, verified.Role)
}

func TestSessionVerify_GarbageToken(t *testing.T) {
	svc := newSessionService(t, time.Hour)

	_, err := svc.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionVerify_UnknownSession(t *testing.T) {
	ctx := context.Background()
	issuer := newSessionService(t, time.Hour)
	verifier := newSessionService(t, time.Hour) // different repo, different state

	token, _, err := issuer.Create(ctx, sessionUser())
	require.NoError(t, err)

	// Same secret but the session record lives in the issuer's repo only.
	_, err = verifier.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionRevoke(t *testing.T) {
	svc := newSessionService(t, time.Hour)
	ctx := context.Background()

	token, session, err := svc.Create(ctx, sessionUser())
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, session.ID))

	// The signed token is still within its expiry but the session is gone.
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionExpiry(t *testing.T) {
	svc := newSessionService(t, time.Millisecond)
	ctx := context.Background()

	token, _, err := svc.Create(ctx, sessionUser())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestCheckLoginRateLimit(t *testing.T) {
	svc := newSessionService(t, time.Hour)
	ctx := context.Background()

	for i := 0; i < models.LoginRateLimitAttempts; i++ {
		assert.True(t, svc.CheckLoginRateLimit(ctx, "1.2.3.4"))
	}
	assert.False(t, svc.CheckLoginRateLimit(ctx, "1.2.3.4"))
	assert.True(t, svc.CheckLoginRateLimit(ctx, "5.6.7.8"))
}
