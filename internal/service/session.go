package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/domain"
	"github.com/Diegogs92/vuelavuela/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidSession covers malformed, expired and revoked tokens alike;
// the API answers 401 without distinguishing.
var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SessionService issues signed bearer tokens backed by a server-side
// session record. A token is only honored while its session exists in
// the repository, so logout revokes immediately.
type SessionService struct {
	repo   domain.SessionRepository
	secret []byte
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewSessionService(repo domain.SessionRepository, secret string, ttl time.Duration, logger *zerolog.Logger) *SessionService {
	if ttl <= 0 {
		ttl = models.DefaultSessionTTL * time.Second
	}
	return &SessionService{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
	}
}

func (s *SessionService) Create(ctx context.Context, user *models.User) (string, *models.Session, error) {
	now := time.Now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.SetSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	claims := sessionClaims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}

	return token, session, nil
}

// Verify parses the bearer token and resolves the live session record.
func (s *SessionService) Verify(ctx context.Context, token string) (*models.Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.ID == "" {
		return nil, ErrInvalidSession
	}

	session, err := s.repo.GetSession(ctx, claims.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("session lookup failed")
		return nil, ErrInvalidSession
	}
	if session == nil {
		return nil, ErrInvalidSession
	}
	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return nil, ErrInvalidSession
	}

	return session, nil
}

func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}

// CheckLoginRateLimit caps login attempts per remote address.
func (s *SessionService) CheckLoginRateLimit(ctx context.Context, remoteAddr string) bool {
	allowed, err := s.repo.CheckRateLimit(ctx, "login:"+remoteAddr,
		models.LoginRateLimitAttempts, models.LoginRateLimitWindow*time.Second)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login rate limit check failed, allowing")
		return true
	}
	return allowed
}
