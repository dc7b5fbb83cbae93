package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Diegogs92/vuelavuela/internal/models"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

// withSession rejects the request with a 401 unless it carries a live
// session, as a bearer token or the session cookie.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(sessionCookieName); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		session, err := s.sessions.Verify(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey, session)
		next(w, r.WithContext(ctx))
	}
}

// withAgent additionally requires the agency role.
func (s *Server) withAgent(next http.HandlerFunc) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r.Context()).Role != models.RoleAgent {
			writeError(w, http.StatusForbidden, "agent role required")
			return
		}
		next(w, r)
	})
}

func sessionFrom(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionCtxKey).(*models.Session)
	return session
}

// userFrom rebuilds the acting user from the session record.
func userFrom(ctx context.Context) *models.User {
	session := sessionFrom(ctx)
	if session == nil {
		return nil
	}
	return &models.User{
		ID:    session.UserID,
		Email: session.Email,
		Name:  session.Name,
		Role:  session.Role,
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
