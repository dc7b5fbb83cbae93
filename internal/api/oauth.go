package api

import (
	"net/http"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/google/uuid"
	"google.golang.org/api/option"

	goauth2 "google.golang.org/api/oauth2/v2"
)

// handleGoogleLogin starts the OAuth dance. The state nonce lives in a
// short cookie and is checked on callback.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.sessions.CheckLoginRateLimit(r.Context(), remoteHost(r)) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	clearCookie(w, stateCookieName)

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	ctx := r.Context()
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Msg("oauth exchange failed")
		writeError(w, http.StatusUnauthorized, "oauth exchange failed")
		return
	}

	oauthService, err := goauth2.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, token)))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	info, err := oauthService.Userinfo.Get().Context(ctx).Do()
	if err != nil || info.Email == "" {
		s.logger.Warn().Err(err).Msg("userinfo fetch failed")
		writeError(w, http.StatusUnauthorized, "unable to resolve google account")
		return
	}

	role := models.RoleClient
	if s.cfg.IsAgentEmail(info.Email) {
		role = models.RoleAgent
	}

	user := &models.User{
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
		Role:    role,
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		s.writeServiceError(w, err)
		return
	}

	sessionToken, session, err := s.sessions.Create(ctx, user)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.cfg.App.BaseURL+"/dashboard", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session := sessionFrom(r.Context())
	if err := s.sessions.Revoke(r.Context(), session.ID); err != nil {
		s.writeServiceError(w, err)
		return
	}

	clearCookie(w, sessionCookieName)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
