package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/config"
	"github.com/Diegogs92/vuelavuela/internal/database"
	"github.com/Diegogs92/vuelavuela/internal/domain"
	"github.com/Diegogs92/vuelavuela/internal/metrics"
	"github.com/Diegogs92/vuelavuela/internal/models"
	"github.com/Diegogs92/vuelavuela/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	goauth2 "google.golang.org/api/oauth2/v2"
)

const (
	sessionCookieName = "vv_session"
	stateCookieName   = "vv_oauth_state"
)

// Server is the public HTTP API: Google sign-in, the client request and
// quote endpoints and the agency console endpoints.
type Server struct {
	cfg      *config.Config
	store    domain.Store
	travel   *service.TravelService
	sessions *service.SessionService
	catalog  *models.Catalog
	oauth    *oauth2.Config
	server   *http.Server
	logger   *zerolog.Logger
	limiters sync.Map // map[string]*rate.Limiter
}

func NewServer(cfg *config.Config, store domain.Store, travel *service.TravelService, sessions *service.SessionService, catalog *models.Catalog, logger *zerolog.Logger) *Server {
	srv := &Server{
		cfg:      cfg,
		store:    store,
		travel:   travel,
		sessions: sessions,
		catalog:  catalog,
		logger:   logger,
	}

	srv.oauth = &oauth2.Config{
		ClientID:     cfg.Auth.Google.ClientID,
		ClientSecret: cfg.Auth.Google.ClientSecret,
		RedirectURL:  cfg.Auth.Google.RedirectURL,
		Scopes:       []string{goauth2.UserinfoEmailScope, goauth2.UserinfoProfileScope},
		Endpoint:     google.Endpoint,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/api/v1/auth/google/login", srv.handleGoogleLogin)
	mux.HandleFunc("/api/v1/auth/google/callback", srv.handleGoogleCallback)
	mux.HandleFunc("/api/v1/auth/logout", srv.withSession(srv.handleLogout))
	mux.HandleFunc("/api/v1/me", srv.withSession(srv.handleMe))
	mux.HandleFunc("/api/v1/catalog", srv.handleCatalog)
	mux.HandleFunc("/api/v1/travel-requests", srv.withSession(srv.handleTravelRequests))
	mux.HandleFunc("/api/v1/admin/travel-requests", srv.withAgent(srv.handleAdminRequests))
	mux.HandleFunc("/api/v1/admin/travel-requests/", srv.withAgent(srv.handleAdminRequestByID))
	mux.HandleFunc("/api/v1/admin/export", srv.withAgent(srv.handleExport))
	mux.HandleFunc("/api/v1/quotes", srv.withSession(srv.handleQuotes))
	mux.HandleFunc("/api/v1/quotes/", srv.withSession(srv.handleQuoteByID))

	handler := srv.loggingMiddleware(srv.rateLimitMiddleware(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.API.RateLimit.RPS > 0 {
			lim := s.getLimiter(remoteHost(r))
			if !lim.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getLimiter(key string) *rate.Limiter {
	if v, ok := s.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := s.cfg.API.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(s.cfg.API.RateLimit.RPS), burst)
	actual, loaded := s.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses document ids so metric cardinality stays flat.
func endpointLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/quotes/"):
		rest := strings.TrimPrefix(path, "/api/v1/quotes/")
		if strings.HasSuffix(rest, "/accept") {
			return "/api/v1/quotes/{id}/accept"
		}
		if strings.HasSuffix(rest, "/reject") {
			return "/api/v1/quotes/{id}/reject"
		}
		return "/api/v1/quotes/{id}"
	case strings.HasPrefix(path, "/api/v1/admin/travel-requests/"):
		return "/api/v1/admin/travel-requests/{id}"
	default:
		return path
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrAlreadyResponded):
		writeError(w, http.StatusBadRequest, "quote already responded")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "document changed, retry")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrInvalidDecision), errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
