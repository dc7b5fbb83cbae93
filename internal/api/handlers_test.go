package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/config"
	"github.com/Diegogs92/vuelavuela/internal/database"
	"github.com/Diegogs92/vuelavuela/internal/events"
	"github.com/Diegogs92/vuelavuela/internal/models"
	"github.com/Diegogs92/vuelavuela/internal/repository"
	"github.com/Diegogs92/vuelavuela/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server   *Server
	db       *database.DB
	sessions *service.SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.App.BaseURL = "http://localhost:3000"
	cfg.API.Port = 8080
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.SessionTTL = time.Hour

	sessionRepo := repository.NewMemorySessionRepository(time.Hour)
	sessions := service.NewSessionService(sessionRepo, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, &logger)

	bus := events.NewEventBus()
	travel := service.NewTravelService(db, bus, nil, &logger)

	catalog := &models.Catalog{
		Destinations:      []string{"Bariloche", "Mendoza"},
		AccommodationType: []string{"Hotel 4 estrellas"},
		Activities:        []string{"Montaña"},
	}

	server := NewServer(cfg, db, travel, sessions, catalog, &logger)
	return &testEnv{server: server, db: db, sessions: sessions}
}

// login provisions a user and returns a bearer token for it.
func (e *testEnv) login(t *testing.T, email, role string) (*models.User, string) {
	t.Helper()
	user := &models.User{Email: email, Name: "Test " + email, Role: role}
	require.NoError(t, e.db.UpsertUser(context.Background(), user))

	token, _, err := e.sessions.Create(context.Background(), user)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func prefsBody() map[string]any {
	return map[string]any{
		"travel_period": map[string]any{
			"start_date": "2026-09-10",
			"end_date":   "2026-09-20",
			"flexible":   true,
		},
		"days_available":     10,
		"passengers":         map[string]any{"adults": 2, "children": 0, "babies": 0},
		"destinations":       []string{"Bariloche"},
		"accommodation_type": []string{"Hotel 4 estrellas"},
		"activities":         []string{"Montaña"},
		"other_preferences":  "",
	}
}

func (e *testEnv) submitRequest(t *testing.T, token string) models.TravelRequest {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/travel-requests", token, prefsBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var request models.TravelRequest
	decodeJSON(t, rec, &request)
	return request
}

func (e *testEnv) createQuote(t *testing.T, agentToken, requestID string) models.Quote {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/quotes", agentToken, map[string]any{
		"request_id":  requestID,
		"title":       "Escapada a Bariloche",
		"description": "7 noches",
		"itinerary":   "Día 1: llegada",
		"price":       "1499.90",
		"currency":    "USD",
		"valid_until": "2026-09-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Quote models.Quote `json:"quote"`
	}
	decodeJSON(t, rec, &resp)
	return resp.Quote
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalog_Public(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog models.Catalog
	decodeJSON(t, rec, &catalog)
	assert.Contains(t, catalog.Destinations, "Bariloche")
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/travel-requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/travel-requests", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitAndListTravelRequests(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(t, "ana@example.com", models.RoleClient)
	_, otherToken := env.login(t, "bob@example.com", models.RoleClient)

	created := env.submitRequest(t, token)
	assert.Equal(t, models.StatusPending, created.Status)

	var listing struct {
		Requests []models.TravelRequest `json:"requests"`
	}
	rec := env.do(t, http.MethodGet, "/api/v1/travel-requests", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &listing)
	require.Len(t, listing.Requests, 1)
	assert.Equal(t, created.ID, listing.Requests[0].ID)

	// The other client sees nothing.
	rec = env.do(t, http.MethodGet, "/api/v1/travel-requests", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &listing)
	assert.Empty(t, listing.Requests)
}

func TestSubmitTravelRequest_BadInput(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(t, "ana@example.com", models.RoleClient)

	body := prefsBody()
	body["destinations"] = []string{}
	rec := env.do(t, http.MethodPost, "/api/v1/travel-requests", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/travel-requests", token, map[string]any{"unexpected": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEndpoints_RequireAgentRole(t *testing.T) {
	env := newTestEnv(t)
	_, clientToken := env.login(t, "ana@example.com", models.RoleClient)
	_, agentToken := env.login(t, "agency@example.com", models.RoleAgent)

	env.submitRequest(t, clientToken)

	rec := env.do(t, http.MethodGet, "/api/v1/admin/travel-requests", clientToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/travel-requests", agentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Requests []models.TravelRequest `json:"requests"`
	}
	decodeJSON(t, rec, &listing)
	assert.Len(t, listing.Requests, 1)
}

func TestAdminRequestByID_IncludesQuotes(t *testing.T) {
	env := newTestEnv(t)
	_, clientToken := env.login(t, "ana@example.com", models.RoleClient)
	_, agentToken := env.login(t, "agency@example.com", models.RoleAgent)

	request := env.submitRequest(t, clientToken)
	quote := env.createQuote(t, agentToken, request.ID)

	rec := env.do(t, http.MethodGet, "/api/v1/admin/travel-requests/"+request.ID, agentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Request models.TravelRequest `json:"request"`
		Quotes  []models.Quote       `json:"quotes"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, models.StatusQuoted, resp.Request.Status)
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, quote.ID, resp.Quotes[0].ID)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/travel-requests/missing", agentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport_ReturnsWorkbook(t *testing.T) {
	env := newTestEnv(t)
	_, clientToken := env.login(t, "ana@example.com", models.RoleClient)
	_, agentToken := env.login(t, "agency@example.com", models.RoleAgent)

	env.submitRequest(t, clientToken)

	rec := env.do(t, http.MethodGet, "/api/v1/admin/export", agentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestCreateQuote_ClientForbidden(t *testing.T) {
	env := newTestEnv(t)
	_, clientToken := env.login(t, "ana@example.com", models.RoleClient)

	request := env.submitRequest(t, clientToken)

	rec := env.do(t, http.MethodPost, "/api/v1/quotes", clientToken, map[string]any{
		"request_id": request.ID,
		"title":      "hack",
		"price":      "1",
		"currency":   "USD",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateQuote_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, agentToken := env.login(t, "agency@example.com", models.RoleAgent)

	rec := env.do(t, http.MethodPost, "/api/v1/quotes", agentToken, map[string]any{
		"request_id": "",
		"title":      "x",
		"price":      "1",
		"currency":   "USD",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quotes", agentToken, map[string]any{
		"request_id":  "req",
		"title":       "x",
		"price":       "1",
		"currency":    "USD",
		"valid_until": "01/09/2026",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteLifecycle_Accept(t *testing.T) {
	env := newTestEnv(t)
	_, clientToken := env.login(t, "ana@example.com", models.RoleClient)
	_, agentToken := env.login(t, "agency@example.com", models.RoleAgent)

	request := env.submitRequest(t, clientToken)
	quote := env.createQuote(t, agentToken, request.ID)

	// Owner sees the quote.
	rec := env.do(t, http.MethodGet, "/api/v1/quotes/"+quote.ID, clientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/quotes/%s/accept", quote.ID), clientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var accepted models.Quote
	decodeJSON(t, rec, &accepted)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	// A second decision must bounce.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/quotes/%s/reject", quote.ID), clientToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuote_OwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.login(t, "ana@example.com", models.RoleClient)
	_, intruderToken := env.login(t, "bob@example.com", models.RoleClient)
	_, agentToken := env.login(t, "agency@example.com", models.RoleAgent)

	request := env.submitRequest(t, ownerToken)
	quote := env.createQuote(t, agentToken, request.ID)

	rec := env.do(t, http.MethodGet, "/api/v1/quotes/"+quote.ID, intruderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/quotes/%s/accept", quote.ID), intruderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Agent may read but a missing quote is still a 404.
	rec = env.do(t, http.MethodGet, "/api/v1/quotes/"+quote.ID, agentToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/quotes/missing", agentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuote_UnknownAction(t *testing.T) {
	env := newTestEnv(t)
	_, clientToken := env.login(t, "ana@example.com", models.RoleClient)

	rec := env.do(t, http.MethodPost, "/api/v1/quotes/some-id/maybe", clientToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOwnQuotes(t *testing.T) {
	env := newTestEnv(t)
	_, clientToken := env.login(t, "ana@example.com", models.RoleClient)
	_, otherToken := env.login(t, "bob@example.com", models.RoleClient)
	_, agentToken := env.login(t, "agency@example.com", models.RoleAgent)

	request := env.submitRequest(t, clientToken)
	quote := env.createQuote(t, agentToken, request.ID)

	var listing struct {
		Quotes []models.Quote `json:"quotes"`
	}
	rec := env.do(t, http.MethodGet, "/api/v1/quotes", clientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &listing)
	require.Len(t, listing.Quotes, 1)
	assert.Equal(t, quote.ID, listing.Quotes[0].ID)

	rec = env.do(t, http.MethodGet, "/api/v1/quotes", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &listing)
	assert.Empty(t, listing.Quotes)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.login(t, "ana@example.com", models.RoleClient)

	rec := env.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me models.User
	decodeJSON(t, rec, &me)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "ana@example.com", me.Email)
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(t, "ana@example.com", models.RoleClient)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.server.cfg.API.RateLimit.RPS = 1
	env.server.cfg.API.RateLimit.Burst = 1

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
