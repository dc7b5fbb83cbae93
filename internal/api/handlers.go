package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/shopspring/decimal"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.catalog)
}

// handleMe returns the fresh user document so a role change takes effect
// without a new login.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session := sessionFrom(r.Context())
	user, err := s.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleTravelRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTravelRequest(w, r)
	case http.MethodGet:
		s.listOwnRequests(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createTravelRequest(w http.ResponseWriter, r *http.Request) {
	var prefs models.TravelPreferences
	if err := decodeBody(r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	request, err := s.travel.SubmitTravelRequest(r.Context(), prefs, userFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (s *Server) listOwnRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.travel.ListUserRequests(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s *Server) handleAdminRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	requests, err := s.travel.ListAllRequests(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s *Server) handleAdminRequestByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/travel-requests/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	request, err := s.travel.GetTravelRequest(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	quotes, err := s.travel.ListRequestQuotes(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"request": request, "quotes": quotes})
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createQuote(w, r)
	case http.MethodGet:
		s.listOwnQuotes(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type quotePayload struct {
	RequestID   string          `json:"request_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Itinerary   string          `json:"itinerary"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	ValidUntil  string          `json:"valid_until"` // YYYY-MM-DD, optional
}

func (s *Server) createQuote(w http.ResponseWriter, r *http.Request) {
	if sessionFrom(r.Context()).Role != models.RoleAgent {
		writeError(w, http.StatusForbidden, "agent role required")
		return
	}

	var body quotePayload
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	quote := &models.Quote{
		RequestID:   body.RequestID,
		Title:       body.Title,
		Description: body.Description,
		Itinerary:   body.Itinerary,
		Price:       body.Price,
		Currency:    body.Currency,
	}
	if body.ValidUntil != "" {
		validUntil, err := time.Parse("2006-01-02", body.ValidUntil)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid valid_until; expected YYYY-MM-DD")
			return
		}
		quote.ValidUntil = validUntil
	}

	request, err := s.travel.CreateQuote(r.Context(), quote)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"quote": quote, "request": request})
}

func (s *Server) listOwnQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.travel.ListUserQuotes(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

// handleQuoteByID serves GET /quotes/{id} and POST /quotes/{id}/accept
// or /quotes/{id}/reject.
func (s *Server) handleQuoteByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/quotes/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.getQuote(w, r, parts[0])
	case len(parts) == 2 && parts[0] != "":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.respondQuote(w, r, parts[0], parts[1])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request, quoteID string) {
	quote, err := s.travel.GetQuoteForUser(r.Context(), quoteID, userFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) respondQuote(w http.ResponseWriter, r *http.Request, quoteID, action string) {
	var decision string
	switch action {
	case models.DecisionAccept, models.DecisionReject:
		decision = action
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	quote, err := s.travel.RespondToQuote(r.Context(), quoteID, decision, userFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
