package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Diegogs92/vuelavuela/internal/domain"
	"github.com/Diegogs92/vuelavuela/internal/events"
	"github.com/Diegogs92/vuelavuela/internal/metrics"
	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrForbidden means the session is valid but the caller does not
	// own the document it is acting on.
	ErrForbidden = errors.New("resource not owned by caller")

	ErrInvalidDecision = errors.New("decision must be accept or reject")

	// ErrValidation marks bad input from the client form or the agency
	// console; handlers translate it to a 400.
	ErrValidation = errors.New("validation failed")
)

// TravelService coordinates the request/quote lifecycle. Persistence
// must succeed; events (and the notifications behind them) are
// best-effort and never fail a transition.
type TravelService struct {
	store      domain.Store
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	logger     *zerolog.Logger
}

func NewTravelService(store domain.Store, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, logger *zerolog.Logger) *TravelService {
	return &TravelService{
		store:      store,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		logger:     logger,
	}
}

func (s *TravelService) SubmitTravelRequest(ctx context.Context, prefs models.TravelPreferences, user *models.User) (*models.TravelRequest, error) {
	if err := validatePreferences(prefs); err != nil {
		return nil, err
	}

	request := &models.TravelRequest{
		UserID:      user.ID,
		UserEmail:   user.Email,
		UserName:    user.Name,
		Preferences: prefs,
		Status:      models.StatusPending,
	}

	if err := s.store.CreateTravelRequest(ctx, request); err != nil {
		return nil, err
	}

	metrics.IncTransition("request", models.StatusPending)
	s.publishEvent(events.EventRequestSubmitted, request, nil)
	s.enqueueUpsert(ctx, request)

	return request, nil
}

func (s *TravelService) GetTravelRequest(ctx context.Context, id string) (*models.TravelRequest, error) {
	return s.store.GetTravelRequest(ctx, id)
}

func (s *TravelService) ListUserRequests(ctx context.Context, userID string) ([]*models.TravelRequest, error) {
	return s.store.GetUserTravelRequests(ctx, userID)
}

func (s *TravelService) ListAllRequests(ctx context.Context) ([]*models.TravelRequest, error) {
	return s.store.GetAllTravelRequests(ctx)
}

// CreateQuote inserts a pending quote and flips the request to quoted
// in one transaction; ownership of the quote is derived from the
// request, never from the caller's input.
func (s *TravelService) CreateQuote(ctx context.Context, quote *models.Quote) (*models.TravelRequest, error) {
	if err := validateQuote(quote); err != nil {
		return nil, err
	}

	request, err := s.store.CreateQuoteForRequest(ctx, quote)
	if err != nil {
		return nil, err
	}

	metrics.IncTransition("request", request.Status)
	metrics.IncTransition("quote", quote.Status)
	s.publishEvent(events.EventQuoteCreated, request, quote)
	s.enqueueStatus(ctx, request.ID, request.Status)

	return request, nil
}

func (s *TravelService) ListUserQuotes(ctx context.Context, userID string) ([]*models.Quote, error) {
	return s.store.GetUserQuotes(ctx, userID)
}

func (s *TravelService) ListRequestQuotes(ctx context.Context, requestID string) ([]*models.Quote, error) {
	return s.store.GetRequestQuotes(ctx, requestID)
}

// GetQuoteForUser loads a quote and enforces ownership. Agents may read
// any quote; clients only their own.
func (s *TravelService) GetQuoteForUser(ctx context.Context, quoteID string, user *models.User) (*models.Quote, error) {
	quote, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.UserID != user.ID && !user.IsAgent() {
		return nil, ErrForbidden
	}
	return quote, nil
}

// RespondToQuote applies the client's accept/reject decision. The store
// performs the compare-and-set; a quote answers exactly once. The
// expiry date on the quote is advisory and deliberately not checked.
func (s *TravelService) RespondToQuote(ctx context.Context, quoteID, decision string, user *models.User) (*models.Quote, error) {
	var status string
	switch decision {
	case models.DecisionAccept:
		status = models.StatusAccepted
	case models.DecisionReject:
		status = models.StatusRejected
	default:
		return nil, ErrInvalidDecision
	}

	quote, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.UserID != user.ID {
		return nil, ErrForbidden
	}

	if err := s.store.RespondQuote(ctx, quote.ID, quote.Version, status); err != nil {
		return nil, err
	}

	quote.Status = status
	quote.Version++

	request, err := s.store.GetTravelRequest(ctx, quote.RequestID)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", quote.RequestID).Msg("reload request after response")
		request = nil
	}

	metrics.IncTransition("quote", status)
	metrics.IncTransition("request", status)

	eventType := events.EventQuoteAccepted
	if status == models.StatusRejected {
		eventType = events.EventQuoteRejected
	}
	s.publishEvent(eventType, request, quote)
	s.enqueueStatus(ctx, quote.RequestID, status)

	return quote, nil
}

func validatePreferences(prefs models.TravelPreferences) error {
	if len(prefs.Destinations) == 0 {
		return fmt.Errorf("%w: at least one destination is required", ErrValidation)
	}
	if prefs.Passengers.Adults < 1 {
		return fmt.Errorf("%w: at least one adult passenger is required", ErrValidation)
	}
	if prefs.Passengers.Children < 0 || prefs.Passengers.Babies < 0 {
		return fmt.Errorf("%w: passenger counts cannot be negative", ErrValidation)
	}
	if prefs.DaysAvailable < 0 {
		return fmt.Errorf("%w: days available cannot be negative", ErrValidation)
	}
	return nil
}

func validateQuote(quote *models.Quote) error {
	if quote.RequestID == "" {
		return fmt.Errorf("%w: request_id is required", ErrValidation)
	}
	if strings.TrimSpace(quote.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if quote.Price.IsNegative() || quote.Price.IsZero() {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if len(quote.Currency) != 3 {
		return fmt.Errorf("%w: invalid currency code %q", ErrValidation, quote.Currency)
	}
	quote.Currency = strings.ToUpper(quote.Currency)
	return nil
}

func (s *TravelService) publishEvent(eventType string, request *models.TravelRequest, quote *models.Quote) {
	if s.eventBus == nil {
		return
	}

	payload := events.LifecyclePayload{Request: request, Quote: quote}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func (s *TravelService) enqueueUpsert(ctx context.Context, request *models.TravelRequest) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueUpsert(ctx, request); err != nil {
		s.logger.Error().Err(err).Str("request_id", request.ID).Msg("sheets enqueue error")
	}
}

func (s *TravelService) enqueueStatus(ctx context.Context, requestID, status string) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueStatus(ctx, requestID, status); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Str("status", status).Msg("sheets enqueue error")
	}
}
