package domain

import (
	"context"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"
)

// Store is the document store shared by the lifecycle services.
type Store interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateTravelRequest(ctx context.Context, req *models.TravelRequest) error
	GetTravelRequest(ctx context.Context, id string) (*models.TravelRequest, error)
	GetUserTravelRequests(ctx context.Context, userID string) ([]*models.TravelRequest, error)
	GetAllTravelRequests(ctx context.Context) ([]*models.TravelRequest, error)

	CreateQuoteForRequest(ctx context.Context, quote *models.Quote) (*models.TravelRequest, error)
	GetQuote(ctx context.Context, id string) (*models.Quote, error)
	GetUserQuotes(ctx context.Context, userID string) ([]*models.Quote, error)
	GetRequestQuotes(ctx context.Context, requestID string) ([]*models.Quote, error)
	RespondQuote(ctx context.Context, quoteID string, fromVersion int64, status string) error
}

// SessionRepository keeps bearer sessions; redis in production with an
// in-memory fallback behind the failover wrapper.
type SessionRepository interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Mailer delivers a single transactional email. Implementations never
// retry; callers treat failures as log-only.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SheetsWriter mirrors travel requests into the agency spreadsheet.
type SheetsWriter interface {
	UpsertRequest(ctx context.Context, req *models.TravelRequest) error
	UpdateRequestStatus(ctx context.Context, requestID, status string) error
}

// SyncWorker schedules best-effort spreadsheet synchronization.
type SyncWorker interface {
	EnqueueUpsert(ctx context.Context, req *models.TravelRequest) error
	EnqueueStatus(ctx context.Context, requestID, status string) error
}
