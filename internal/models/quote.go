package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"request_id"`
	UserID      string          `json:"user_id"` // owner, copied from the travel request
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Itinerary   string          `json:"itinerary"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	ValidUntil  time.Time       `json:"valid_until"` // advisory, not enforced on respond
	Status      string          `json:"status"`      // pending, accepted, rejected
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int64           `json:"version"`
}
