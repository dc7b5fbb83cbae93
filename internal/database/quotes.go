package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const quoteColumns = `id, request_id, user_id, title, description, itinerary, price, currency, valid_until, status, created_at, updated_at, version`

// CreateQuoteForRequest inserts the quote and flips the referenced
// travel request to quoted inside a single transaction. A crash can no
// longer leave a pending request with a live quote.
func (db *DB) CreateQuoteForRequest(ctx context.Context, quote *models.Quote) (*models.TravelRequest, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + requestColumns + ` FROM travel_requests WHERE id = ?`
	request, err := scanRequest(tx.QueryRowContext(ctx, query, quote.RequestID))
	if err != nil {
		return nil, err
	}

	if quote.ID == "" {
		quote.ID = uuid.NewString()
	}
	// The quote always belongs to the request's owner, regardless of
	// what the caller put in the body.
	quote.UserID = request.UserID

	now := time.Now()
	queryInsert := `INSERT INTO quotes (
				id, request_id, user_id, title, description, itinerary,
				price, currency, valid_until, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		quote.ID,
		quote.RequestID,
		quote.UserID,
		quote.Title,
		quote.Description,
		quote.Itinerary,
		quote.Price.String(),
		quote.Currency,
		quote.ValidUntil,
		models.StatusPending,
		now,
		now,
		1,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	queryUpdate := `UPDATE travel_requests SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, queryUpdate, models.StatusQuoted, now, quote.RequestID); err != nil {
		return nil, fmt.Errorf("failed to mark request as quoted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit quote creation: %w", err)
	}

	quote.Status = models.StatusPending
	quote.CreatedAt = now
	quote.UpdatedAt = now
	quote.Version = 1

	request.Status = models.StatusQuoted
	request.UpdatedAt = now
	request.Version++
	return request, nil
}

func (db *DB) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = ?`
	return scanQuote(db.QueryRowContext(ctx, query, id))
}

// GetUserQuotes returns the caller's quotes, newest first.
func (db *DB) GetUserQuotes(ctx context.Context, userID string) ([]*models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE user_id = ? ORDER BY created_at DESC`
	return db.queryQuotes(ctx, query, userID)
}

// GetRequestQuotes returns every quote attached to a request. The data
// model permits more than one; nothing reconciles them.
func (db *DB) GetRequestQuotes(ctx context.Context, requestID string) ([]*models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE request_id = ? ORDER BY created_at DESC`
	return db.queryQuotes(ctx, query, requestID)
}

// RespondQuote applies a client decision atomically: a compare-and-set
// on the quote's version and pending status, plus the request status
// update, inside one transaction. Exactly one of two concurrent
// responses wins; the loser gets ErrAlreadyResponded or
// ErrConcurrentModification.
func (db *DB) RespondQuote(ctx context.Context, quoteID string, fromVersion int64, status string) error {
	if status != models.StatusAccepted && status != models.StatusRejected {
		return fmt.Errorf("invalid response status: %s", status)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	queryCAS := `UPDATE quotes SET status = ?, version = version + 1, updated_at = ?
                 WHERE id = ? AND version = ? AND status = ?`
	result, err := tx.ExecContext(ctx, queryCAS, status, now, quoteID, fromVersion, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to update quote status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return db.classifyRespondConflict(ctx, tx, quoteID)
	}

	var requestID string
	err = tx.QueryRowContext(ctx, `SELECT request_id FROM quotes WHERE id = ?`, quoteID).Scan(&requestID)
	if err != nil {
		return fmt.Errorf("failed to resolve quote request: %w", err)
	}

	queryRequest := `UPDATE travel_requests SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, queryRequest, status, now, requestID); err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quote response: %w", err)
	}
	return nil
}

// classifyRespondConflict tells a stale version apart from a repeated
// response so the API can answer 400 instead of a bare conflict.
func (db *DB) classifyRespondConflict(ctx context.Context, tx *sql.Tx, quoteID string) error {
	var currentStatus string
	err := tx.QueryRowContext(ctx, `SELECT status FROM quotes WHERE id = ?`, quoteID).Scan(&currentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect quote after conflict: %w", err)
	}
	if currentStatus != models.StatusPending {
		return ErrAlreadyResponded
	}
	return ErrConcurrentModification
}

func (db *DB) queryQuotes(ctx context.Context, query string, args ...interface{}) ([]*models.Quote, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}
	return quotes, nil
}

func scanQuote(row rowScanner) (*models.Quote, error) {
	q := &models.Quote{}
	var price string
	var validUntil sql.NullTime
	err := row.Scan(
		&q.ID, &q.RequestID, &q.UserID, &q.Title, &q.Description, &q.Itinerary,
		&price, &q.Currency, &validUntil, &q.Status, &q.CreatedAt, &q.UpdatedAt, &q.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan quote: %w", err)
	}
	q.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quote price %q: %w", price, err)
	}
	if validUntil.Valid {
		q.ValidUntil = validUntil.Time
	}
	return q, nil
}
