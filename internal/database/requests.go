package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/google/uuid"
)

const requestColumns = `id, user_id, user_email, user_name, preferences, status, created_at, updated_at, version`

func (db *DB) CreateTravelRequest(ctx context.Context, req *models.TravelRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	prefs, err := json.Marshal(req.Preferences)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO travel_requests (
				id, user_id, user_email, user_name, preferences,
				status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.UserEmail,
		req.UserName,
		string(prefs),
		req.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create travel request: %w", err)
	}

	req.CreatedAt = now
	req.UpdatedAt = now
	req.Version = 1
	return nil
}

func (db *DB) GetTravelRequest(ctx context.Context, id string) (*models.TravelRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM travel_requests WHERE id = ?`
	return scanRequest(db.QueryRowContext(ctx, query, id))
}

// GetUserTravelRequests returns the caller's requests, newest first.
func (db *DB) GetUserTravelRequests(ctx context.Context, userID string) ([]*models.TravelRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM travel_requests
              WHERE user_id = ? ORDER BY created_at DESC`
	return db.queryRequests(ctx, query, userID)
}

// GetAllTravelRequests returns every request, newest first (agency view).
func (db *DB) GetAllTravelRequests(ctx context.Context) ([]*models.TravelRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM travel_requests ORDER BY created_at DESC`
	return db.queryRequests(ctx, query)
}

func (db *DB) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*models.TravelRequest, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query travel requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.TravelRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate travel requests: %w", err)
	}
	return requests, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*models.TravelRequest, error) {
	req := &models.TravelRequest{}
	var prefs string
	err := row.Scan(
		&req.ID, &req.UserID, &req.UserEmail, &req.UserName, &prefs,
		&req.Status, &req.CreatedAt, &req.UpdatedAt, &req.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan travel request: %w", err)
	}
	if err := json.Unmarshal([]byte(prefs), &req.Preferences); err != nil {
		return nil, fmt.Errorf("failed to decode preferences for request %s: %w", req.ID, err)
	}
	return req, nil
}
