package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/google/uuid"
)

// UpsertUser inserts a user on first login and refreshes profile fields
// on every subsequent one. The email is the natural key; the generated
// document ID stays stable across logins.
func (db *DB) UpsertUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastLoginAt = now

	query := `INSERT INTO users (id, email, name, picture, role, created_at, last_login_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(email) DO UPDATE SET
                name = excluded.name,
                picture = excluded.picture,
                role = excluded.role,
                last_login_at = excluded.last_login_at`
	_, err := db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Picture,
		user.Role,
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	// The conflict path keeps the original row ID; read it back.
	stored, err := db.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("failed to reload user after upsert: %w", err)
	}
	user.ID = stored.ID
	user.CreatedAt = stored.CreatedAt
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, name, picture, role, created_at, last_login_at
              FROM users WHERE id = ?`
	return db.queryUser(ctx, query, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, name, picture, role, created_at, last_login_at
              FROM users WHERE email = ?`
	return db.queryUser(ctx, query, email)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	var picture sql.NullString
	var lastLogin sql.NullTime
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.Name, &picture, &user.Role, &user.CreatedAt, &lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Picture = picture.String
	if lastLogin.Valid {
		user.LastLoginAt = lastLogin.Time
	}
	return &user, nil
}
