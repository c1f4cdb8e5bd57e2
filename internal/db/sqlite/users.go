package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/db"
)

// CreateUser creates a new account and returns its ID
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (uuid.UUID, error) {
	id := uuid.New()
	ts := s.timestamp()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), username, email, passwordHash, ts, ts)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

// GetUser retrieves a user by ID. Returns nil, nil when not found.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*db.User, error) {
	return s.getUser(ctx, `SELECT id, username, email, password_hash, created_at, updated_at
		FROM users WHERE id = ?`, id.String())
}

// GetUserByUsername retrieves a user by username. Returns nil, nil when not found.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, nil
	}
	return s.getUser(ctx, `SELECT id, username, email, password_hash, created_at, updated_at
		FROM users WHERE username = ?`, username)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*db.User, error) {
	var u db.User
	var created, updated string
	err := s.conn.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = parseTimestamp(created), parseTimestamp(updated)
	return &u, nil
}

// CheckUsernameExists reports whether the username is taken
func (s *Store) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// DeleteUser deletes a user and, via cascade, all of their résumés
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, db.ErrNotFound)
	}
	return nil
}
