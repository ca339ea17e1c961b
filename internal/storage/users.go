package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrCodeExpired is returned when a temp code exists but is too old.
var ErrCodeExpired = errors.New("code expired")

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = "USER"
	}

	now := time.Now().UnixMilli()
	if u.CreatedAtUnixMs == 0 {
		u.CreatedAtUnixMs = now
	}
	u.UpdatedAtUnixMs = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, temp_code, temp_code_at_unix_ms, created_at_unix_ms, updated_at_unix_ms)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.Role, u.TempCode, u.TempCodeAtMs, u.CreatedAtUnixMs, u.UpdatedAtUnixMs)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("user with email %s already exists", u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser looks up a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, temp_code, temp_code_at_unix_ms, created_at_unix_ms, updated_at_unix_ms
		FROM users WHERE id = ?
	`, id))
}

// GetUserByToken resolves a bearer token to its owning user. This is a
// request-scoped lookup; the server never caches credentials in-process.
func (s *SQLiteStore) GetUserByToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.temp_code, u.temp_code_at_unix_ms, u.created_at_unix_ms, u.updated_at_unix_ms
		FROM users u
		JOIN api_tokens t ON t.user_id = u.id
		WHERE t.token = ?
	`, token))
}

// SetTempCode stores a one-time device code on the user for later
// exchange. An empty code clears it.
func (s *SQLiteStore) SetTempCode(ctx context.Context, userID, code string, createdAtMs int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET temp_code = NULLIF(?, ''), temp_code_at_unix_ms = ?, updated_at_unix_ms = ?
		WHERE id = ?
	`, code, createdAtMs, time.Now().UnixMilli(), userID)
	if err != nil {
		return fmt.Errorf("failed to set temp code: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ExchangeTempCode swaps a one-time device code for a fresh API token.
// The code is cleared on success so it cannot be replayed. Codes created
// before notBeforeMs are rejected as expired.
func (s *SQLiteStore) ExchangeTempCode(ctx context.Context, code string, notBeforeMs int64, label string) (*APIToken, error) {
	if code == "" {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, temp_code_at_unix_ms FROM users WHERE temp_code = ?
	`, code)

	var userID string
	var codeAt sql.NullInt64
	if err := row.Scan(&userID, &codeAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up code: %w", err)
	}

	if codeAt.Valid && codeAt.Int64 < notBeforeMs {
		return nil, ErrCodeExpired
	}

	token := &APIToken{
		Token:           uuid.NewString(),
		UserID:          userID,
		Label:           label,
		CreatedAtUnixMs: time.Now().UnixMilli(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO api_tokens (token, user_id, label, created_at_unix_ms)
		VALUES (?, ?, ?, ?)
	`, token.Token, token.UserID, token.Label, token.CreatedAtUnixMs); err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET temp_code = NULL, temp_code_at_unix_ms = NULL, updated_at_unix_ms = ?
		WHERE id = ?
	`, time.Now().UnixMilli(), userID); err != nil {
		return nil, fmt.Errorf("failed to clear code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit exchange: %w", err)
	}

	return token, nil
}

// scanUser scans a single user row.
func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var tempCode sql.NullString
	var tempCodeAt sql.NullInt64

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &tempCode, &tempCodeAt, &u.CreatedAtUnixMs, &u.UpdatedAtUnixMs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if tempCode.Valid {
		u.TempCode = tempCode.String
	}
	if tempCodeAt.Valid {
		u.TempCodeAtMs = tempCodeAt.Int64
	}
	return &u, nil
}
