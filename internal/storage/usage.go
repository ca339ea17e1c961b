package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runger/cmdvault/internal/usage"
)

// FindUsage looks up the usage record for a (user, command) pair, or
// returns ErrNotFound.
func (s *SQLiteStore) FindUsage(ctx context.Context, userID, command string) (*UsageRecord, error) {
	return s.scanUsage(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, command, os, context_json, usage_count, created_at_unix_ms, updated_at_unix_ms
		FROM usage_records WHERE user_id = ? AND command = ?
	`, userID, command))
}

// GetUsage looks up a usage record by ID.
func (s *SQLiteStore) GetUsage(ctx context.Context, id string) (*UsageRecord, error) {
	return s.scanUsage(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, command, os, context_json, usage_count, created_at_unix_ms, updated_at_unix_ms
		FROM usage_records WHERE id = ?
	`, id))
}

// InsertUsage attempts to create a usage record. When a concurrent
// writer has already created a record for the same (user, command) key,
// it reports Conflict instead of an error so callers can retry as an
// update. Any other failure is returned as an error.
func (s *SQLiteStore) InsertUsage(ctx context.Context, rec *UsageRecord) (InsertOutcome, error) {
	if rec == nil {
		return Inserted, errors.New("record cannot be nil")
	}
	if rec.UserID == "" {
		return Inserted, errors.New("user_id is required")
	}
	if rec.Command == "" {
		return Inserted, errors.New("command is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UsageCount == 0 {
		rec.UsageCount = 1
	}

	contextJSON, err := marshalContext(rec.Context)
	if err != nil {
		return Inserted, err
	}

	now := time.Now().UnixMilli()
	if rec.CreatedAtUnixMs == 0 {
		rec.CreatedAtUnixMs = now
	}
	rec.UpdatedAtUnixMs = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO usage_records (id, user_id, command, os, context_json, usage_count, created_at_unix_ms, updated_at_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.Command, rec.OS, contextJSON, rec.UsageCount, rec.CreatedAtUnixMs, rec.UpdatedAtUnixMs)
	if err != nil {
		if isDuplicateKeyError(err) {
			return Conflict, nil
		}
		if isForeignKeyError(err) {
			return Inserted, fmt.Errorf("user %s does not exist", rec.UserID)
		}
		return Inserted, fmt.Errorf("failed to insert usage record: %w", err)
	}
	return Inserted, nil
}

// ErrStale is returned by UpdateUsage when the record changed between
// the caller's read and its write. Callers re-read and retry.
var ErrStale = errors.New("usage record changed since read")

// UpdateUsage applies a patch to an existing usage record addressed by
// its stable ID. The write is an optimistic compare-and-swap keyed on
// the usage counter: it applies only while the row still holds the
// count the caller read, so two writers merging the context history
// from the same snapshot cannot silently drop each other's entries.
// The counter only ever grows, which rules out an ABA mix-up. The OS
// label is refreshed only when the patch carries a non-empty one.
func (s *SQLiteStore) UpdateUsage(ctx context.Context, id string, patch UsagePatch) error {
	if id == "" {
		return errors.New("id is required")
	}

	contextJSON, err := marshalContext(patch.Context)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE usage_records
		SET context_json = ?,
		    os = CASE WHEN ? != '' THEN ? ELSE os END,
		    usage_count = usage_count + 1,
		    updated_at_unix_ms = ?
		WHERE id = ? AND usage_count = ?
	`, contextJSON, patch.OS, patch.OS, time.Now().UnixMilli(), id, patch.ExpectedCount)
	if err != nil {
		return fmt.Errorf("failed to update usage record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// A missing row and a lost race look the same to the UPDATE.
		var count int
		err := s.db.QueryRowContext(ctx,
			`SELECT usage_count FROM usage_records WHERE id = ?`, id).Scan(&count)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check usage record: %w", err)
		}
		return ErrStale
	}
	return nil
}

// QueryUsage queries usage records based on the given criteria, most
// used first. Every term must appear in the command text as a
// case-insensitive substring.
func (s *SQLiteStore) QueryUsage(ctx context.Context, q UsageQuery) ([]UsageRecord, error) {
	query := `
		SELECT id, user_id, command, os, context_json, usage_count, created_at_unix_ms, updated_at_unix_ms
		FROM usage_records
		WHERE 1=1
	`
	args := make([]interface{}, 0)

	if q.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, q.UserID)
	}

	for _, term := range q.Terms {
		query += " AND instr(lower(command), ?) > 0"
		args = append(args, strings.ToLower(term))
	}

	query += " ORDER BY usage_count DESC, updated_at_unix_ms DESC"

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	} else {
		// Default limit to prevent unbounded queries
		query += " LIMIT 1000"
	}
	if q.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		rec, err := scanUsageRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage records: %w", err)
	}
	return out, nil
}

// DeleteUsage removes a usage record owned by the given user.
func (s *SQLiteStore) DeleteUsage(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM usage_records WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete usage record: %w", err)
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

// scanUsage scans a single usage record row.
func (s *SQLiteStore) scanUsage(row *sql.Row) (*UsageRecord, error) {
	rec, err := scanUsageRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// scanUsageRow scans a usage record from any row-shaped scan function,
// decoding the context history from its JSON column. A corrupt context
// column degrades to an empty history rather than failing the read.
func scanUsageRow(scan func(dest ...interface{}) error) (*UsageRecord, error) {
	var rec UsageRecord
	var contextJSON string

	err := scan(&rec.ID, &rec.UserID, &rec.Command, &rec.OS, &contextJSON,
		&rec.UsageCount, &rec.CreatedAtUnixMs, &rec.UpdatedAtUnixMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan usage record: %w", err)
	}

	if contextJSON != "" {
		if err := json.Unmarshal([]byte(contextJSON), &rec.Context); err != nil {
			rec.Context = nil
		}
	}
	return &rec, nil
}

// marshalContext encodes a context history for the context_json column.
func marshalContext(h usage.ContextHistory) (string, error) {
	if h == nil {
		h = usage.ContextHistory{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to encode context history: %w", err)
	}
	return string(b), nil
}
