package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// savedColumns is the select list shared by saved command queries. The
// tag names are aggregated in SQL so a listing stays a single query.
const savedColumns = `
	c.id, c.user_id, c.title, c.text, c.description, c.platform,
	c.visibility, c.favorite, c.usage_count, c.created_at_unix_ms, c.updated_at_unix_ms,
	COALESCE((
		SELECT GROUP_CONCAT(t.name, ',')
		FROM saved_command_tags ct JOIN tags t ON t.id = ct.tag_id
		WHERE ct.command_id = c.id
	), '')
`

// CreateSaved creates a new vault entry, creating and linking any tags
// that do not exist yet for the owner.
func (s *SQLiteStore) CreateSaved(ctx context.Context, c *SavedCommand) error {
	if c == nil {
		return errors.New("command cannot be nil")
	}
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	if c.Text == "" {
		return errors.New("text is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Visibility == "" {
		c.Visibility = VisibilityPrivate
	}
	if c.Visibility != VisibilityPublic && c.Visibility != VisibilityPrivate {
		return fmt.Errorf("invalid visibility %q", c.Visibility)
	}

	now := time.Now().UnixMilli()
	if c.CreatedAtUnixMs == 0 {
		c.CreatedAtUnixMs = now
	}
	c.UpdatedAtUnixMs = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO saved_commands (
			id, user_id, title, text, description, platform, visibility,
			favorite, usage_count, created_at_unix_ms, updated_at_unix_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Title, c.Text, c.Description, c.Platform, c.Visibility,
		boolToInt(c.Favorite), c.UsageCount, c.CreatedAtUnixMs, c.UpdatedAtUnixMs)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("user %s does not exist", c.UserID)
		}
		return fmt.Errorf("failed to create saved command: %w", err)
	}

	if err := setTagsTx(ctx, tx, c.UserID, c.ID, c.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit saved command: %w", err)
	}
	return nil
}

// GetSaved looks up a vault entry by ID.
func (s *SQLiteStore) GetSaved(ctx context.Context, id string) (*SavedCommand, error) {
	rows, err := s.querySavedRows(ctx, "WHERE c.id = ?", nil, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// UpdateSaved replaces the editable fields of a vault entry. The entry
// is addressed by ID and owner so one user cannot edit another's entry.
func (s *SQLiteStore) UpdateSaved(ctx context.Context, c *SavedCommand) error {
	if c == nil {
		return errors.New("command cannot be nil")
	}
	if c.ID == "" || c.UserID == "" {
		return errors.New("id and user_id are required")
	}
	if c.Text == "" {
		return errors.New("text is required")
	}
	if c.Visibility != VisibilityPublic && c.Visibility != VisibilityPrivate {
		return fmt.Errorf("invalid visibility %q", c.Visibility)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE saved_commands
		SET title = ?, text = ?, description = ?, platform = ?, visibility = ?,
		    favorite = ?, updated_at_unix_ms = ?
		WHERE id = ? AND user_id = ?
	`, c.Title, c.Text, c.Description, c.Platform, c.Visibility,
		boolToInt(c.Favorite), time.Now().UnixMilli(), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to update saved command: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	// Replace the tag links wholesale; stale links are dropped.
	if _, err := tx.ExecContext(ctx, `DELETE FROM saved_command_tags WHERE command_id = ?`, c.ID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if err := setTagsTx(ctx, tx, c.UserID, c.ID, c.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit saved command update: %w", err)
	}
	return nil
}

// DeleteSaved removes a vault entry owned by the given user.
func (s *SQLiteStore) DeleteSaved(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM saved_commands WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete saved command: %w", err)
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

// QuerySaved queries vault entries based on the given criteria.
func (s *SQLiteStore) QuerySaved(ctx context.Context, q SavedQuery) ([]SavedCommand, error) {
	where := "WHERE 1=1"
	args := make([]interface{}, 0)

	if q.UserID != "" {
		where += " AND c.user_id = ?"
		args = append(args, q.UserID)
	}
	if q.ExcludeUserID != "" {
		where += " AND c.user_id != ?"
		args = append(args, q.ExcludeUserID)
	}
	if q.Visibility != "" {
		where += " AND c.visibility = ?"
		args = append(args, q.Visibility)
	}
	if q.FavoriteOnly {
		where += " AND c.favorite = 1"
	}
	if q.Tag != "" {
		where += ` AND EXISTS (
			SELECT 1 FROM saved_command_tags ct JOIN tags t ON t.id = ct.tag_id
			WHERE ct.command_id = c.id AND t.name = ?
		)`
		args = append(args, q.Tag)
	}

	where += " ORDER BY c.updated_at_unix_ms DESC"

	if q.Limit > 0 {
		where += " LIMIT ?"
		args = append(args, q.Limit)
	} else {
		// Default limit to prevent unbounded queries
		where += " LIMIT 1000"
	}
	if q.Offset > 0 {
		where += " OFFSET ?"
		args = append(args, q.Offset)
	}

	return s.querySavedRows(ctx, where, args)
}

// FindSavedByExactText finds the user's vault entry whose text exactly
// equals the given command, or returns ErrNotFound.
func (s *SQLiteStore) FindSavedByExactText(ctx context.Context, userID, text string) (*SavedCommand, error) {
	rows, err := s.querySavedRows(ctx, "WHERE c.user_id = ? AND c.text = ? LIMIT 1", nil, userID, text)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// IncrementSavedUsage bumps a vault entry's usage counter in SQL so
// concurrent increments are never lost.
func (s *SQLiteStore) IncrementSavedUsage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE saved_commands
		SET usage_count = usage_count + 1, updated_at_unix_ms = ?
		WHERE id = ?
	`, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
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

// ListTags returns the user's tags ordered by name.
func (s *SQLiteStore) ListTags(ctx context.Context, userID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name FROM tags WHERE user_id = ? ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// querySavedRows runs the shared saved-command select with the given
// WHERE clause and scans the results.
func (s *SQLiteStore) querySavedRows(ctx context.Context, where string, args []interface{}, extra ...interface{}) ([]SavedCommand, error) {
	args = append(args, extra...)
	rows, err := s.db.QueryContext(ctx, "SELECT "+savedColumns+" FROM saved_commands c "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved commands: %w", err)
	}
	defer rows.Close()

	var out []SavedCommand
	for rows.Next() {
		var c SavedCommand
		var favorite int
		var tagCSV string
		err := rows.Scan(
			&c.ID, &c.UserID, &c.Title, &c.Text, &c.Description, &c.Platform,
			&c.Visibility, &favorite, &c.UsageCount, &c.CreatedAtUnixMs, &c.UpdatedAtUnixMs,
			&tagCSV,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved command: %w", err)
		}
		c.Favorite = favorite == 1
		if tagCSV != "" {
			c.Tags = strings.Split(tagCSV, ",")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved commands: %w", err)
	}
	return out, nil
}

// setTagsTx upserts the named tags for the owner and links them to the
// command inside an existing transaction.
func setTagsTx(ctx context.Context, tx *sql.Tx, userID, commandID string, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		tagID := uuid.NewString()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tags (id, user_id, name) VALUES (?, ?, ?)
			ON CONFLICT(user_id, name) DO NOTHING
		`, tagID, userID, name); err != nil {
			return fmt.Errorf("failed to create tag %q: %w", name, err)
		}

		row := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE user_id = ? AND name = ?`, userID, name)
		if err := row.Scan(&tagID); err != nil {
			return fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO saved_command_tags (command_id, tag_id) VALUES (?, ?)
		`, commandID, tagID); err != nil {
			return fmt.Errorf("failed to link tag %q: %w", name, err)
		}
	}
	return nil
}

// boolToInt converts a bool to the 0/1 integers SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
