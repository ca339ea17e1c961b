// Package storage provides SQLite-based persistent storage for cmdvault.
// It handles users, API tokens, saved vault commands, tags, and learned
// usage records.
package storage

import (
	"context"

	"github.com/runger/cmdvault/internal/usage"
)

// InsertOutcome is the result of a uniqueness-constrained insert. A
// Conflict is a distinguishable outcome, not a generic failure: callers
// branch on it rather than parsing errors.
type InsertOutcome int

const (
	// Inserted means the row was created.
	Inserted InsertOutcome = iota
	// Conflict means a concurrent writer created a row with the same
	// unique key first. No row was written.
	Conflict
)

// Store defines the interface for all storage operations.
// The daemon is the single writer; clients never open the DB directly.
type Store interface {
	// Users & tokens
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByToken(ctx context.Context, token string) (*User, error)
	SetTempCode(ctx context.Context, userID, code string, createdAtMs int64) error
	ExchangeTempCode(ctx context.Context, code string, notBeforeMs int64, label string) (*APIToken, error)

	// Saved vault commands
	CreateSaved(ctx context.Context, c *SavedCommand) error
	GetSaved(ctx context.Context, id string) (*SavedCommand, error)
	UpdateSaved(ctx context.Context, c *SavedCommand) error
	DeleteSaved(ctx context.Context, id, userID string) error
	QuerySaved(ctx context.Context, q SavedQuery) ([]SavedCommand, error)
	FindSavedByExactText(ctx context.Context, userID, text string) (*SavedCommand, error)
	IncrementSavedUsage(ctx context.Context, id string) error
	ListTags(ctx context.Context, userID string) ([]Tag, error)

	// Learned usage records
	FindUsage(ctx context.Context, userID, command string) (*UsageRecord, error)
	InsertUsage(ctx context.Context, rec *UsageRecord) (InsertOutcome, error)
	UpdateUsage(ctx context.Context, id string, patch UsagePatch) error
	QueryUsage(ctx context.Context, q UsageQuery) ([]UsageRecord, error)
	GetUsage(ctx context.Context, id string) (*UsageRecord, error)
	DeleteUsage(ctx context.Context, id, userID string) error

	// Lifecycle
	Close() error
}

// Visibility values for saved commands.
const (
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"
)

// User represents an account that owns vault entries and usage records.
type User struct {
	ID              string
	Name            string
	Email           string
	Role            string
	TempCode        string
	TempCodeAtMs    int64
	CreatedAtUnixMs int64
	UpdatedAtUnixMs int64
}

// APIToken maps a bearer token to a user.
type APIToken struct {
	Token           string
	UserID          string
	Label           string
	CreatedAtUnixMs int64
}

// SavedCommand is a user-authored vault entry.
type SavedCommand struct {
	ID              string
	UserID          string
	Title           string
	Text            string
	Description     string
	Platform        string // comma-joined platform mask, "" = any
	Visibility      string // PUBLIC or PRIVATE
	Favorite        bool
	UsageCount      int
	Tags            []string
	CreatedAtUnixMs int64
	UpdatedAtUnixMs int64
}

// Tag is a user-scoped label attached to saved commands.
type Tag struct {
	ID     string
	UserID string
	Name   string
}

// UsageRecord is the learned usage history for one (user, command) pair.
// At most one record exists per pair; the unique index on
// (user_id, command) enforces this under concurrent writers.
type UsageRecord struct {
	ID              string
	UserID          string
	Command         string
	OS              string
	Context         usage.ContextHistory
	UsageCount      int
	CreatedAtUnixMs int64
	UpdatedAtUnixMs int64
}

// UsagePatch carries the fields UpdateUsage applies. The usage count is
// incremented in SQL, never set from a stale read, so concurrent updates
// cannot lose increments. OS is refreshed only when non-empty.
//
// ExpectedCount is the usage count the caller observed when it read the
// record. The update applies only while the row still holds that count;
// otherwise it fails with ErrStale and the caller re-reads, re-merges,
// and retries. This keeps the context merge from dropping a concurrent
// writer's entries.
type UsagePatch struct {
	Context       usage.ContextHistory
	OS            string
	ExpectedCount int
}

// SavedQuery defines parameters for querying saved commands.
type SavedQuery struct {
	UserID        string // include only this owner
	ExcludeUserID string // exclude this owner (for public discovery)
	Visibility    string // filter by visibility if non-empty
	FavoriteOnly  bool
	Tag           string // filter by tag name if non-empty
	Limit         int
	Offset        int
}

// UsageQuery defines parameters for querying usage records.
type UsageQuery struct {
	UserID string
	// Terms restricts results to commands containing every term as a
	// case-insensitive substring.
	Terms  []string
	Limit  int
	Offset int
}
