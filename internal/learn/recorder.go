// Package learn implements the ingestion path: it folds observed
// command events into per-user usage records. Correctness under
// concurrent reporters comes from the store's unique (user, command)
// index, an insert-conflict retry, and an optimistic re-merge when an
// update loses a race, not from in-process locks.
package learn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/runger/cmdvault/internal/storage"
	"github.com/runger/cmdvault/internal/usage"
)

// Event is one observed command execution reported by a client.
type Event struct {
	UserID  string
	Command string
	OS      string
	Dir     string
	Listing string
}

// Store is the slice of the storage API the ingestion path writes
// through.
type Store interface {
	FindUsage(ctx context.Context, userID, command string) (*storage.UsageRecord, error)
	InsertUsage(ctx context.Context, rec *storage.UsageRecord) (storage.InsertOutcome, error)
	UpdateUsage(ctx context.Context, id string, patch storage.UsagePatch) error
	FindSavedByExactText(ctx context.Context, userID, text string) (*storage.SavedCommand, error)
	IncrementSavedUsage(ctx context.Context, id string) error
}

// Recorder applies observed command events to the store.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Record ensures exactly one usage record exists for the event's
// (user, command) key, merges the directory context, and bumps the usage
// counter. If the event's raw text exactly matches one of the user's
// saved commands, that entry's counter is bumped too, best-effort.
//
// A started upsert runs to completion even when the caller's request is
// cancelled, so a mid-flight write never leaves a partial record.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	if ev.UserID == "" {
		return errors.New("user id is required")
	}
	if ev.Command == "" {
		return errors.New("command is required")
	}

	ctx = context.WithoutCancel(ctx)

	if err := r.upsert(ctx, ev); err != nil {
		return err
	}

	r.bumpSavedCommand(ctx, ev)
	return nil
}

// upsert runs the read → merge → write protocol.
func (r *Recorder) upsert(ctx context.Context, ev Event) error {
	existing, err := r.store.FindUsage(ctx, ev.UserID, ev.Command)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read usage record: %w", err)
	}

	if existing != nil {
		return r.update(ctx, existing, ev)
	}

	rec := &storage.UsageRecord{
		UserID:     ev.UserID,
		Command:    ev.Command,
		OS:         ev.OS,
		Context:    usage.ContextHistory{}.Merge(ev.Dir, ev.Listing, r.now()),
		UsageCount: 1,
	}

	outcome, err := r.store.InsertUsage(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	if outcome == storage.Inserted {
		return nil
	}

	// A concurrent reporter inserted the row between our read and the
	// insert. Re-read and take the update path exactly once; the event
	// must never be dropped.
	r.logger.Debug("usage insert lost race, retrying as update",
		"user_id", ev.UserID,
		"command", ev.Command,
	)

	existing, err = r.store.FindUsage(ctx, ev.UserID, ev.Command)
	if err != nil {
		return fmt.Errorf("failed to re-read usage record after conflict: %w", err)
	}
	return r.update(ctx, existing, ev)
}

// update merges the event into an existing record. The store applies
// the write only while the record still matches the snapshot we merged
// from; when a concurrent writer got in between, we re-read and merge
// again so neither writer's context entries are lost. The counter
// strictly grows on every landed write, so some writer always makes
// progress and the loop terminates.
func (r *Recorder) update(ctx context.Context, existing *storage.UsageRecord, ev Event) error {
	for {
		patch := storage.UsagePatch{
			Context:       existing.Context.Merge(ev.Dir, ev.Listing, r.now()),
			OS:            ev.OS,
			ExpectedCount: existing.UsageCount,
		}
		err := r.store.UpdateUsage(ctx, existing.ID, patch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrStale) {
			return fmt.Errorf("failed to update usage record: %w", err)
		}

		r.logger.Debug("usage update lost race, re-merging",
			"user_id", ev.UserID,
			"command", ev.Command,
		)
		existing, err = r.store.FindUsage(ctx, ev.UserID, ev.Command)
		if err != nil {
			return fmt.Errorf("failed to re-read usage record after stale update: %w", err)
		}
	}
}

// bumpSavedCommand increments the matching saved command's usage
// counter. This is a side effect of ingestion: failures are logged and
// swallowed, never rolled into the usage record write.
func (r *Recorder) bumpSavedCommand(ctx context.Context, ev Event) {
	saved, err := r.store.FindSavedByExactText(ctx, ev.UserID, ev.Command)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("failed to look up saved command for usage bump",
				"user_id", ev.UserID,
				"error", err,
			)
		}
		return
	}

	if err := r.store.IncrementSavedUsage(ctx, saved.ID); err != nil {
		r.logger.Warn("failed to bump saved command usage",
			"saved_id", saved.ID,
			"error", err,
		)
	}
}
