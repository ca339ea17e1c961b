package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/runger/cmdvault/internal/storage"
)

// Per-source result caps.
const (
	learnedCap = 10
	savedCap   = 10
	publicCap  = 5
)

// Store is the read-only slice of the storage API the rankers query.
type Store interface {
	QueryUsage(ctx context.Context, q storage.UsageQuery) ([]storage.UsageRecord, error)
	QuerySaved(ctx context.Context, q storage.SavedQuery) ([]storage.SavedCommand, error)
}

// rankLearned returns the user's own usage records where every query
// term is a case-insensitive substring of the command text, most used
// first. Term filtering and ordering happen in the store.
func rankLearned(ctx context.Context, store Store, userID, query string) ([]Ranked, error) {
	records, err := store.QueryUsage(ctx, storage.UsageQuery{
		UserID: userID,
		Terms:  strings.Fields(strings.ToLower(query)),
		Limit:  learnedCap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}

	ranked := make([]Ranked, 0, len(records))
	for _, rec := range records {
		ranked = append(ranked, Ranked{Text: rec.Command, UsageCount: rec.UsageCount})
	}
	return ranked, nil
}

// rankSaved fuzzy-ranks the user's own vault entries compatible with
// the request platform.
func rankSaved(ctx context.Context, store Store, matcher Matcher, userID, query, platform string) ([]Ranked, error) {
	commands, err := store.QuerySaved(ctx, storage.SavedQuery{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to query saved commands: %w", err)
	}
	return rankFuzzy(matcher, commands, query, platform, savedCap)
}

// rankPublic fuzzy-ranks other users' public vault entries compatible
// with the request platform.
func rankPublic(ctx context.Context, store Store, matcher Matcher, userID, query, platform string) ([]Ranked, error) {
	commands, err := store.QuerySaved(ctx, storage.SavedQuery{
		ExcludeUserID: userID,
		Visibility:    storage.VisibilityPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query public commands: %w", err)
	}
	return rankFuzzy(matcher, commands, query, platform, publicCap)
}

// rankFuzzy applies the shared platform filter and fuzzy scoring to a
// saved-command pool, capping the output.
func rankFuzzy(matcher Matcher, commands []storage.SavedCommand, query, platform string, limit int) ([]Ranked, error) {
	pool := make([]Candidate, 0, len(commands))
	for _, c := range commands {
		if !PlatformCompatible(c.Platform, platform) {
			continue
		}
		pool = append(pool, Candidate{
			Text:        c.Text,
			Title:       c.Title,
			Description: c.Description,
			UsageCount:  c.UsageCount,
		})
	}

	matches, err := matcher.Match(query, pool)
	if err != nil {
		return nil, fmt.Errorf("fuzzy match failed: %w", err)
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}
	ranked := make([]Ranked, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, Ranked{Text: m.Text, UsageCount: m.UsageCount})
	}
	return ranked, nil
}
