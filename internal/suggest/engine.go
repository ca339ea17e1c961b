package suggest

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Request carries one suggestion query.
type Request struct {
	UserID   string
	Query    string
	Platform string
}

// Engine answers suggestion queries by running the three source
// rankers in parallel and slot-merging their output.
type Engine struct {
	store   Store
	matcher Matcher
	logger  *slog.Logger
}

// NewEngine creates an Engine backed by the given store.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// Suggest returns the merged suggestion list for the request, best
// first. A blank query returns an empty list without touching the
// store.
func (e *Engine) Suggest(ctx context.Context, req Request) ([]string, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return []string{}, nil
	}

	var learned, saved, public []Ranked

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		learned, err = rankLearned(gctx, e.store, req.UserID, query)
		return err
	})
	g.Go(func() error {
		var err error
		saved, err = rankSaved(gctx, e.store, e.matcher, req.UserID, query, req.Platform)
		return err
	})
	g.Go(func() error {
		var err error
		public, err = rankPublic(gctx, e.store, e.matcher, req.UserID, query, req.Platform)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := Merge(learned, saved, public)
	e.logger.Debug("suggestion query served",
		"user_id", req.UserID,
		"learned", len(learned),
		"saved", len(saved),
		"public", len(public),
		"merged", len(result),
	)
	return result, nil
}
