// Package server exposes the vault over a JSON HTTP API: ingestion,
// suggestions, saved-command CRUD, and token exchange.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/runger/cmdvault/internal/learn"
	"github.com/runger/cmdvault/internal/storage"
	"github.com/runger/cmdvault/internal/suggest"
)

// Version is set at build time
var Version = "dev"

// Server is the vault HTTP daemon.
type Server struct {
	store       storage.Store
	recorder    *learn.Recorder
	engine      *suggest.Engine
	logger      *slog.Logger
	tempCodeTTL time.Duration

	httpServer *http.Server
	listener   net.Listener

	shutdownOnce sync.Once
}

// Config contains configuration options for the daemon server.
type Config struct {
	// Store is the storage backend (required)
	Store storage.Store

	// Addr is the listen address, host:port
	Addr string

	// Recorder applies ingestion events (optional, created if nil)
	Recorder *learn.Recorder

	// Engine answers suggestion queries (optional, created if nil)
	Engine *suggest.Engine

	// Logger is the structured logger (optional, uses default if nil)
	Logger *slog.Logger

	// TempCodeTTL bounds device-code exchange age (optional, defaults
	// to 15 minutes)
	TempCodeTTL time.Duration
}

// New creates a daemon server with the given configuration.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = learn.NewRecorder(cfg.Store, logger)
	}

	engine := cfg.Engine
	if engine == nil {
		engine = suggest.NewEngine(cfg.Store, logger)
	}

	ttl := cfg.TempCodeTTL
	if ttl <= 0 {
		ttl = defaultTempCodeTTL
	}

	s := &Server{
		store:       cfg.Store,
		recorder:    recorder,
		engine:      engine,
		logger:      logger,
		tempCodeTTL: ttl,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// routes builds the request mux. Authenticated routes run behind the
// bearer-token middleware; health and token exchange stay open.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/exchange-token", s.handleExchangeToken)

	mux.Handle("POST /api/learn", s.requireUser(s.handleLearn))
	mux.Handle("POST /api/suggest", s.requireUser(s.handleSuggest))

	mux.Handle("GET /api/commands", s.requireUser(s.handleListCommands))
	mux.Handle("POST /api/commands", s.requireUser(s.handleCreateCommand))
	mux.Handle("GET /api/commands/{id}", s.requireUser(s.handleGetCommand))
	mux.Handle("PUT /api/commands/{id}", s.requireUser(s.handleUpdateCommand))
	mux.Handle("DELETE /api/commands/{id}", s.requireUser(s.handleDeleteCommand))
	mux.Handle("POST /api/commands/{id}/promote", s.requireUser(s.handlePromote))
	mux.Handle("GET /api/tags", s.requireUser(s.handleListTags))

	mux.Handle("GET /api/learned", s.requireUser(s.handleListLearned))
	mux.Handle("DELETE /api/learned/{id}", s.requireUser(s.handleDeleteLearned))

	return mux
}

// Start listens on the configured address and serves until the context
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	s.logger.Info("daemon starting",
		"addr", listener.Addr().String(),
		"version", Version,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		} else {
			errChan <- nil
		}
	}()

	select {
	case <-ctx.Done():
		s.Shutdown()
		<-errChan
		return nil
	case err := <-errChan:
		return err
	}
}

// Addr returns the bound listen address, usable once Start has been
// called.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully drains in-flight requests and stops the server.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("daemon shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown incomplete", "error", err)
		}

		s.logger.Info("daemon stopped")
	})
}
