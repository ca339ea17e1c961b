package cmd

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/runger/cmdvault/internal/client"
	"github.com/runger/cmdvault/internal/config"
)

// newClient loads config and builds the daemon client.
func newClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Server.Token == "" {
		return nil, fmt.Errorf("not logged in, run 'cmdvault login <code>' first")
	}
	return client.New(cfg), nil
}

// commandContext returns a bounded context for one CLI operation.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// currentPlatform maps GOOS to the platform names used in masks.
func currentPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}
