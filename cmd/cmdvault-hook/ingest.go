package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/runger/cmdvault/internal/client"
	"github.com/runger/cmdvault/internal/config"
	"github.com/runger/cmdvault/internal/sanitize"
	"github.com/runger/cmdvault/internal/server"
)

// runIngest reads the event from the environment and reports it.
//
// Exit codes:
//   - 0: Success (or daemon unavailable - silent drop)
//   - 1: Invalid arguments
func runIngest(args []string, stderr io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(stderr, "cmdvault-hook ingest: unexpected argument: %s\n", args[0])
		return 1
	}

	if os.Getenv("CMDVAULT_NO_RECORD") == "1" {
		// Skip ingestion entirely - this is expected behavior
		return 0
	}

	cfg, err := config.Load()
	if err != nil || !cfg.Hook.Enabled || cfg.Server.Token == "" {
		// Misconfiguration must never break the shell prompt.
		return 0
	}

	ev, err := readIngestEnv(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "cmdvault-hook ingest: %v\n", err)
		return 1
	}
	if ev == nil {
		return 0
	}

	timeout := time.Duration(cfg.Hook.TimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Fire and forget - a dead daemon drops the event silently.
	_ = client.New(cfg).Learn(ctx, *ev)
	return 0
}

// readIngestEnv builds the learn request from the environment. A nil
// request with nil error means the event should be skipped.
func readIngestEnv(cfg *config.Config) (*server.LearnRequest, error) {
	command := strings.TrimSpace(os.Getenv("CMDVAULT_CMD"))
	if command == "" {
		return nil, fmt.Errorf("CMDVAULT_CMD is required")
	}
	if len(command) > cfg.Hook.MaxCommandLen {
		// Oversized pastes and heredocs are noise, not history.
		return nil, nil
	}

	// Secrets are stripped before the command ever leaves the machine.
	req := &server.LearnRequest{
		ExecutedCommand: sanitize.Redact(toValidUTF8(command)),
		OS:              currentPlatform(),
		Pwd:             os.Getenv("CMDVAULT_PWD"),
	}
	if cfg.Hook.CaptureLs {
		req.LsOutput = os.Getenv("CMDVAULT_LS")
	}
	return req, nil
}

func currentPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}

// toValidUTF8 performs lossy UTF-8 conversion by replacing invalid
// bytes with the Unicode replacement character (U+FFFD), so the string
// can be safely encoded to JSON.
func toValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteRune(r)
		}
		i += size
	}

	return b.String()
}
