// cmdvault-hook is the shell hook binary for ingesting command events.
// It reads the executed command and its context from environment
// variables and reports them to the daemon.
//
// This binary is designed for minimal startup time and fire-and-forget
// behavior. It never blocks the user's shell prompt.
package main

import (
	"fmt"
	"io"
	"os"
)

// Version info - injected at build time via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	cmd := args[0]

	switch cmd {
	case "ingest":
		return runIngest(args[1:], stderr)
	case "version", "--version", "-v":
		printVersion(stdout)
		return 0
	case "help", "--help", "-h":
		printUsage(stderr)
		return 0
	default:
		fmt.Fprintf(stderr, "cmdvault-hook: unknown command: %s\n", cmd)
		printUsage(stderr)
		return 1
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "cmdvault-hook %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `cmdvault-hook - Shell hook for cmdvault command ingestion

Usage: cmdvault-hook <command>

Commands:
  ingest    Report a command event from environment variables

Environment variables for 'ingest':
  CMDVAULT_CMD        Raw command string (required)
  CMDVAULT_PWD        Current working directory (optional)
  CMDVAULT_LS         Directory listing at execution time (optional)
  CMDVAULT_NO_RECORD  If "1", skip ingestion entirely

Exit codes:
  0  Success (or daemon unavailable - silent drop)
  1  Invalid arguments`)
}
