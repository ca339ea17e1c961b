package cmd

import (
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"save", "list", "rm", "suggest", "tags", "learned", "login", "config", "version"} {
		if !names[want] {
			t.Errorf("root command missing subcommand %q", want)
		}
	}
}

func TestLearnedSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range learnedCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"list", "forget", "promote"} {
		if !names[want] {
			t.Errorf("learned command missing subcommand %q", want)
		}
	}
}

func TestCurrentPlatform(t *testing.T) {
	p := currentPlatform()
	if p == "" || p == "darwin" {
		t.Errorf("currentPlatform() = %q, darwin must map to macos", p)
	}
}
