// cmdvault is the CLI for the vault daemon: saving commands, listing
// the vault, querying suggestions, and managing learned history.
package main

import (
	"os"

	"github.com/runger/cmdvault/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
