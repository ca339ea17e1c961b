package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/cmdvault/internal/server"
)

var suggestJSON bool

var suggestCmd = &cobra.Command{
	Use:   "suggest <query...>",
	Short: "Get ranked command suggestions",
	Long: `Get ranked command suggestions for a free-text query.

The top learned command comes first, then your best vault match, then
up to two public commands from other users.

This command is designed for shell integration (fast, minimal output).

Examples:
  cmdvault suggest git st
  cmdvault suggest "list ports" --json`,
	Args: cobra.ArbitraryArgs,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "output suggestions as a JSON array")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	pwd, _ := os.Getwd()
	suggestions, err := c.Suggest(ctx, server.SuggestRequest{
		Query: strings.Join(args, " "),
		OS:    currentPlatform(),
		Pwd:   pwd,
	})
	if err != nil {
		return err
	}

	if suggestJSON {
		return json.NewEncoder(os.Stdout).Encode(suggestions)
	}
	for _, s := range suggestions {
		fmt.Println(s)
	}
	return nil
}
