package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/cmdvault/internal/client"
	"github.com/runger/cmdvault/internal/config"
)

var loginLabel string

var loginCmd = &cobra.Command{
	Use:   "login <code>",
	Short: "Exchange a device code for an API token",
	Long: `Exchange a one-time device code for an API token and store it
in the config file. The code is single-use and expires quickly.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginLabel, "label", "", "label for this device's token")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	label := loginLabel
	if label == "" {
		label, _ = os.Hostname()
	}

	ctx, cancel := commandContext()
	defer cancel()

	token, err := client.New(cfg).ExchangeToken(ctx, args[0], label)
	if err != nil {
		return err
	}

	cfg.Server.Token = token
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	fmt.Printf("%sLogged in%s, token stored in %s\n",
		colorGreen, colorReset, config.DefaultPaths().ConfigFile())
	return nil
}
