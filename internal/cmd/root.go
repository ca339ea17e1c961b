// Package cmd implements the cmdvault CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cmdvault",
	Short: "a personal command vault with usage-learned suggestions",
	Long: `cmdvault - a personal command vault with usage-learned suggestions
  - save commands you never want to re-google
  - suggestions ranked by what you actually run`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(learnedCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
