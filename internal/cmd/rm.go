package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a saved command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := c.DeleteCommand(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("%sDeleted%s %s\n", colorGreen, colorReset, args[0])
		return nil
	},
}
