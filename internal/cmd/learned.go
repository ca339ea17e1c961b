package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var learnedCmd = &cobra.Command{
	Use:   "learned",
	Short: "Manage learned command history",
}

var learnedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		records, err := c.ListLearned(ctx)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Printf("%snothing learned yet%s\n", colorDim, colorReset)
			return nil
		}

		for _, rec := range records {
			fmt.Printf("%s%s%s  %s%dx  %s%s\n",
				colorBold, rec.Command, colorReset,
				colorDim, rec.UsageCount, rec.ID, colorReset)
		}
		return nil
	},
}

var learnedForgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Delete a learned command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := c.ForgetLearned(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("%sForgotten%s %s\n", colorGreen, colorReset, args[0])
		return nil
	},
}

var learnedPromoteCmd = &cobra.Command{
	Use:   "promote <id>",
	Short: "Copy a learned command into the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		saved, err := c.Promote(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%sPromoted%s %s%s%s\n", colorGreen, colorReset, colorBold, saved.Text, colorReset)
		fmt.Printf("  id: %s\n", saved.ID)
		return nil
	},
}

func init() {
	learnedCmd.AddCommand(learnedListCmd)
	learnedCmd.AddCommand(learnedForgetCmd)
	learnedCmd.AddCommand(learnedPromoteCmd)
}
