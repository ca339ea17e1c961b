package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	listFavorite bool
	listTag      string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved commands",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listFavorite, "favorite", false, "only favorites")
	listCmd.Flags().StringVar(&listTag, "tag", "", "only commands carrying this tag")
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	commands, err := c.ListCommands(ctx, listFavorite, listTag)
	if err != nil {
		return err
	}

	if len(commands) == 0 {
		fmt.Printf("%sno saved commands%s\n", colorDim, colorReset)
		return nil
	}

	for _, entry := range commands {
		marker := " "
		if entry.Favorite {
			marker = "*"
		}
		fmt.Printf("%s%s%s %s%s%s", colorYellow, marker, colorReset, colorBold, entry.Text, colorReset)
		if entry.Title != "" {
			fmt.Printf("  %s# %s%s", colorDim, entry.Title, colorReset)
		}
		fmt.Println()

		var meta []string
		meta = append(meta, "id: "+entry.ID)
		if entry.UsageCount > 0 {
			meta = append(meta, fmt.Sprintf("used %dx", entry.UsageCount))
		}
		if entry.Platform != "" {
			meta = append(meta, entry.Platform)
		}
		if len(entry.Tags) > 0 {
			meta = append(meta, "#"+strings.Join(entry.Tags, " #"))
		}
		fmt.Printf("  %s%s%s\n", colorDim, strings.Join(meta, "  "), colorReset)
	}
	return nil
}
