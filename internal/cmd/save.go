package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/cmdvault/internal/server"
	"github.com/runger/cmdvault/internal/storage"
)

var (
	saveTitle       string
	saveDescription string
	savePlatform    string
	savePublic      bool
	saveFavorite    bool
	saveTags        []string
)

var saveCmd = &cobra.Command{
	Use:   "save <command...>",
	Short: "Save a command to the vault",
	Long: `Save a command to the vault.

Examples:
  cmdvault save "lsof -i -P -n" --title "list ports"
  cmdvault save "docker compose up -d" --tag docker --public
  cmdvault save "pbcopy < file" --platform macos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVarP(&saveTitle, "title", "t", "", "short title for the command")
	saveCmd.Flags().StringVarP(&saveDescription, "description", "d", "", "what the command does")
	saveCmd.Flags().StringVar(&savePlatform, "platform", "", "comma-joined platform mask (e.g. linux,macos), empty = any")
	saveCmd.Flags().BoolVar(&savePublic, "public", false, "make the command visible to other users")
	saveCmd.Flags().BoolVar(&saveFavorite, "favorite", false, "mark as favorite")
	saveCmd.Flags().StringSliceVar(&saveTags, "tag", nil, "tag (repeatable)")
}

func runSave(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	visibility := storage.VisibilityPrivate
	if savePublic {
		visibility = storage.VisibilityPublic
	}

	created, err := c.CreateCommand(ctx, server.CommandRequest{
		Title:       saveTitle,
		Text:        strings.Join(args, " "),
		Description: saveDescription,
		Platform:    savePlatform,
		Visibility:  visibility,
		Favorite:    saveFavorite,
		Tags:        saveTags,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%sSaved%s %s%s%s\n", colorGreen, colorReset, colorBold, created.Text, colorReset)
	fmt.Printf("  id: %s\n", created.ID)
	return nil
}
