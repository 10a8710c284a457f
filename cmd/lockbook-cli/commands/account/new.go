package account

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
	"github.com/lockbookapp/lockbook-core/internal/cli/prompt"
)

var newCmd = &cobra.Command{
	Use:   "new [username] [api-url]",
	Short: "Create a brand new account",
	Long: `Generate a new keypair, register it with the given server as
username, and mint the account's root folder.

If username or api-url are omitted, you will be prompted for them.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	username := argAt(args, 0)
	apiURL := argAt(args, 1)

	var err error
	if username == "" {
		username, err = prompt.InputRequired("Username")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}
	if apiURL == "" {
		apiURL, err = prompt.InputRequired("Server URL")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	c, err := cmdutil.OpenCore()
	if err != nil {
		return err
	}
	defer c.Close()

	if c.HasAccount() {
		return fmt.Errorf("this data directory already has an account - use a different --data-dir to create another")
	}

	if err := c.CreateAccount(context.Background(), username, apiURL); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Account %q created and registered with %s\n", username, apiURL)
	return nil
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
