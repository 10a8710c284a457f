package account

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
	"github.com/lockbookapp/lockbook-core/internal/cli/prompt"
)

var importAPIURL string

var importCmd = &cobra.Command{
	Use:   "import [key]",
	Short: "Import an existing account from an exported key",
	Long: `Reconstruct an account from a key string produced by
"lockbook-cli account export", verifying it against the server before
accepting it.

No file state is fetched here - run "lockbook-cli sync" afterward to pull
the account's full history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importAPIURL, "api-url", "", "Override the server URL embedded in the key")
}

func runImport(cmd *cobra.Command, args []string) error {
	key := argAt(args, 0)
	if key == "" {
		var err error
		key, err = prompt.InputRequired("Account key")
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
		return fmt.Errorf("this data directory already has an account - use a different --data-dir to import another")
	}

	if err := c.ImportAccount(context.Background(), key, importAPIURL); err != nil {
		return fmt.Errorf("import account: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Account imported. Run 'lockbook-cli sync' to pull its file history.")
	return nil
}
