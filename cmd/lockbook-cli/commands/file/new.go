package file

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var newCmd = &cobra.Command{
	Use:   "new <path>",
	Short: "Create a document or folder at path",
	Long: `Creates every missing intermediate folder along path. The
terminal segment becomes a folder if path ends in "/", otherwise a
document.`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	id, err := c.CreateAtPath(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("create %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", args[0], id)
	return nil
}
