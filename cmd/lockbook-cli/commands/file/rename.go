package file

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var renameCmd = &cobra.Command{
	Use:   "rename <path> <new-name>",
	Short: "Rename a file or folder in place",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	id, err := c.GetByPath(ctx, args[0])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[0], err)
	}

	if err := c.RenameFile(ctx, id, args[1]); err != nil {
		return fmt.Errorf("rename %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], args[1])
	return nil
}
