package file

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var mvCmd = &cobra.Command{
	Use:   "mv <path> <new-parent-path>",
	Short: "Move a file or folder under a different parent",
	Args:  cobra.ExactArgs(2),
	RunE:  runMv,
}

func runMv(cmd *cobra.Command, args []string) error {
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
	newParent, err := c.GetByPath(ctx, args[1])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[1], err)
	}

	if err := c.MoveFile(ctx, id, newParent); err != nil {
		return fmt.Errorf("move %s to %s: %w", args[0], args[1], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", args[0], args[1])
	return nil
}
