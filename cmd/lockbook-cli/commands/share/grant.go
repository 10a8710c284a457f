package share

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

var grantCmd = &cobra.Command{
	Use:   "grant <path> <username> <read|write>",
	Short: "Share a file or folder with another account",
	Args:  cobra.ExactArgs(3),
	RunE:  runGrant,
}

func runGrant(cmd *cobra.Command, args []string) error {
	path, username, modeArg := args[0], args[1], args[2]

	var mode tree.AccessMode
	switch modeArg {
	case "read":
		mode = tree.Read
	case "write":
		mode = tree.Write
	default:
		return fmt.Errorf("invalid mode %q: must be \"read\" or \"write\"", modeArg)
	}

	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	id, err := c.GetByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	if err := c.ShareFile(ctx, id, username, mode); err != nil {
		return fmt.Errorf("share %s with %s: %w", path, username, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Shared %s with %s (%s access)\n", path, username, modeArg)
	return nil
}
