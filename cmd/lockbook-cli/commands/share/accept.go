package share

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var acceptCmd = &cobra.Command{
	Use:   "accept <id> <destination-path>",
	Short: "Accept a pending share, linking it into the local tree",
	Long: `Links a file shared with this account at destination-path. The
destination's parent folder must already exist; the link is created under
that parent and named after the last segment of destination-path.`,
	Args: cobra.ExactArgs(2),
	RunE: runAccept,
}

func runAccept(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	dest := args[1]

	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	parentPath := path.Dir(dest)
	parentID, err := c.GetByPath(ctx, parentPath)
	if err != nil {
		return fmt.Errorf("resolve parent %s: %w", parentPath, err)
	}

	if err := c.AcceptShare(ctx, id, parentID, path.Base(dest)); err != nil {
		return fmt.Errorf("accept share %s: %w", id, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Linked %s at %s\n", id, dest)
	return nil
}
