package share

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var dismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Dismiss a pending share without accepting it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDismiss,
}

func runDismiss(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}

	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.DeletePendingShare(context.Background(), id); err != nil {
		return fmt.Errorf("dismiss share %s: %w", id, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s\n", id)
	return nil
}
