package file

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
	"github.com/lockbookapp/lockbook-core/internal/cli/prompt"
)

var rmForce bool

var rmCmd = &cobra.Command{
	Use:     "rm <path>",
	Aliases: []string{"delete"},
	Short:   "Tombstone a file or folder",
	Long: `Marks path as deleted. Deleting a folder also hides every
descendant it has, though only this node is actually tombstoned - the
deletion closure is derived at read time, not materialized.`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Skip the confirmation prompt")
}

func runRm(cmd *cobra.Command, args []string) error {
	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s?", args[0]), rmForce)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}

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

	if err := c.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
