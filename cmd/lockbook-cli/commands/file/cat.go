package file

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a document's decrypted content",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func runCat(cmd *cobra.Command, args []string) error {
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

	content, err := c.ReadDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	_, err = cmd.OutOrStdout().Write(content)
	return err
}
