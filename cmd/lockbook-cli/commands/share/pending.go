package share

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
	"github.com/lockbookapp/lockbook-core/internal/cli/output"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List shares from other accounts awaiting acceptance",
	RunE:  runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	shares, err := c.GetPendingShares(context.Background())
	if err != nil {
		return fmt.Errorf("list pending shares: %w", err)
	}

	if len(shares) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending shares.")
		return nil
	}

	table := output.NewTableData("ID", "NAME", "ACCESS")
	for _, s := range shares {
		table.AddRow(s.ID.String(), s.Name, accessModeLabel(s.Mode))
	}
	return output.PrintTable(cmd.OutOrStdout(), table)
}
