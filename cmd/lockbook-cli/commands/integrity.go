package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var integrityCmd = &cobra.Command{
	Use:   "integrity-check",
	Short: "Validate the local tree and scan documents for content problems",
	Long: `Re-validates the local tree's structural invariants and scans every
non-deleted document for content-level problems: empty documents, and
documents whose extension implies UTF-8 text but whose content fails to
decode as such.`,
	RunE: runIntegrityCheck,
}

func runIntegrityCheck(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	warnings, err := c.TestRepoIntegrity(context.Background())
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if len(warnings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No integrity problems found.")
		return nil
	}

	for _, w := range warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", w.Kind, w.ID)
	}
	return nil
}
