package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
	"github.com/lockbookapp/lockbook-core/internal/cli/timeutil"
	"github.com/lockbookapp/lockbook-core/pkg/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync local changes with the server",
	Long: `Push local changes and pull remote changes, merging any conflicting
edits deterministically (§4.6 of the sync protocol).`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.Sync(context.Background(), func(p syncer.Progress) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d/%d)\n", p.Kind, p.Name, p.Current, p.Total)
	}, nil)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Synced: %d downloaded, %d uploaded\n", result.DocsDownloaded, result.DocsUploaded)
	fmt.Fprintf(cmd.OutOrStdout(), "Last synced: %s\n", time.UnixMilli(result.LastSyncedMs).Local().Format(timeutil.LocalTimeFormat))
	return nil
}
