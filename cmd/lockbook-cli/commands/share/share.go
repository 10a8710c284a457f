// Package share implements the sharing commands for lockbook-cli: granting
// access, listing pending shares from other accounts, and accepting or
// dismissing them (§4.3's user_access_keys / pending-share surface).
package share

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for sharing operations.
var Cmd = &cobra.Command{
	Use:   "share",
	Short: "Share management",
	Long: `Grant other accounts access to a file or folder, and manage
shares other accounts have granted to you.

Examples:
  # Share a folder with write access
  lockbook-cli share grant /notes bob write

  # List shares pending your acceptance
  lockbook-cli share pending

  # Accept a pending share, linking it at a local path
  lockbook-cli share accept <id> /shared/from-bob

  # Dismiss a pending share without accepting it
  lockbook-cli share dismiss <id>`,
}

func init() {
	Cmd.AddCommand(grantCmd)
	Cmd.AddCommand(pendingCmd)
	Cmd.AddCommand(acceptCmd)
	Cmd.AddCommand(dismissCmd)
}
