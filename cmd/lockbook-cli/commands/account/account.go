// Package account implements account management commands for lockbook-cli.
package account

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for account management.
var Cmd = &cobra.Command{
	Use:   "account",
	Short: "Account management",
	Long: `Create, import, and export the local Lockbook account.

Examples:
  # Create a brand new account
  lockbook-cli account new alice https://api.lockbook.example

  # Import an existing account from its exported key
  lockbook-cli account import <key>

  # Export the current account as a key string
  lockbook-cli account export`,
}

func init() {
	Cmd.AddCommand(newCmd)
	Cmd.AddCommand(importCmd)
	Cmd.AddCommand(exportCmd)
	Cmd.AddCommand(whoamiCmd)
}
