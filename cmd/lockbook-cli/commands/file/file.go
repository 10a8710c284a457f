// Package file implements file-tree commands for lockbook-cli: creating,
// listing, reading, writing, moving, renaming, and deleting files by path
// (§6.3's path_to_id-based convenience surface).
package file

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for file-tree operations.
var Cmd = &cobra.Command{
	Use:     "file",
	Aliases: []string{"f"},
	Short:   "File and folder management",
	Long: `Create, list, read, write, move, rename, and delete files and
folders, addressed by their decrypted path from the account root.

Examples:
  # Create a document, creating intermediate folders as needed
  lockbook-cli file new /notes/todo.md

  # Create a folder (trailing slash)
  lockbook-cli file new /notes/archive/

  # List every path in the tree
  lockbook-cli file ls

  # Read a document's content
  lockbook-cli file cat /notes/todo.md

  # Write a document's content from stdin
  echo "buy milk" | lockbook-cli file write /notes/todo.md`,
}

func init() {
	Cmd.AddCommand(newCmd)
	Cmd.AddCommand(lsCmd)
	Cmd.AddCommand(catCmd)
	Cmd.AddCommand(writeCmd)
	Cmd.AddCommand(mvCmd)
	Cmd.AddCommand(renameCmd)
	Cmd.AddCommand(rmCmd)
}
