// Package cmdutil holds the flags and Core-opening helper every
// cmd/lockbook-cli subcommand shares, mirroring the teacher's
// cmd/dfsctl/cmdutil package (there built around an authenticated HTTP
// client; here built around a local pkg/lockbook.Core instance).
package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lockbookapp/lockbook-core/internal/cli/prompt"
	"github.com/lockbookapp/lockbook-core/pkg/clientdb"
	"github.com/lockbookapp/lockbook-core/pkg/lockbook"
)

// Flags holds the persistent flags synced from the root command,
// populated by the root command's PersistentPreRun.
var Flags struct {
	DataDir string
	Output  string
	Verbose bool
}

// DefaultDataDir returns "$XDG_DATA_HOME/lockbook", falling back to
// "~/.local/share/lockbook", the directory pkg/clientdb persists the
// account's trees and document cache under.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "lockbook"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cmdutil: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "lockbook"), nil
}

// OpenCore opens the Core at Flags.DataDir (or the default data directory
// if unset). Every subcommand except "account new"/"account import" also
// requires the resulting Core to already have an account.
func OpenCore() (*lockbook.Core, error) {
	dir := Flags.DataDir
	if dir == "" {
		var err error
		dir, err = DefaultDataDir()
		if err != nil {
			return nil, err
		}
	}

	c, err := lockbook.Open(clientdb.Config{Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	return c, nil
}

// RequireAccount opens the Core and errors out early with a friendly
// message if no account has been created or imported yet.
func RequireAccount() (*lockbook.Core, error) {
	c, err := OpenCore()
	if err != nil {
		return nil, err
	}
	if !c.HasAccount() {
		_ = c.Close()
		return nil, fmt.Errorf("no account found - run 'lockbook-cli account new' or 'lockbook-cli account import' first")
	}
	return c, nil
}

// HandleAbort turns a prompt cancellation (Ctrl-C during an interactive
// prompt) into a clean exit rather than an error message.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
