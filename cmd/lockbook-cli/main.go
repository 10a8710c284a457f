// Command lockbook-cli is the command-line client for Lockbook.
package main

import (
	"fmt"
	"os"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
