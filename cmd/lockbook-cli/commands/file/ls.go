package file

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var lsCmd = &cobra.Command{
	Use:     "ls [prefix]",
	Aliases: []string{"list"},
	Short:   "List every path visible to this account",
	Long: `Prints the path of every non-deleted file and folder visible
to this account. If prefix is given, only paths starting with it are
shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	paths, err := c.ListPaths(context.Background())
	if err != nil {
		return fmt.Errorf("list paths: %w", err)
	}
	sort.Strings(paths)

	var prefix string
	if len(args) == 1 {
		prefix = args[0]
	}

	for _, p := range paths {
		if prefix != "" && !strings.HasPrefix(p, prefix) {
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
