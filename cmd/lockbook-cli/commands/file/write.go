package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var writeFromFile string

var writeCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Overwrite a document's content",
	Long: `Replaces the document at path with new content, read from
--file or, if omitted, from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringVar(&writeFromFile, "file", "", "Read content from this local file instead of stdin")
}

func runWrite(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	id, err := c.GetByPath(ctx, args[0])
	if err != nil {
		return fmt.Errorf("resolve %s: %w (create it first with 'lockbook-cli file new')", args[0], err)
	}

	var content []byte
	if writeFromFile != "" {
		content, err = os.ReadFile(writeFromFile)
	} else {
		content, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	if err := c.WriteDocument(ctx, id, content); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(content), args[0])
	return nil
}
