// Package commands implements the CLI commands for lockbook-cli.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
	accountcmd "github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/commands/account"
	filecmd "github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/commands/file"
	sharecmd "github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/commands/share"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lockbook-cli",
	Short: "Lockbook command-line client",
	Long: `lockbook-cli is the command-line client for Lockbook, an end-to-end
encrypted multi-device file and notes system.

Use "lockbook-cli [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.DataDir, _ = cmd.Flags().GetString("data-dir")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "Local state directory (default: $XDG_DATA_HOME/lockbook)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(integrityCmd)
	rootCmd.AddCommand(accountcmd.Cmd)
	rootCmd.AddCommand(filecmd.Cmd)
	rootCmd.AddCommand(sharecmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
