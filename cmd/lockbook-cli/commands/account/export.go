package account

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
	lbaccount "github.com/lockbookapp/lockbook-core/pkg/account"
)

var (
	exportPhrase bool
	exportQRPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current account as a key string or recovery phrase",
	Long: `Print the local account's private key so it can be imported on
another device via "lockbook-cli account import".

By default this prints a single base58 key string that also carries the
username and server URL. Pass --phrase to instead print the private key
alone as a 24-word BIP-39 recovery phrase (username and api-url are not
recoverable from the phrase and must be supplied again on import), or
--qr <file> to write the key string as a scannable QR code PNG.

The output is sensitive: anyone who has it can act as this account.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportPhrase, "phrase", false, "Print a 24-word recovery phrase instead of a key string")
	exportCmd.Flags().StringVar(&exportQRPath, "qr", "", "Write the key as a QR code PNG to this file instead of printing it")
	exportCmd.MarkFlagsMutuallyExclusive("phrase", "qr")
}

func runExport(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	acct, _ := c.Account()

	if exportPhrase {
		phrase, err := lbaccount.ExportPhrase(acct)
		if err != nil {
			return fmt.Errorf("export phrase: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), phrase)
		fmt.Fprintln(cmd.ErrOrStderr(), "Keep this phrase secret. On import you will also need to supply the username and server URL.")
		return nil
	}

	if exportQRPath != "" {
		png, err := lbaccount.ExportQR(acct)
		if err != nil {
			return fmt.Errorf("export qr: %w", err)
		}
		if err := os.WriteFile(exportQRPath, png, 0o600); err != nil {
			return fmt.Errorf("write qr code: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote QR code to %s\n", exportQRPath)
		return nil
	}

	key, err := lbaccount.ExportKey(acct)
	if err != nil {
		return fmt.Errorf("export key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(key))
	return nil
}
