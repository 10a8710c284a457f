package account

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/lockbookapp/lockbook-core/cmd/lockbook-cli/cmdutil"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the local account's username, public key, and server",
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	c, err := cmdutil.RequireAccount()
	if err != nil {
		return err
	}
	defer c.Close()

	acct, _ := c.Account()

	fmt.Fprintf(cmd.OutOrStdout(), "Username:   %s\n", acct.Username)
	fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\n", base58.Encode(acct.PublicKey()))
	fmt.Fprintf(cmd.OutOrStdout(), "Server:     %s\n", acct.APIURL)
	return nil
}
