package cmd

import (
	"fmt"

	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	acct, err := chain.LoadAccount(getPrivateKeyPath())
	if err != nil {
		return err
	}

	client, closeFn, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	bal, err := client.BalanceAt(cmd.Context(), acct.Address, nil)
	if err != nil {
		return fmt.Errorf("reading balance: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "For Account:", acct.Address.Hex())
	fmt.Fprintf(cmd.OutOrStdout(), "%s ETH\n", chain.FormatUnits(bal, 18))

	return nil
}
