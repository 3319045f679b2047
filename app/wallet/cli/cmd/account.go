package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ardanlabs/ballot/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address of the wallet account",
	RunE:  accountRun,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the name and address of every account in the account path",
	RunE:  listRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(listCmd)
}

func accountRun(cmd *cobra.Command, args []string) error {
	acct, err := chain.LoadAccount(getPrivateKeyPath())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), acct.Address.Hex())
	return nil
}

func listRun(cmd *cobra.Command, args []string) error {
	ns, err := nameservice.New(v.GetString(keyAccountPath))
	if err != nil {
		return err
	}

	accounts := ns.Copy()
	addresses := slices.SortedFunc(maps.Keys(accounts), func(a, b common.Address) int {
		return strings.Compare(accounts[a], accounts[b])
	})

	for _, address := range addresses {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", accounts[address], address.Hex())
	}

	return nil
}
