package cmd

import (
	"fmt"

	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ardanlabs/ballot/foundation/validate"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send ether to another account and wait for the receipt.",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringP(keyTo, "t", "", "Address of the recipient.")
	sendCmd.Flags().StringP(keyValue, "v", "", "Amount of ether to send.")

	v.BindPFlag(keyTo, sendCmd.Flags().Lookup(keyTo))
	v.BindPFlag(keyValue, sendCmd.Flags().Lookup(keyValue))
}

func sendRun(cmd *cobra.Command, args []string) error {
	to, err := validate.Address(keyTo, v.GetString(keyTo))
	if err != nil {
		return err
	}

	value, err := chain.ParseUnits(v.GetString(keyValue), 18)
	if err != nil || value.Sign() <= 0 {
		return validate.Fail(keyValue, "%q is not a positive amount of ether", v.GetString(keyValue))
	}

	acct, err := chain.LoadAccount(getPrivateKeyPath())
	if err != nil {
		return err
	}

	client, closeFn, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	wf := chain.Workflow{
		Client:  client,
		Account: acct,
	}

	spec := chain.CallSpec{
		Name:  "send",
		To:    &to,
		Value: value,
	}

	rcpt, err := wf.PerformCall(cmd.Context(), spec)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sent %s ETH from %s to %s\n", chain.FormatUnits(value, 18), acct.Address.Hex(), to.Hex())
	fmt.Fprintf(out, "Transaction: %s\n", rcpt.TxHash.Hex())
	fmt.Fprintf(out, "Block: %d, fee: %s ETH\n", rcpt.BlockNumber, chain.FormatUnits(rcpt.Cost(), 18))

	return nil
}
