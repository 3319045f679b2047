package chain

import (
	"context"
	"math/big"
)

// EventHandler defines a function that is called when events occur in the
// processing of a call.
type EventHandler func(v string, args ...any)

// Workflow composes submission and confirmation into the single operation
// used for every state changing call, deploy or invoke. Every check is
// applied every time so no call site can skip one.
type Workflow struct {
	Client    Client
	Account   Account
	Waiter    Waiter
	EvHandler EventHandler
}

// PerformCall submits the call, waits for its receipt and validates it. It
// either returns a successful receipt, with a contract address for a
// deployment, or one of the package's error types.
func (wf Workflow) PerformCall(ctx context.Context, spec CallSpec) (Receipt, error) {
	if spec.Name == "" {
		spec.Name = "call"
	}

	wf.ev("chain: %s: submitting: from[%s]", spec.Name, wf.Account)

	ptx, err := Submit(ctx, wf.Client, wf.Account, spec)
	if err != nil {
		wf.ev("chain: %s: ERROR: %s", spec.Name, err)
		return Receipt{}, err
	}

	wf.ev("chain: %s: submitted: tx[%s] nonce[%d]: waiting for receipt", spec.Name, ptx.Hash.Hex(), ptx.Nonce)

	rcpt, err := wf.Waiter.Wait(ctx, wf.Client, spec.Name, ptx)
	if err != nil {
		if re := GetReverted(err); re != nil && re.Reason == "" && re.Receipt != nil {
			re.Reason = wf.replay(ctx, spec, re.Receipt.BlockNumber)
		}
		wf.ev("chain: %s: ERROR: %s", spec.Name, err)
		return Receipt{}, err
	}

	if spec.IsDeployment() && !rcpt.HasContractAddress() {
		err := &RevertedError{Op: spec.Name, TxHash: rcpt.TxHash, Receipt: &rcpt, Err: ErrDeploymentIncomplete}
		wf.ev("chain: %s: ERROR: %s", spec.Name, err)
		return Receipt{}, err
	}

	wf.ev("chain: %s: confirmed: tx[%s] blk[%d] gas[%d] status[%s]", spec.Name, rcpt.TxHash.Hex(), rcpt.BlockNumber, rcpt.GasUsed, rcpt.Status)

	return rcpt, nil
}

// replay re-runs a failed call against the state of its block to recover
// the revert reason. An empty string means no reason could be found.
func (wf Workflow) replay(ctx context.Context, spec CallSpec, blockNumber uint64) string {
	_, err := wf.Client.CallContract(ctx, spec.callMsg(wf.Account.Address), new(big.Int).SetUint64(blockNumber))
	reason, _ := revertReason(err)
	return reason
}

// ev calls the event handler when one is configured.
func (wf Workflow) ev(v string, args ...any) {
	if wf.EvHandler != nil {
		wf.EvHandler(v, args...)
	}
}
