package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// gasHeadroom is the percentage added on top of the node's gas estimate.
const gasHeadroom = 20

// CallSpec describes a state changing call. A nil To means the call
// deploys Bytecode with Data as the encoded constructor arguments.
type CallSpec struct {
	Name     string
	To       *common.Address
	Data     []byte
	Bytecode []byte
	Value    *big.Int
	GasLimit uint64
}

// IsDeployment reports whether the call creates a contract.
func (cs CallSpec) IsDeployment() bool {
	return cs.To == nil
}

// payload returns the transaction input for the call.
func (cs CallSpec) payload() []byte {
	if !cs.IsDeployment() {
		return cs.Data
	}

	input := make([]byte, 0, len(cs.Bytecode)+len(cs.Data))
	input = append(input, cs.Bytecode...)
	return append(input, cs.Data...)
}

// callMsg returns the call as a message the node can simulate.
func (cs CallSpec) callMsg(from common.Address) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  from,
		To:    cs.To,
		Value: cs.Value,
		Data:  cs.payload(),
	}
}

// =============================================================================

// Submit constructs, signs and broadcasts the call. It returns as soon as
// the node accepts the transaction, before it is included in a block.
// Nothing is retried.
func Submit(ctx context.Context, client Client, account Account, spec CallSpec) (PendingTransaction, error) {
	fail := func(err error) (PendingTransaction, error) {
		return PendingTransaction{}, &SubmissionError{Op: spec.Name, Err: err}
	}

	if account.IsZero() {
		return fail(errors.New("no signer account"))
	}

	if spec.IsDeployment() && len(spec.Bytecode) == 0 {
		return fail(errors.New("deployment without bytecode"))
	}

	if spec.Value != nil && spec.Value.Sign() < 0 {
		return fail(errors.New("negative value"))
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fail(fmt.Errorf("chain id: %w", err))
	}

	nonce, err := client.PendingNonceAt(ctx, account.Address)
	if err != nil {
		return fail(fmt.Errorf("nonce: %w", err))
	}

	gas := spec.GasLimit
	if gas == 0 {
		estimate, err := client.EstimateGas(ctx, spec.callMsg(account.Address))
		if err != nil {
			if reason, ok := revertReason(err); ok {
				return PendingTransaction{}, &RevertedError{Op: spec.Name, Reason: reason, Err: err}
			}
			return fail(fmt.Errorf("estimating gas: %w", err))
		}
		gas = estimate + estimate*gasHeadroom/100
	}

	tx, err := newTransaction(ctx, client, chainID, nonce, gas, spec)
	if err != nil {
		return fail(err)
	}

	signedTx, err := account.signTx(tx, chainID)
	if err != nil {
		return fail(fmt.Errorf("signing: %w", err))
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return fail(fmt.Errorf("broadcasting: %w", err))
	}

	ptx := PendingTransaction{
		Hash:  signedTx.Hash(),
		Nonce: nonce,
	}

	return ptx, nil
}

// newTransaction builds a dynamic fee transaction when the chain head
// carries a base fee and a legacy transaction otherwise.
func newTransaction(ctx context.Context, client Client, chainID *big.Int, nonce uint64, gas uint64, spec CallSpec) (*types.Transaction, error) {
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chain head: %w", err)
	}

	value := spec.Value
	if value == nil {
		value = new(big.Int)
	}

	if head.BaseFee == nil {
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("gas price: %w", err)
		}

		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       spec.To,
			Value:    value,
			Data:     spec.payload(),
		})

		return tx, nil
	}

	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas tip: %w", err)
	}

	// The fee cap leaves room for the base fee to double before the
	// transaction stops being includable.
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        spec.To,
		Value:     value,
		Data:      spec.payload(),
	})

	return tx, nil
}
