package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Status is the inclusion status of a transaction.
type Status int

// Set of known inclusion statuses.
const (
	StatusFailure Status = iota
	StatusSuccess
)

// String implements the Stringer interface.
func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failure"
}

// PendingTransaction is a broadcast transaction waiting for inclusion.
type PendingTransaction struct {
	Hash  common.Hash
	Nonce uint64
}

// Receipt is the ledger's confirmation record for a transaction.
type Receipt struct {
	TxHash            common.Hash
	Status            Status
	ContractAddress   common.Address
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	BlockNumber       uint64
}

// newReceipt converts the node receipt into a Receipt.
func newReceipt(r *types.Receipt) Receipt {
	rcpt := Receipt{
		TxHash:            r.TxHash,
		Status:            StatusFailure,
		ContractAddress:   r.ContractAddress,
		GasUsed:           r.GasUsed,
		EffectiveGasPrice: new(big.Int),
	}

	if r.Status == types.ReceiptStatusSuccessful {
		rcpt.Status = StatusSuccess
	}

	if r.EffectiveGasPrice != nil {
		rcpt.EffectiveGasPrice = new(big.Int).Set(r.EffectiveGasPrice)
	}

	if r.BlockNumber != nil {
		rcpt.BlockNumber = r.BlockNumber.Uint64()
	}

	return rcpt
}

// HasContractAddress reports whether the receipt names a created contract.
func (r Receipt) HasContractAddress() bool {
	return r.ContractAddress != (common.Address{})
}

// Cost returns the fee paid for the transaction, gas used times the
// effective gas price.
func (r Receipt) Cost() *big.Int {
	if r.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}
