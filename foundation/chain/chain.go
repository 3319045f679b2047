// Package chain provides the support for connecting to an EVM ledger and
// turning a state changing call into a confirmed and verified effect.
//
// Every mutating call goes through the same workflow: the transaction is
// built, signed and broadcast, its receipt is polled for under a bounded
// wait, and the receipt is validated before the call is reported as done.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractCaller performs side effect free contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ReceiptReader looks up transaction receipts. It must return
// ethereum.NotFound while the transaction is not yet included.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Reader is the read capable side of a connection.
type Reader interface {
	ContractCaller
	ReceiptReader
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Client is a connection able to read from and submit transactions to
// the ledger. The go-ethereum ethclient satisfies this interface.
type Client interface {
	Reader
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}
