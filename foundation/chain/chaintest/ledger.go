// Package chaintest provides an in-memory ledger that satisfies the chain
// client interfaces so workflows can be tested without a node.
package chaintest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// Gas charged by the ledger. Execution is not metered.
const (
	gasTx       = 21000
	gasCreate   = 32000
	gasCall     = 20000
	gasZeroByte = 4
	gasDataByte = 16
)

// Genesis represents the starting state of the ledger.
type Genesis struct {
	ChainID  uint64
	BaseFee  *big.Int // A nil base fee makes the ledger pre london.
	Balances map[common.Address]*big.Int
}

// info represents the state stored for an individual account.
type info struct {
	balance *big.Int
	nonce   uint64
}

// pendingTx is a transaction waiting to be mined.
type pendingTx struct {
	tx   *types.Transaction
	from common.Address
}

// registration binds deployment bytecode to the contract it creates.
type registration struct {
	code    []byte
	factory Factory
}

// Ledger is an in-memory chain. By default every transaction is mined into
// its own block as soon as it is sent, the way a hardhat node automines.
type Ledger struct {
	mu        sync.Mutex
	chainID   *big.Int
	baseFee   *big.Int
	tip       *big.Int
	height    uint64
	autoMine  bool
	accounts  map[common.Address]*info
	contracts map[common.Address]Contract
	factories []registration
	pending   []pendingTx
	receipts  map[common.Hash]*types.Receipt
}

// New constructs a ledger from the genesis information.
func New(genesis Genesis) *Ledger {
	chainID := genesis.ChainID
	if chainID == 0 {
		chainID = 31337
	}

	l := Ledger{
		chainID:   new(big.Int).SetUint64(chainID),
		tip:       big.NewInt(params.GWei),
		autoMine:  true,
		accounts:  make(map[common.Address]*info),
		contracts: make(map[common.Address]Contract),
		receipts:  make(map[common.Hash]*types.Receipt),
	}

	if genesis.BaseFee != nil {
		l.baseFee = new(big.Int).Set(genesis.BaseFee)
	}

	for addr, balance := range genesis.Balances {
		l.accounts[addr] = &info{balance: new(big.Int).Set(balance)}
	}

	return &l
}

// Register binds deployment bytecode to a contract factory. A deployment
// whose input starts with the bytecode runs the factory with the rest of
// the input as constructor arguments.
func (l *Ledger) Register(bytecode []byte, factory Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.factories = append(l.factories, registration{code: bytes.Clone(bytecode), factory: factory})
}

// SetAutoMine turns automatic mining on or off. With it off transactions
// stay pending, and without receipts, until Mine is called.
func (l *Ledger) SetAutoMine(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.autoMine = on
}

// Mine includes the pending transactions in the next block and then adds
// empty blocks until the specified number of blocks was produced.
func (l *Ledger) Mine(blocks int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 0; i < blocks; i++ {
		l.mineBlock()
	}
}

// Height returns the number of the latest block.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.height
}

// =============================================================================

// ChainID returns the chain id of the ledger.
func (l *Ledger) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(l.chainID), nil
}

// BlockNumber returns the number of the latest block.
func (l *Ledger) BlockNumber(ctx context.Context) (uint64, error) {
	return l.Height(), nil
}

// BalanceAt returns the current balance of the account. Historical
// balances are not kept.
func (l *Ledger) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return new(big.Int).Set(l.account(account).balance), nil
}

// HeaderByNumber returns a header for the latest block.
func (l *Ledger) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := types.Header{
		Number: new(big.Int).SetUint64(l.height),
	}

	if l.baseFee != nil {
		h.BaseFee = new(big.Int).Set(l.baseFee)
	}

	return &h, nil
}

// CallContract runs the call against a copy of the contract. The call runs
// in the context of the next block, as nodes do for pending state.
func (l *Ledger) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.To == nil {
		return nil, nil
	}

	block := l.height + 1
	if blockNumber != nil {
		block = blockNumber.Uint64() + 1
	}

	c, exists := l.contracts[*msg.To]
	if !exists {
		return nil, nil
	}

	return c.Clone().Execute(l.env(msg.From, *msg.To, msg.Value, block), msg.Data)
}

// EstimateGas dry runs the message and returns the gas the ledger will
// charge for it.
func (l *Ledger) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.Value != nil && l.account(msg.From).balance.Cmp(msg.Value) < 0 {
		return 0, errors.New("insufficient funds for transfer")
	}

	switch {
	case msg.To == nil:
		reg, exists := l.lookup(msg.Data)
		if !exists {
			return 0, errors.New("invalid opcode: unknown bytecode")
		}

		env := l.env(msg.From, crypto.CreateAddress(msg.From, l.pendingNonce(msg.From)), msg.Value, l.height+1)
		if _, err := reg.factory(env, msg.Data[len(reg.code):]); err != nil {
			return 0, err
		}

	default:
		if c, exists := l.contracts[*msg.To]; exists {
			env := l.env(msg.From, *msg.To, msg.Value, l.height+1)
			if _, err := c.Clone().Execute(env, msg.Data); err != nil {
				return 0, err
			}
		}
	}

	return intrinsicGas(msg.To, msg.Data), nil
}

// PendingNonceAt returns the next nonce for the account including the
// transactions waiting to be mined.
func (l *Ledger) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pendingNonce(account), nil
}

// SuggestGasPrice returns the base fee plus the tip.
func (l *Ledger) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if l.baseFee == nil {
		return new(big.Int).Set(l.tip), nil
	}
	return new(big.Int).Add(l.baseFee, l.tip), nil
}

// SuggestGasTipCap returns the tip.
func (l *Ledger) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(l.tip), nil
}

// SendTransaction validates the signed transaction and adds it to the
// pending set, mining it right away when automine is on.
func (l *Ledger) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	from, err := types.Sender(types.LatestSignerForChainID(l.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	switch nonce := l.pendingNonce(from); {
	case tx.Nonce() < nonce:
		return fmt.Errorf("nonce too low: address %s, tx: %d state: %d", from.Hex(), tx.Nonce(), nonce)
	case tx.Nonce() > nonce:
		return fmt.Errorf("nonce too high: address %s, tx: %d state: %d", from.Hex(), tx.Nonce(), nonce)
	}

	if l.account(from).balance.Cmp(tx.Cost()) < 0 {
		return fmt.Errorf("insufficient funds for gas * price + value: address %s have %s want %s", from.Hex(), l.account(from).balance, tx.Cost())
	}

	if l.baseFee != nil && tx.GasFeeCap().Cmp(l.baseFee) < 0 {
		return fmt.Errorf("max fee per gas less than block base fee: have %s want %s", tx.GasFeeCap(), l.baseFee)
	}

	l.pending = append(l.pending, pendingTx{tx: tx, from: from})

	if l.autoMine {
		l.mineBlock()
	}

	return nil
}

// TransactionReceipt returns the receipt of a mined transaction or
// ethereum.NotFound.
func (l *Ledger) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, exists := l.receipts[txHash]
	if !exists {
		return nil, ethereum.NotFound
	}

	cpy := *r
	return &cpy, nil
}

// =============================================================================

// mineBlock produces the next block with every pending transaction.
func (l *Ledger) mineBlock() {
	l.height++

	var cumulative uint64
	for _, ptx := range l.pending {
		r := l.apply(ptx.tx, ptx.from)
		cumulative += r.GasUsed
		r.CumulativeGasUsed = cumulative
		l.receipts[r.TxHash] = r
	}

	l.pending = nil
}

// apply executes the transaction against the state and returns its receipt.
func (l *Ledger) apply(tx *types.Transaction, from common.Address) *types.Receipt {
	gasUsed := intrinsicGas(tx.To(), tx.Data())
	price := l.effectiveGasPrice(tx)

	r := types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusFailed,
		TxHash:            tx.Hash(),
		GasUsed:           min(gasUsed, tx.Gas()),
		EffectiveGasPrice: price,
		BlockNumber:       new(big.Int).SetUint64(l.height),
		Logs:              []*types.Log{},
	}

	sender := l.account(from)
	sender.nonce++
	sender.balance.Sub(sender.balance, new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), price))

	if tx.Gas() < gasUsed {
		return &r
	}

	switch to := tx.To(); {
	case to == nil:
		addr := crypto.CreateAddress(from, tx.Nonce())
		reg, exists := l.lookup(tx.Data())
		if !exists {
			return &r
		}

		env := l.env(from, addr, tx.Value(), l.height)
		c, err := reg.factory(env, tx.Data()[len(reg.code):])
		if err != nil {
			return &r
		}

		l.contracts[addr] = c
		l.transfer(from, addr, tx.Value())
		r.ContractAddress = addr

	default:
		if c, exists := l.contracts[*to]; exists {
			env := l.env(from, *to, tx.Value(), l.height)
			clone := c.Clone()
			if _, err := clone.Execute(env, tx.Data()); err != nil {
				return &r
			}
			l.contracts[*to] = clone
		}
		l.transfer(from, *to, tx.Value())
	}

	r.Status = types.ReceiptStatusSuccessful
	return &r
}

// effectiveGasPrice returns the price per gas paid by the transaction.
func (l *Ledger) effectiveGasPrice(tx *types.Transaction) *big.Int {
	if l.baseFee == nil || tx.Type() == types.LegacyTxType {
		return new(big.Int).Set(tx.GasPrice())
	}

	price := new(big.Int).Add(l.baseFee, tx.GasTipCap())
	if price.Cmp(tx.GasFeeCap()) > 0 {
		price.Set(tx.GasFeeCap())
	}
	return price
}

// transfer moves value between accounts.
func (l *Ledger) transfer(from common.Address, to common.Address, value *big.Int) {
	if value == nil || value.Sign() == 0 {
		return
	}

	src := l.account(from)
	dst := l.account(to)
	src.balance.Sub(src.balance, value)
	dst.balance.Add(dst.balance, value)
}

// account returns the state of the account, creating it when needed.
func (l *Ledger) account(addr common.Address) *info {
	inf, exists := l.accounts[addr]
	if !exists {
		inf = &info{balance: new(big.Int)}
		l.accounts[addr] = inf
	}
	return inf
}

// pendingNonce returns the nonce the next transaction of the account
// must carry.
func (l *Ledger) pendingNonce(addr common.Address) uint64 {
	nonce := l.account(addr).nonce
	for _, ptx := range l.pending {
		if ptx.from == addr {
			nonce++
		}
	}
	return nonce
}

// lookup finds the registration whose bytecode prefixes the input.
func (l *Ledger) lookup(input []byte) (registration, bool) {
	for _, reg := range l.factories {
		if bytes.HasPrefix(input, reg.code) {
			return reg, true
		}
	}
	return registration{}, false
}

// env constructs the execution context for a call. Static calls from the
// contract reuse the lock already held by the caller.
func (l *Ledger) env(caller common.Address, self common.Address, value *big.Int, block uint64) Env {
	if value == nil {
		value = new(big.Int)
	}

	env := Env{
		Caller:      caller,
		Self:        self,
		Value:       value,
		BlockNumber: block,
	}

	env.staticCall = func(to common.Address, input []byte) ([]byte, error) {
		c, exists := l.contracts[to]
		if !exists {
			return nil, Revert("call to non-contract %s", to.Hex())
		}

		inner := l.env(self, to, nil, block)
		return c.Clone().Execute(inner, input)
	}

	return env
}

// intrinsicGas returns the gas charged for a transaction.
func intrinsicGas(to *common.Address, data []byte) uint64 {
	gas := uint64(gasTx)
	for _, b := range data {
		if b == 0 {
			gas += gasZeroByte
			continue
		}
		gas += gasDataByte
	}

	if to == nil {
		return gas + gasCreate
	}
	return gas + gasCall
}
