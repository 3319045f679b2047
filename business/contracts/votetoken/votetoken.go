// Package votetoken provides access to a deployed vote token, an ERC20
// token whose delegated balances are checkpointed as voting power.
package votetoken

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/ballot/business/contracts"
	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Decimals is the number of decimals of the token.
const Decimals = 18

// ErrReadOnly is returned when a write is attempted on a token that was
// bound without a signer.
var ErrReadOnly = errors.New("token is bound read only")

// Token represents a deployed vote token.
type Token struct {
	Address common.Address
	caller  chain.ContractCaller
	wf      *chain.Workflow
}

// New binds a deployed token for reads only.
func New(address common.Address, caller chain.ContractCaller) *Token {
	return &Token{
		Address: address,
		caller:  caller,
	}
}

// Bind binds a deployed token for reads and writes.
func Bind(address common.Address, wf chain.Workflow) *Token {
	return &Token{
		Address: address,
		caller:  wf.Client,
		wf:      &wf,
	}
}

// Deploy creates a new token from the compiled bytecode. The deployer is
// granted the minter role by the constructor.
func Deploy(ctx context.Context, wf chain.Workflow, bytecode []byte) (*Token, chain.Receipt, error) {
	args, err := contracts.VoteTokenABI.Pack("")
	if err != nil {
		return nil, chain.Receipt{}, fmt.Errorf("packing constructor: %w", err)
	}

	spec := chain.CallSpec{
		Name:     "deploy-token",
		Bytecode: bytecode,
		Data:     args,
	}

	rcpt, err := wf.PerformCall(ctx, spec)
	if err != nil {
		return nil, chain.Receipt{}, err
	}

	return Bind(rcpt.ContractAddress, wf), rcpt, nil
}

// =============================================================================

// Mint creates new tokens for the account. The signer needs the minter role.
func (t *Token) Mint(ctx context.Context, to common.Address, amount *big.Int) (chain.Receipt, error) {
	return t.transact(ctx, "mint", to, amount)
}

// Transfer moves tokens from the signer to the account.
func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (chain.Receipt, error) {
	return t.transact(ctx, "transfer", to, amount)
}

// Delegate makes the delegatee the holder of the signer's voting power.
// Delegating to oneself is needed before a balance counts as votes.
func (t *Token) Delegate(ctx context.Context, delegatee common.Address) (chain.Receipt, error) {
	return t.transact(ctx, "delegate", delegatee)
}

// GrantRole gives the account the role.
func (t *Token) GrantRole(ctx context.Context, role [32]byte, account common.Address) (chain.Receipt, error) {
	return t.transact(ctx, "grantRole", role, account)
}

// transact packs the method call and performs it through the workflow.
func (t *Token) transact(ctx context.Context, method string, args ...any) (chain.Receipt, error) {
	if t.wf == nil {
		return chain.Receipt{}, fmt.Errorf("%s: %w", method, ErrReadOnly)
	}

	data, err := contracts.VoteTokenABI.Pack(method, args...)
	if err != nil {
		return chain.Receipt{}, fmt.Errorf("%s: packing arguments: %w", method, err)
	}

	spec := chain.CallSpec{
		Name: method,
		To:   &t.Address,
		Data: data,
	}

	return t.wf.PerformCall(ctx, spec)
}

// =============================================================================

// BalanceOf returns the token balance of the account.
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.readInt(ctx, "balanceOf", account)
}

// TotalSupply returns the amount of tokens in existence.
func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.readInt(ctx, "totalSupply")
}

// GetVotes returns the current voting power of the account. It stays zero
// until the account's balance is delegated.
func (t *Token) GetVotes(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.readInt(ctx, "getVotes", account)
}

// GetPastVotes returns the voting power the account had at the end of the
// specified block. The block must already be mined.
func (t *Token) GetPastVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error) {
	return t.readInt(ctx, "getPastVotes", account, new(big.Int).SetUint64(block))
}

// Delegates returns the account's delegatee, the zero address when the
// account never delegated.
func (t *Token) Delegates(ctx context.Context, account common.Address) (common.Address, error) {
	values, err := chain.ReadField(ctx, t.caller, t.Address, contracts.VoteTokenABI, "delegates", account)
	if err != nil {
		return common.Address{}, err
	}

	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("delegates: unexpected type %T", values[0])
	}

	return addr, nil
}

// MinterRole returns the identifier of the minter role.
func (t *Token) MinterRole(ctx context.Context) ([32]byte, error) {
	values, err := chain.ReadField(ctx, t.caller, t.Address, contracts.VoteTokenABI, "MINTER_ROLE")
	if err != nil {
		return [32]byte{}, err
	}

	role, ok := values[0].([32]byte)
	if !ok {
		return [32]byte{}, fmt.Errorf("MINTER_ROLE: unexpected type %T", values[0])
	}

	return role, nil
}

// HasRole reports whether the account holds the role.
func (t *Token) HasRole(ctx context.Context, role [32]byte, account common.Address) (bool, error) {
	values, err := chain.ReadField(ctx, t.caller, t.Address, contracts.VoteTokenABI, "hasRole", role, account)
	if err != nil {
		return false, err
	}

	has, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("hasRole: unexpected type %T", values[0])
	}

	return has, nil
}

// Info describes the token.
type Info struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Info returns the name, symbol and decimals of the token.
func (t *Token) Info(ctx context.Context) (Info, error) {
	var inf Info

	for _, field := range []struct {
		method string
		dest   any
	}{
		{"name", &inf.Name},
		{"symbol", &inf.Symbol},
		{"decimals", &inf.Decimals},
	} {
		values, err := chain.ReadField(ctx, t.caller, t.Address, contracts.VoteTokenABI, field.method)
		if err != nil {
			return Info{}, err
		}

		switch dest := field.dest.(type) {
		case *string:
			*dest, _ = values[0].(string)
		case *uint8:
			*dest, _ = values[0].(uint8)
		}
	}

	return inf, nil
}

// readInt reads a method returning a single uint256.
func (t *Token) readInt(ctx context.Context, method string, args ...any) (*big.Int, error) {
	values, err := chain.ReadField(ctx, t.caller, t.Address, contracts.VoteTokenABI, method, args...)
	if err != nil {
		return nil, err
	}

	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", method, values[0])
	}

	return v, nil
}
