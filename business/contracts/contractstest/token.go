// Package contractstest simulates the vote token and the tokenized ballot
// on the in-memory ledger so the bindings and tools can be tested without
// a node.
package contractstest

import (
	"maps"
	"math/big"
	"slices"

	"github.com/ardanlabs/ballot/business/contracts"
	"github.com/ardanlabs/ballot/foundation/chain/chaintest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Roles known by the token.
var (
	AdminRole  = [32]byte{}
	MinterRole = [32]byte(crypto.Keccak256([]byte("MINTER_ROLE")))
)

// checkpoint records the votes of a delegate from a block on.
type checkpoint struct {
	block uint64
	votes *big.Int
}

// Token is the simulated vote token. Votes follow the delegated balances
// and are checkpointed per block.
type Token struct {
	supply      *big.Int
	balances    map[common.Address]*big.Int
	delegates   map[common.Address]common.Address
	checkpoints map[common.Address][]checkpoint
	roles       map[[32]byte]map[common.Address]bool
}

// NewToken constructs the token, granting the deployer the admin and
// minter roles.
func NewToken(env chaintest.Env, args []byte) (chaintest.Contract, error) {
	t := Token{
		supply:      new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		delegates:   make(map[common.Address]common.Address),
		checkpoints: make(map[common.Address][]checkpoint),
		roles: map[[32]byte]map[common.Address]bool{
			AdminRole:  {env.Caller: true},
			MinterRole: {env.Caller: true},
		},
	}

	return &t, nil
}

// Clone implements the chaintest.Contract interface.
func (t *Token) Clone() chaintest.Contract {
	clone := Token{
		supply:      new(big.Int).Set(t.supply),
		balances:    make(map[common.Address]*big.Int, len(t.balances)),
		delegates:   maps.Clone(t.delegates),
		checkpoints: make(map[common.Address][]checkpoint, len(t.checkpoints)),
		roles:       make(map[[32]byte]map[common.Address]bool, len(t.roles)),
	}

	for addr, bal := range t.balances {
		clone.balances[addr] = new(big.Int).Set(bal)
	}

	for addr, cps := range t.checkpoints {
		clone.checkpoints[addr] = slices.Clone(cps)
	}

	for role, members := range t.roles {
		clone.roles[role] = maps.Clone(members)
	}

	return &clone
}

// Execute implements the chaintest.Contract interface.
func (t *Token) Execute(env chaintest.Env, input []byte) ([]byte, error) {
	method, err := contracts.VoteTokenABI.MethodById(input)
	if err != nil {
		return nil, chaintest.Revert("MyToken: unknown function")
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, chaintest.Revert("MyToken: malformed arguments")
	}

	var out []any

	switch method.Name {
	case "name":
		out = []any{contracts.VoteTokenName}

	case "symbol":
		out = []any{"MTK"}

	case "decimals":
		out = []any{uint8(18)}

	case "totalSupply":
		out = []any{new(big.Int).Set(t.supply)}

	case "balanceOf":
		out = []any{t.balance(args[0].(common.Address))}

	case "clock":
		out = []any{new(big.Int).SetUint64(env.BlockNumber)}

	case "MINTER_ROLE":
		out = []any{MinterRole}

	case "hasRole":
		out = []any{t.roles[args[0].([32]byte)][args[1].(common.Address)]}

	case "delegates":
		out = []any{t.delegates[args[0].(common.Address)]}

	case "getVotes":
		out = []any{t.votesAt(args[0].(common.Address), env.BlockNumber)}

	case "getPastVotes":
		timepoint := args[1].(*big.Int)
		if !timepoint.IsUint64() || timepoint.Uint64() >= env.BlockNumber {
			return nil, chaintest.Revert("ERC5805FutureLookup(%v, %d)", timepoint, env.BlockNumber)
		}
		out = []any{t.votesAt(args[0].(common.Address), timepoint.Uint64())}

	case "grantRole":
		if !t.roles[AdminRole][env.Caller] {
			return nil, chaintest.Revert("AccessControlUnauthorizedAccount(%s)", env.Caller.Hex())
		}
		role := args[0].([32]byte)
		if t.roles[role] == nil {
			t.roles[role] = make(map[common.Address]bool)
		}
		t.roles[role][args[1].(common.Address)] = true

	case "mint":
		if !t.roles[MinterRole][env.Caller] {
			return nil, chaintest.Revert("AccessControlUnauthorizedAccount(%s)", env.Caller.Hex())
		}
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		t.supply.Add(t.supply, amount)
		t.balances[to] = new(big.Int).Add(t.balance(to), amount)
		t.moveVotes(env.BlockNumber, common.Address{}, t.delegates[to], amount)

	case "transfer":
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		from := env.Caller
		if t.balance(from).Cmp(amount) < 0 {
			return nil, chaintest.Revert("ERC20InsufficientBalance(%s)", from.Hex())
		}
		t.balances[from] = new(big.Int).Sub(t.balance(from), amount)
		t.balances[to] = new(big.Int).Add(t.balance(to), amount)
		t.moveVotes(env.BlockNumber, t.delegates[from], t.delegates[to], amount)
		out = []any{true}

	case "delegate":
		old := t.delegates[env.Caller]
		t.delegates[env.Caller] = args[0].(common.Address)
		t.moveVotes(env.BlockNumber, old, args[0].(common.Address), t.balance(env.Caller))

	default:
		return nil, chaintest.Revert("MyToken: %s not supported", method.Name)
	}

	return method.Outputs.Pack(out...)
}

// balance returns a copy of the account's balance.
func (t *Token) balance(addr common.Address) *big.Int {
	if bal, exists := t.balances[addr]; exists {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// votesAt returns the votes of the delegate at the end of the block.
func (t *Token) votesAt(addr common.Address, block uint64) *big.Int {
	cps := t.checkpoints[addr]
	for i := len(cps) - 1; i >= 0; i-- {
		if cps[i].block <= block {
			return new(big.Int).Set(cps[i].votes)
		}
	}
	return new(big.Int)
}

// moveVotes moves voting power between delegates. The zero address holds
// no votes.
func (t *Token) moveVotes(block uint64, from common.Address, to common.Address, amount *big.Int) {
	if from == to || amount.Sign() == 0 {
		return
	}

	if from != (common.Address{}) {
		t.push(block, from, new(big.Int).Sub(t.votesAt(from, block), amount))
	}

	if to != (common.Address{}) {
		t.push(block, to, new(big.Int).Add(t.votesAt(to, block), amount))
	}
}

// push writes the delegate's votes for the block.
func (t *Token) push(block uint64, addr common.Address, votes *big.Int) {
	cps := t.checkpoints[addr]
	if n := len(cps); n > 0 && cps[n-1].block == block {
		cps[n-1].votes = votes
		return
	}
	t.checkpoints[addr] = append(cps, checkpoint{block: block, votes: votes})
}
