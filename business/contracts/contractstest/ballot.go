package contractstest

import (
	"maps"
	"math/big"
	"slices"

	"github.com/ardanlabs/ballot/business/contracts"
	"github.com/ardanlabs/ballot/foundation/chain/chaintest"
	"github.com/ethereum/go-ethereum/common"
)

// InsufficientPower is the revert reason of a vote exceeding the voter's
// remaining power.
const InsufficientPower = "TokenizedBallot: Insufficient voting power"

// proposal is a ballot option.
type proposal struct {
	name      [32]byte
	voteCount *big.Int
}

// Ballot is the simulated tokenized ballot.
type Ballot struct {
	proposals   []proposal
	token       common.Address
	targetBlock *big.Int
	spent       map[common.Address]*big.Int
}

// NewBallot constructs the ballot from the proposal names, the token
// address and the target block.
func NewBallot(env chaintest.Env, args []byte) (chaintest.Contract, error) {
	values, err := contracts.BallotABI.Constructor.Inputs.Unpack(args)
	if err != nil {
		return nil, chaintest.Revert("TokenizedBallot: malformed constructor arguments")
	}

	b := Ballot{
		token:       values[1].(common.Address),
		targetBlock: values[2].(*big.Int),
		spent:       make(map[common.Address]*big.Int),
	}

	for _, name := range values[0].([][32]byte) {
		b.proposals = append(b.proposals, proposal{name: name, voteCount: new(big.Int)})
	}

	return &b, nil
}

// Clone implements the chaintest.Contract interface.
func (b *Ballot) Clone() chaintest.Contract {
	clone := Ballot{
		proposals:   slices.Clone(b.proposals),
		token:       b.token,
		targetBlock: b.targetBlock,
		spent:       maps.Clone(b.spent),
	}

	for i := range clone.proposals {
		clone.proposals[i].voteCount = new(big.Int).Set(b.proposals[i].voteCount)
	}

	return &clone
}

// Execute implements the chaintest.Contract interface.
func (b *Ballot) Execute(env chaintest.Env, input []byte) ([]byte, error) {
	method, err := contracts.BallotABI.MethodById(input)
	if err != nil {
		return nil, chaintest.Revert("TokenizedBallot: unknown function")
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, chaintest.Revert("TokenizedBallot: malformed arguments")
	}

	var out []any

	switch method.Name {
	case "tokenContract":
		out = []any{b.token}

	case "targetBlockNumber":
		out = []any{new(big.Int).Set(b.targetBlock)}

	case "proposals":
		idx := args[0].(*big.Int)
		if !idx.IsInt64() || idx.Int64() >= int64(len(b.proposals)) {
			return nil, chaintest.Revert("TokenizedBallot: proposal %v out of bounds", idx)
		}
		p := b.proposals[idx.Int64()]
		out = []any{p.name, new(big.Int).Set(p.voteCount)}

	case "votePowerSpent":
		out = []any{b.spentBy(args[0].(common.Address))}

	case "votingPower":
		power, err := b.votingPower(env, args[0].(common.Address))
		if err != nil {
			return nil, err
		}
		out = []any{power}

	case "vote":
		idx, amount := args[0].(*big.Int), args[1].(*big.Int)

		power, err := b.votingPower(env, env.Caller)
		if err != nil {
			return nil, err
		}
		if power.Cmp(amount) < 0 {
			return nil, chaintest.Revert(InsufficientPower)
		}
		if !idx.IsInt64() || idx.Int64() >= int64(len(b.proposals)) {
			return nil, chaintest.Revert("TokenizedBallot: proposal %v out of bounds", idx)
		}

		b.spent[env.Caller] = new(big.Int).Add(b.spentBy(env.Caller), amount)
		p := &b.proposals[idx.Int64()]
		p.voteCount = new(big.Int).Add(p.voteCount, amount)

	case "winningProposal":
		out = []any{big.NewInt(int64(b.winner()))}

	case "winnerName":
		var name [32]byte
		if len(b.proposals) > 0 {
			name = b.proposals[b.winner()].name
		}
		out = []any{name}

	default:
		return nil, chaintest.Revert("TokenizedBallot: %s not supported", method.Name)
	}

	return method.Outputs.Pack(out...)
}

// votingPower asks the token for the account's votes at the target block
// and subtracts what the account already spent.
func (b *Ballot) votingPower(env chaintest.Env, account common.Address) (*big.Int, error) {
	input, err := contracts.VoteTokenABI.Pack("getPastVotes", account, b.targetBlock)
	if err != nil {
		return nil, chaintest.Revert("TokenizedBallot: packing getPastVotes")
	}

	output, err := env.StaticCall(b.token, input)
	if err != nil {
		return nil, err
	}

	values, err := contracts.VoteTokenABI.Unpack("getPastVotes", output)
	if err != nil {
		return nil, chaintest.Revert("TokenizedBallot: malformed getPastVotes result")
	}

	return new(big.Int).Sub(values[0].(*big.Int), b.spentBy(account)), nil
}

// spentBy returns the voting power the account already used.
func (b *Ballot) spentBy(account common.Address) *big.Int {
	if s, exists := b.spent[account]; exists {
		return new(big.Int).Set(s)
	}
	return new(big.Int)
}

// winner returns the index of the first proposal with the most votes.
func (b *Ballot) winner() int {
	var win int
	best := new(big.Int)
	for i, p := range b.proposals {
		if p.voteCount.Cmp(best) > 0 {
			best = p.voteCount
			win = i
		}
	}
	return win
}
