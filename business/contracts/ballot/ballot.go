// Package ballot provides access to a deployed tokenized ballot. Voting
// power is the voter's delegated token balance at the ballot's target
// block, minus the power already spent.
package ballot

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/ballot/business/contracts"
	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// probeBatch is the number of proposals read concurrently while looking
// for the end of the proposal list.
const probeBatch = 8

// ErrReadOnly is returned when a write is attempted on a ballot that was
// bound without a signer.
var ErrReadOnly = errors.New("ballot is bound read only")

// Proposal is a ballot option and the votes it has received.
type Proposal struct {
	Index     int
	Name      string
	VoteCount *big.Int
}

// String implements the Stringer interface.
func (p Proposal) String() string {
	return fmt.Sprintf("%d: %s (%v votes)", p.Index, p.Name, p.VoteCount)
}

// Ballot represents a deployed tokenized ballot.
type Ballot struct {
	Address common.Address
	caller  chain.ContractCaller
	wf      *chain.Workflow
}

// New binds a deployed ballot for reads only.
func New(address common.Address, caller chain.ContractCaller) *Ballot {
	return &Ballot{
		Address: address,
		caller:  caller,
	}
}

// Bind binds a deployed ballot for reads and writes.
func Bind(address common.Address, wf chain.Workflow) *Ballot {
	return &Ballot{
		Address: address,
		caller:  wf.Client,
		wf:      &wf,
	}
}

// Deploy creates a new ballot over the proposals. Votes are weighted by
// the token's voting power at the target block, which must be greater
// than the current height.
func Deploy(ctx context.Context, wf chain.Workflow, bytecode []byte, proposals []string, token common.Address, targetBlock uint64) (*Ballot, chain.Receipt, error) {
	if len(proposals) == 0 {
		return nil, chain.Receipt{}, errors.New("deploy-ballot: at least one proposal is required")
	}

	names := make([][32]byte, len(proposals))
	for i, p := range proposals {
		name, err := chain.EncodeBytes32(p)
		if err != nil {
			return nil, chain.Receipt{}, fmt.Errorf("deploy-ballot: proposal %d: %w", i, err)
		}
		names[i] = name
	}

	args, err := contracts.BallotABI.Pack("", names, token, new(big.Int).SetUint64(targetBlock))
	if err != nil {
		return nil, chain.Receipt{}, fmt.Errorf("deploy-ballot: packing constructor: %w", err)
	}

	spec := chain.CallSpec{
		Name:     "deploy-ballot",
		Bytecode: bytecode,
		Data:     args,
	}

	rcpt, err := wf.PerformCall(ctx, spec)
	if err != nil {
		return nil, chain.Receipt{}, err
	}

	return Bind(rcpt.ContractAddress, wf), rcpt, nil
}

// Vote casts the amount of the signer's voting power for the proposal.
func (b *Ballot) Vote(ctx context.Context, proposal int, amount *big.Int) (chain.Receipt, error) {
	if b.wf == nil {
		return chain.Receipt{}, fmt.Errorf("vote: %w", ErrReadOnly)
	}

	if proposal < 0 {
		return chain.Receipt{}, fmt.Errorf("vote: invalid proposal index %d", proposal)
	}

	data, err := contracts.BallotABI.Pack("vote", big.NewInt(int64(proposal)), amount)
	if err != nil {
		return chain.Receipt{}, fmt.Errorf("vote: packing arguments: %w", err)
	}

	spec := chain.CallSpec{
		Name: "vote",
		To:   &b.Address,
		Data: data,
	}

	return b.wf.PerformCall(ctx, spec)
}

// =============================================================================

// Proposal reads the proposal at the index. Reading past the end of the
// list reverts.
func (b *Ballot) Proposal(ctx context.Context, index int) (Proposal, error) {
	values, err := chain.ReadField(ctx, b.caller, b.Address, contracts.BallotABI, "proposals", big.NewInt(int64(index)))
	if err != nil {
		return Proposal{}, err
	}

	if len(values) != 2 {
		return Proposal{}, fmt.Errorf("proposals: expected 2 values, got %d", len(values))
	}

	name, ok := values[0].([32]byte)
	if !ok {
		return Proposal{}, fmt.Errorf("proposals: unexpected name type %T", values[0])
	}

	count, ok := values[1].(*big.Int)
	if !ok {
		return Proposal{}, fmt.Errorf("proposals: unexpected count type %T", values[1])
	}

	p := Proposal{
		Index:     index,
		Name:      chain.DecodeBytes32(name),
		VoteCount: count,
	}

	return p, nil
}

// Proposals reads the first n proposals concurrently.
func (b *Ballot) Proposals(ctx context.Context, n int) ([]Proposal, error) {
	return b.proposals(ctx, 0, n)
}

// AllProposals reads every proposal. The contract does not expose the
// length of the list, so proposals are read in batches until a read
// reverts.
func (b *Ballot) AllProposals(ctx context.Context) ([]Proposal, error) {
	var all []Proposal

	for start := 0; ; start += probeBatch {
		batch := make([]Proposal, probeBatch)
		found := make([]bool, probeBatch)

		g, gctx := errgroup.WithContext(ctx)
		for i := range probeBatch {
			g.Go(func() error {
				p, err := b.Proposal(gctx, start+i)
				if err != nil {
					if chain.IsReverted(err) {
						return nil
					}
					return err
				}
				batch[i] = p
				found[i] = true
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i := range probeBatch {
			if !found[i] {
				return all, nil
			}
			all = append(all, batch[i])
		}
	}
}

// proposals reads the proposals in the range [start, start+n).
func (b *Ballot) proposals(ctx context.Context, start int, n int) ([]Proposal, error) {
	list := make([]Proposal, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error {
			p, err := b.Proposal(gctx, start+i)
			if err != nil {
				return fmt.Errorf("proposal %d: %w", start+i, err)
			}
			list[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return list, nil
}

// WinningProposal returns the index of the proposal with the most votes.
func (b *Ballot) WinningProposal(ctx context.Context) (int, error) {
	v, err := b.readInt(ctx, "winningProposal")
	if err != nil {
		return 0, err
	}

	return int(v.Int64()), nil
}

// WinnerName returns the name of the proposal with the most votes.
func (b *Ballot) WinnerName(ctx context.Context) (string, error) {
	values, err := chain.ReadField(ctx, b.caller, b.Address, contracts.BallotABI, "winnerName")
	if err != nil {
		return "", err
	}

	name, ok := values[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("winnerName: unexpected type %T", values[0])
	}

	return chain.DecodeBytes32(name), nil
}

// TargetBlockNumber returns the block whose voting power snapshot the
// ballot uses.
func (b *Ballot) TargetBlockNumber(ctx context.Context) (uint64, error) {
	v, err := b.readInt(ctx, "targetBlockNumber")
	if err != nil {
		return 0, err
	}

	return v.Uint64(), nil
}

// TokenContract returns the address of the token weighting the votes.
func (b *Ballot) TokenContract(ctx context.Context) (common.Address, error) {
	values, err := chain.ReadField(ctx, b.caller, b.Address, contracts.BallotABI, "tokenContract")
	if err != nil {
		return common.Address{}, err
	}

	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("tokenContract: unexpected type %T", values[0])
	}

	return addr, nil
}

// VotingPower returns the voting power the account has left.
func (b *Ballot) VotingPower(ctx context.Context, account common.Address) (*big.Int, error) {
	return b.readInt(ctx, "votingPower", account)
}

// VotePowerSpent returns the voting power the account already used.
func (b *Ballot) VotePowerSpent(ctx context.Context, account common.Address) (*big.Int, error) {
	return b.readInt(ctx, "votePowerSpent", account)
}

// readInt reads a method returning a single uint256.
func (b *Ballot) readInt(ctx context.Context, method string, args ...any) (*big.Int, error) {
	values, err := chain.ReadField(ctx, b.caller, b.Address, contracts.BallotABI, method, args...)
	if err != nil {
		return nil, err
	}

	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", method, values[0])
	}

	return v, nil
}
