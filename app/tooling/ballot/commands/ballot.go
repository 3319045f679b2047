package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ardanlabs/ballot/business/config"
	"github.com/ardanlabs/ballot/business/contracts"
	"github.com/ardanlabs/ballot/business/contracts/ballot"
	"github.com/ardanlabs/ballot/foundation/validate"
	"github.com/ethereum/go-ethereum/common"
)

// DeployBallot deploys a ballot over the proposals, weighted by the token.
// The token address can be given as the last argument. Proposals are
// asked for when none are given.
//
//	deploy-ballot [proposal ...] [token]
func DeployBallot(ctx context.Context, args []string, env Env) error {
	names := args

	var tokenAddr common.Address
	if n := len(args); n > 0 && validate.IsAddress(args[n-1]) {
		tokenAddr = common.HexToAddress(args[n-1])
		names = args[:n-1]
	}

	if tokenAddr == (common.Address{}) {
		addr, err := env.Config.Token()
		if err != nil {
			return err
		}
		tokenAddr = addr
	}

	if len(names) == 0 && env.Prompt != nil {
		answers, err := env.Prompt.AskUntil("Please enter the proposals you would like to vote on", "n")
		if err != nil {
			return err
		}
		names = answers
	}

	if len(names) == 0 {
		return validate.Fail("proposals", "at least one proposal is required")
	}

	for i, name := range names {
		if _, err := validate.Proposal(fmt.Sprintf("proposal[%d]", i), name); err != nil {
			return err
		}
	}

	bytecode, err := env.artifact(contracts.BallotName)
	if err != nil {
		return err
	}

	s, err := env.open(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	if err := env.printSigner(ctx, s); err != nil {
		return err
	}

	height, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("reading block number: %w", err)
	}

	target, err := config.TargetBlock(height, env.Config.SnapshotMargin)
	if err != nil {
		return err
	}

	fmt.Fprintln(env.Out, "Proposals:")
	for i, name := range names {
		fmt.Fprintf(env.Out, "  Proposal N. %d: %s\n", i+1, name)
	}
	fmt.Fprintf(env.Out, "Deploying ballot contract with token %s and target block %d...\n", tokenAddr.Hex(), target)

	b, rcpt, err := ballot.Deploy(ctx, s.wf, bytecode, names, tokenAddr, target)
	if err != nil {
		return err
	}

	env.printReceipt("deploy-ballot", rcpt)
	fmt.Fprintf(env.Out, "Ballot contract deployed to: %s\n\n", b.Address.Hex())

	return printProposals(ctx, env, b)
}

// Proposals shows the proposals of the ballot and their votes.
func Proposals(ctx context.Context, args []string, env Env) error {
	ballotAddr, err := env.Config.Ballot()
	if err != nil {
		return err
	}

	s, err := env.open(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	b := ballot.New(ballotAddr, s.client)

	target, err := b.TargetBlockNumber(ctx)
	if err != nil {
		return err
	}

	token, err := b.TokenContract(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Ballot %s, token %s, target block %d\n", ballotAddr.Hex(), token.Hex(), target)

	return printProposals(ctx, env, b)
}

func printProposals(ctx context.Context, env Env, b *ballot.Ballot) error {
	list, err := b.AllProposals(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(env.Out, "Proposals:")
	for _, p := range list {
		fmt.Fprintf(env.Out, "  %d: %s (%s votes)\n", p.Index, p.Name, tokens(p.VoteCount))
	}

	return nil
}

// Vote casts the amount of the signer's voting power for the proposal.
//
//	vote <proposal> <amount>
func Vote(ctx context.Context, args []string, env Env) error {
	index, err := strconv.Atoi(arg(args, 0))
	if err != nil || index < 0 {
		return validate.Fail("proposal", "%q is not a proposal index", arg(args, 0))
	}

	value, err := amount("amount", arg(args, 1))
	if err != nil {
		return err
	}

	ballotAddr, err := env.Config.Ballot()
	if err != nil {
		return err
	}

	s, err := env.open(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	b := ballot.Bind(ballotAddr, s.wf)
	voter := s.wf.Account.Address

	fmt.Fprintf(env.Out, "Voting %s for proposal %d...\n", tokens(value), index)

	rcpt, err := b.Vote(ctx, index, value)
	if err != nil {
		return err
	}
	env.printReceipt("vote", rcpt)

	fmt.Fprintf(env.Out, "Account %s voted %s tokens for proposal %d\n", env.name(voter), tokens(value), index)

	power, err := b.VotingPower(ctx, voter)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Remaining voting power: %s\n", tokens(power))

	return nil
}

// Winner shows the winning proposal of the ballot given as argument, the
// configured ballot, or a ballot asked for.
//
//	winner [ballot]
func Winner(ctx context.Context, args []string, env Env) error {
	var ballotAddr common.Address
	switch a := arg(args, 0); {
	case a != "":
		addr, err := validate.Address("ballot", a)
		if err != nil {
			return err
		}
		ballotAddr = addr

	case env.Config.BallotAddress != (common.Address{}):
		ballotAddr = env.Config.BallotAddress

	default:
		addr, err := addressArg(env, nil, 0, "Please input the contract address: ")
		if err != nil {
			return err
		}
		ballotAddr = addr
	}

	s, err := env.open(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	b := ballot.New(ballotAddr, s.client)

	index, err := b.WinningProposal(ctx)
	if err != nil {
		return err
	}

	name, err := b.WinnerName(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Winning proposal: %d: %s\n", index, name)

	return nil
}
