package commands

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ardanlabs/ballot/business/contracts"
	"github.com/ardanlabs/ballot/business/contracts/votetoken"
	"github.com/ardanlabs/ballot/foundation/validate"
	"github.com/ethereum/go-ethereum/common"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// DeployToken deploys a new vote token and mints the value to every
// recipient.
func DeployToken(ctx context.Context, args []string, mintValue string, env Env) error {
	recipients := make([]common.Address, len(args))
	for i, a := range args {
		addr, err := validate.Address(fmt.Sprintf("recipient[%d]", i), a)
		if err != nil {
			return err
		}
		recipients[i] = addr
	}

	var value *big.Int
	if len(recipients) > 0 {
		var err error
		if value, err = amount("mint-value", mintValue); err != nil {
			return err
		}
	}

	bytecode, err := env.artifact(contracts.VoteTokenName)
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

	fmt.Fprintln(env.Out, "Deploying token contract...")

	token, rcpt, err := votetoken.Deploy(ctx, s.wf, bytecode)
	if err != nil {
		return err
	}

	env.printReceipt("deploy-token", rcpt)
	fmt.Fprintf(env.Out, "Token contract deployed to: %s\n\n", token.Address.Hex())

	for _, to := range recipients {
		if err := mint(ctx, env, token, to, value); err != nil {
			return err
		}
	}

	return nil
}

// Mint mints tokens to an account. The signer needs the minter role.
//
//	mint <to> <amount>
func Mint(ctx context.Context, args []string, env Env) error {
	to, err := validate.Address("to", arg(args, 0))
	if err != nil {
		return err
	}

	value, err := amount("amount", arg(args, 1))
	if err != nil {
		return err
	}

	tokenAddr, err := env.Config.Token()
	if err != nil {
		return err
	}

	s, err := env.open(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	return mint(ctx, env, votetoken.Bind(tokenAddr, s.wf), to, value)
}

func mint(ctx context.Context, env Env, token *votetoken.Token, to common.Address, value *big.Int) error {
	fmt.Fprintf(env.Out, "Minting %s tokens to %s...\n", tokens(value), env.name(to))

	rcpt, err := token.Mint(ctx, to, value)
	if err != nil {
		return err
	}
	env.printReceipt("mint", rcpt)

	bal, err := token.BalanceOf(ctx, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Account %s has %s tokens\n\n", env.name(to), tokens(bal))

	return nil
}

// Delegate delegates the signer's voting power, to itself when no
// delegatee is given.
//
//	delegate [to]
func Delegate(ctx context.Context, args []string, env Env) error {
	var to common.Address
	if a := arg(args, 0); a != "" {
		addr, err := validate.Address("to", a)
		if err != nil {
			return err
		}
		to = addr
	}

	tokenAddr, err := env.Config.Token()
	if err != nil {
		return err
	}

	s, err := env.open(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	if to == (common.Address{}) {
		to = s.wf.Account.Address
	}

	token := votetoken.Bind(tokenAddr, s.wf)

	rcpt, err := token.Delegate(ctx, to)
	if err != nil {
		return err
	}
	env.printReceipt("delegate", rcpt)

	votes, err := token.GetVotes(ctx, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Delegated to %s, who now has %s votes\n", env.name(to), tokens(votes))

	return nil
}

// Transfer transfers tokens from the signer. The voting power moves
// between the delegates of both accounts.
//
//	transfer <to> <amount>
func Transfer(ctx context.Context, args []string, env Env) error {
	to, err := validate.Address("to", arg(args, 0))
	if err != nil {
		return err
	}

	value, err := amount("amount", arg(args, 1))
	if err != nil {
		return err
	}

	tokenAddr, err := env.Config.Token()
	if err != nil {
		return err
	}

	s, err := env.open(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	token := votetoken.Bind(tokenAddr, s.wf)
	from := s.wf.Account.Address

	fmt.Fprintf(env.Out, "Transferring %s tokens from %s to %s...\n", tokens(value), env.name(from), env.name(to))

	rcpt, err := token.Transfer(ctx, to, value)
	if err != nil {
		return err
	}
	env.printReceipt("transfer", rcpt)

	for _, addr := range []common.Address{from, to} {
		votes, err := token.GetVotes(ctx, addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "Account %s has %s votes\n", env.name(addr), tokens(votes))
	}

	return nil
}

// Votes shows the voting power of an account, at the specified block when
// one is given. The address is asked for when it is missing.
//
//	votes [address] [block]
func Votes(ctx context.Context, args []string, env Env) error {
	account, err := addressArg(env, args, 0, "Please enter the address whose voting power you'd like to check: ")
	if err != nil {
		return err
	}

	var block uint64
	var past bool
	if a := arg(args, 1); a != "" {
		if block, err = strconv.ParseUint(a, 10, 64); err != nil {
			return validate.Fail("block", "%q is not a block number", a)
		}
		past = true
	}

	tokenAddr, err := env.Config.Token()
	if err != nil {
		return err
	}

	s, err := env.open(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	token := votetoken.New(tokenAddr, s.client)

	if past {
		votes, err := token.GetPastVotes(ctx, account, block)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "Account %s had %s votes at block %d\n", env.name(account), tokens(votes), block)
		return nil
	}

	votes, err := token.GetVotes(ctx, account)
	if err != nil {
		return err
	}

	bal, err := token.BalanceOf(ctx, account)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Account %s has %s tokens and %s votes\n", env.name(account), tokens(bal), tokens(votes))

	return nil
}

// History shows the voting power of an account over the last blocks.
//
//	history <address> [blocks]
func History(ctx context.Context, args []string, blocks uint64, env Env) error {
	account, err := validate.Address("address", arg(args, 0))
	if err != nil {
		return err
	}

	if a := arg(args, 1); a != "" {
		if blocks, err = strconv.ParseUint(a, 10, 64); err != nil || blocks == 0 {
			return validate.Fail("blocks", "%q is not a positive number of blocks", a)
		}
	}

	tokenAddr, err := env.Config.Token()
	if err != nil {
		return err
	}

	s, err := env.open(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	height, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("reading block number: %w", err)
	}

	// The votes of the current block are not final yet.
	blocks = min(blocks, height)
	first := height - blocks

	token := votetoken.New(tokenAddr, s.client)
	votes := make([]*big.Int, blocks)

	var bar *progressbar.ProgressBar
	if env.Progress != nil {
		bar = progressbar.NewOptions64(int64(blocks),
			progressbar.OptionSetWriter(env.Progress),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetDescription("Reading past votes..."),
			progressbar.OptionShowCount(),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i := range blocks {
		g.Go(func() error {
			v, err := token.GetPastVotes(gctx, account, first+i)
			if err != nil {
				return fmt.Errorf("block %d: %w", first+i, err)
			}
			votes[i] = v

			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if bar != nil {
		bar.Finish()
	}

	fmt.Fprintf(env.Out, "Voting power of %s:\n", env.name(account))
	for i, v := range votes {
		fmt.Fprintf(env.Out, "  block %d: %s\n", first+uint64(i), tokens(v))
	}

	return nil
}

// addressArg returns the positional address, asking for it when missing.
func addressArg(env Env, args []string, i int, question string) (common.Address, error) {
	if a := arg(args, i); a != "" {
		return validate.Address("address", a)
	}

	if env.Prompt == nil {
		return common.Address{}, validate.Fail("address", "an address is required")
	}

	return env.Prompt.AskAddress(question, "address")
}
