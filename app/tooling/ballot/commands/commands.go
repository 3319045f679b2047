// Package commands implements the ballot tool's commands. Every command
// validates its input before it touches the network.
package commands

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ardanlabs/ballot/business/config"
	"github.com/ardanlabs/ballot/business/contracts"
	"github.com/ardanlabs/ballot/business/contracts/votetoken"
	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ardanlabs/ballot/foundation/nameservice"
	"github.com/ardanlabs/ballot/foundation/prompt"
	"github.com/ardanlabs/ballot/foundation/validate"
	"github.com/ethereum/go-ethereum/common"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Dialer connects to the node behind the endpoint.
type Dialer func(ctx context.Context, ep chain.Endpoint) (chain.Client, error)

// DialEndpoint connects to a node over json-rpc.
func DialEndpoint(ctx context.Context, ep chain.Endpoint) (chain.Client, error) {
	conn, err := chain.Connect(ctx, ep)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Env carries what the commands need to run.
type Env struct {
	Log      *zap.SugaredLogger
	TraceID  string
	Config   config.Config
	Dial     Dialer
	Out      io.Writer
	Progress io.Writer
	Prompt   *prompt.Prompter
	Names    *nameservice.NameService
}

// session is an open connection, and the signer for commands that write.
type session struct {
	client chain.Client
	wf     chain.Workflow
	close  func()
}

// open connects to the node. With a signer it also loads the account and
// constructs the workflow every write goes through.
func (env Env) open(ctx context.Context, signer bool) (session, error) {
	var acct chain.Account
	if signer {
		var err error
		if acct, err = env.Config.Account(); err != nil {
			return session{}, err
		}
	}

	client, err := env.Dial(ctx, env.Config.Endpoint)
	if err != nil {
		return session{}, err
	}

	env.Log.Infow("connected", "traceid", env.TraceID, "endpoint", env.Config.Endpoint)

	s := session{
		client: client,
		close:  func() {},
	}

	if c, ok := client.(interface{ Close() }); ok {
		s.close = c.Close
	}

	if signer {
		sp := spinner{w: env.Progress}

		waiter := env.Config.Waiter
		waiter.OnPoll = sp.poll

		s.wf = chain.Workflow{
			Client:  client,
			Account: acct,
			Waiter:  waiter,
			EvHandler: func(v string, args ...any) {
				sp.stop()
				env.Log.Infow(fmt.Sprintf(v, args...), "traceid", env.TraceID)
			},
		}
	}

	return s, nil
}

// name returns the display name of an account.
func (env Env) name(addr common.Address) string {
	name := env.Names.Lookup(addr)
	if name == addr.Hex() {
		return name
	}
	return fmt.Sprintf("%s(%s)", name, addr.Hex())
}

// printSigner shows the height, the signer and its native balance the way
// every write command starts.
func (env Env) printSigner(ctx context.Context, s session) error {
	height, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("reading block number: %w", err)
	}

	bal, err := s.client.BalanceAt(ctx, s.wf.Account.Address, nil)
	if err != nil {
		return fmt.Errorf("reading balance: %w", err)
	}

	fmt.Fprintf(env.Out, "Last block number: %d\n", height)
	fmt.Fprintf(env.Out, "Signer address: %s\n", env.name(s.wf.Account.Address))
	fmt.Fprintf(env.Out, "Signer balance: %s ETH\n\n", chain.FormatUnits(bal, 18))

	return nil
}

// printReceipt shows the confirmed transaction.
func (env Env) printReceipt(op string, rcpt chain.Receipt) {
	fmt.Fprintf(env.Out, "%s: tx %s confirmed in block %d, gas %d, cost %s ETH\n",
		op, rcpt.TxHash.Hex(), rcpt.BlockNumber, rcpt.GasUsed, chain.FormatUnits(rcpt.Cost(), 18))
}

// artifact loads the deployment bytecode of the named contract.
func (env Env) artifact(name string) ([]byte, error) {
	a, err := contracts.LoadArtifact(contracts.ArtifactPath(env.Config.ArtifactsDir, name))
	if err != nil {
		return nil, err
	}
	return a.Bytecode, nil
}

// =============================================================================

// spinner shows that a command is waiting for a confirmation.
type spinner struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (sp *spinner) poll(attempt int, elapsed time.Duration) {
	if sp.w == nil {
		return
	}

	if sp.bar == nil {
		sp.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(sp.w),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetDescription("Waiting for confirmation..."),
		)
	}

	sp.bar.Describe(fmt.Sprintf("Waiting for confirmation... attempt %d, %s", attempt, elapsed.Round(time.Second)))
	sp.bar.Add(1)
}

func (sp *spinner) stop() {
	if sp.bar != nil {
		sp.bar.Finish()
		sp.bar = nil
	}
}

// =============================================================================

// amount parses a token amount given in whole tokens.
func amount(field string, s string) (*big.Int, error) {
	v, err := chain.ParseUnits(s, votetoken.Decimals)
	if err != nil {
		return nil, validate.Fail(field, "%s", err)
	}
	return v, nil
}

// tokens formats base units as whole tokens.
func tokens(v *big.Int) string {
	return chain.FormatUnits(v, votetoken.Decimals)
}

// arg returns the positional argument or an empty string.
func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
