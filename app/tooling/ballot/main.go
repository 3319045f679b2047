// This program deploys and exercises a vote token and a tokenized ballot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/ballot/app/tooling/ballot/commands"
	"github.com/ardanlabs/ballot/business/config"
	"github.com/ardanlabs/ballot/foundation/logger"
	"github.com/ardanlabs/ballot/foundation/nameservice"
	"github.com/ardanlabs/ballot/foundation/prompt"
	"github.com/ardanlabs/conf/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("BALLOT")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the command and report any failure with a non zero exit code.
	if err := run(log); err != nil {
		log.Errorw("ballot", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Args  conf.Args
		Chain struct {
			Network      string        `conf:"default:sepolia,env:NETWORK"`
			APIKey       string        `conf:"env:ALCHEMY_API_KEY,mask"`
			URL          string        `conf:"env:RPC_URL"`
			ChainID      uint64        `conf:"env:CHAIN_ID"`
			PollInterval time.Duration `conf:"default:2s"`
			Timeout      time.Duration `conf:"default:2m"`
		}
		Signer struct {
			PrivateKey string `conf:"env:PRIVATE_KEY,mask"`
			KeyFile    string `conf:"env:KEY_FILE"`
		}
		Contracts struct {
			Ballot         string `conf:"env:BALLOT_CONTRACT_ADDRESS"`
			Token          string `conf:"env:TOKEN_CONTRACT_ADDRESS"`
			Artifacts      string `conf:"default:artifacts,env:ARTIFACTS_DIR"`
			SnapshotMargin uint64 `conf:"default:10,env:SNAPSHOT_MARGIN"`
		}
		Mint struct {
			Value string `conf:"default:90"`
		}
		History struct {
			Blocks uint64 `conf:"default:10"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "token weighted ballot tooling",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	help, err := conf.Parse("", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			fmt.Println(usage)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	cmd := cfg.Args.Num(0)
	if cmd == "" {
		fmt.Println(usage)
		return errors.New("missing command")
	}

	traceID := uuid.NewString()
	log.Infow("starting", "traceid", traceID, "version", build, "command", cmd)
	defer log.Infow("completed", "traceid", traceID)

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "traceid", traceID, "config", out)

	// =========================================================================
	// Validation

	// Reads only need a signer when a write is performed.
	_, signer := writeCommands[cmd]

	appCfg, err := config.New(config.Settings{
		Network:         cfg.Chain.Network,
		APIKey:          cfg.Chain.APIKey,
		NodeURL:         cfg.Chain.URL,
		ChainID:         cfg.Chain.ChainID,
		PrivateKey:      cfg.Signer.PrivateKey,
		KeyFile:         cfg.Signer.KeyFile,
		BallotAddress:   cfg.Contracts.Ballot,
		TokenAddress:    cfg.Contracts.Token,
		ArtifactsDir:    cfg.Contracts.Artifacts,
		PollInterval:    cfg.Chain.PollInterval,
		Timeout:         cfg.Chain.Timeout,
		SnapshotMargin:  cfg.Contracts.SnapshotMargin,
		RequireSigner:   signer,
		RequireEndpoint: true,
	})
	if err != nil {
		return err
	}

	// The names come from the file names in the name service folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// =========================================================================
	// Command

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	env := commands.Env{
		Log:      log,
		TraceID:  traceID,
		Config:   appCfg,
		Dial:     commands.DialEndpoint,
		Out:      os.Stdout,
		Progress: os.Stderr,
		Prompt:   prompt.New(os.Stdin, os.Stdout),
		Names:    ns,
	}

	return processCommands(ctx, cmd, []string(cfg.Args)[1:], cfg.Mint.Value, cfg.History.Blocks, env)
}

// writeCommands are the commands that sign transactions.
var writeCommands = map[string]struct{}{
	"deploy-token":  {},
	"mint":          {},
	"delegate":      {},
	"transfer":      {},
	"deploy-ballot": {},
	"vote":          {},
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(ctx context.Context, cmd string, args []string, mintValue string, historyBlocks uint64, env commands.Env) error {
	switch cmd {
	case "deploy-token":
		if err := commands.DeployToken(ctx, args, mintValue, env); err != nil {
			return fmt.Errorf("deploying token: %w", err)
		}
	case "mint":
		if err := commands.Mint(ctx, args, env); err != nil {
			return fmt.Errorf("minting: %w", err)
		}
	case "delegate":
		if err := commands.Delegate(ctx, args, env); err != nil {
			return fmt.Errorf("delegating: %w", err)
		}
	case "transfer":
		if err := commands.Transfer(ctx, args, env); err != nil {
			return fmt.Errorf("transferring: %w", err)
		}
	case "votes":
		if err := commands.Votes(ctx, args, env); err != nil {
			return fmt.Errorf("reading votes: %w", err)
		}
	case "history":
		if err := commands.History(ctx, args, historyBlocks, env); err != nil {
			return fmt.Errorf("reading vote history: %w", err)
		}
	case "deploy-ballot":
		if err := commands.DeployBallot(ctx, args, env); err != nil {
			return fmt.Errorf("deploying ballot: %w", err)
		}
	case "proposals":
		if err := commands.Proposals(ctx, args, env); err != nil {
			return fmt.Errorf("reading proposals: %w", err)
		}
	case "vote":
		if err := commands.Vote(ctx, args, env); err != nil {
			return fmt.Errorf("voting: %w", err)
		}
	case "winner":
		if err := commands.Winner(ctx, args, env); err != nil {
			return fmt.Errorf("reading winner: %w", err)
		}
	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	return nil
}

const usage = `Commands:
  deploy-token [recipient ...]       deploy the vote token, minting --mint-value to each recipient
  mint <to> <amount>                 mint tokens, the signer needs the minter role
  delegate [to]                      delegate the signer's voting power, to itself by default
  transfer <to> <amount>             transfer tokens from the signer
  votes [address] [block]            show current or past voting power
  history <address> [blocks]         show voting power over the last blocks
  deploy-ballot [proposal ...] [token]  deploy a ballot, snapshot --contracts-snapshot-margin blocks ahead
  proposals                          show the ballot proposals and their votes
  vote <proposal> <amount>           vote for a proposal
  winner [ballot]                    show the winning proposal`
