// Package config constructs the configuration shared by every command. A
// Config is built and validated once at startup and then only read.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ardanlabs/ballot/foundation/validate"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultSnapshotMargin is the number of blocks between the current height
// and the voting power snapshot of a new ballot.
const DefaultSnapshotMargin = 10

// Settings are the raw values collected from the environment and the
// command line. Field names in errors are the environment names.
type Settings struct {
	Network         string        `json:"NETWORK" validate:"omitempty,oneof=mainnet sepolia holesky"`
	APIKey          string        `json:"ALCHEMY_API_KEY"`
	NodeURL         string        `json:"RPC_URL" validate:"omitempty,url"`
	ChainID         uint64        `json:"CHAIN_ID"`
	PrivateKey      string        `json:"PRIVATE_KEY" validate:"omitempty,hexkey"`
	KeyFile         string        `json:"KEY_FILE"`
	BallotAddress   string        `json:"BALLOT_CONTRACT_ADDRESS" validate:"omitempty,address"`
	TokenAddress    string        `json:"TOKEN_CONTRACT_ADDRESS" validate:"omitempty,address"`
	ArtifactsDir    string        `json:"ARTIFACTS_DIR" validate:"required"`
	PollInterval    time.Duration `json:"POLL_INTERVAL" validate:"gt=0"`
	Timeout         time.Duration `json:"TIMEOUT" validate:"gt=0"`
	SnapshotMargin  uint64        `json:"SNAPSHOT_MARGIN" validate:"gte=1"`
	RequireSigner   bool          `json:"-"`
	RequireEndpoint bool          `json:"-"`
}

// Config is the validated configuration.
type Config struct {
	Endpoint       chain.Endpoint
	BallotAddress  common.Address
	TokenAddress   common.Address
	ArtifactsDir   string
	Waiter         chain.Waiter
	SnapshotMargin uint64

	privateKey string
	keyFile    string
}

// New validates the settings and constructs the configuration. It never
// touches the network; every problem is reported as a validation error.
func New(s Settings) (Config, error) {
	var fields []validate.FieldError

	if err := validate.Check(s); err != nil {
		ve := validate.GetValidationError(err)
		if ve == nil {
			return Config{}, err
		}
		fields = append(fields, ve.Fields...)
	}

	if s.RequireEndpoint && s.NodeURL == "" && s.APIKey == "" {
		fields = append(fields, validate.FieldError{Field: "ALCHEMY_API_KEY", Err: "ALCHEMY_API_KEY or RPC_URL is required"})
	}

	if s.RequireSigner && s.PrivateKey == "" && s.KeyFile == "" {
		fields = append(fields, validate.FieldError{Field: "PRIVATE_KEY", Err: "PRIVATE_KEY or KEY_FILE is required"})
	}

	if len(fields) > 0 {
		return Config{}, &validate.ValidationError{Fields: fields}
	}

	cfg := Config{
		ArtifactsDir: s.ArtifactsDir,
		Waiter: chain.Waiter{
			PollInterval: s.PollInterval,
			Timeout:      s.Timeout,
		},
		SnapshotMargin: s.SnapshotMargin,
		privateKey:     s.PrivateKey,
		keyFile:        s.KeyFile,
	}

	if s.BallotAddress != "" {
		cfg.BallotAddress = common.HexToAddress(s.BallotAddress)
	}

	if s.TokenAddress != "" {
		cfg.TokenAddress = common.HexToAddress(s.TokenAddress)
	}

	var err error
	switch {
	case s.NodeURL != "":
		cfg.Endpoint, err = chain.NewURLEndpoint(s.NodeURL, s.ChainID)
	case s.APIKey != "":
		network := s.Network
		if network == "" {
			network = "sepolia"
		}
		cfg.Endpoint, err = chain.NewEndpoint(network, s.APIKey)
	}

	if err != nil {
		return Config{}, validate.Fail("RPC_URL", "%s", err)
	}

	return cfg, nil
}

// Account loads the signing account from the private key or key file.
func (cfg Config) Account() (chain.Account, error) {
	switch {
	case cfg.privateKey != "":
		return chain.NewAccount(cfg.privateKey)
	case cfg.keyFile != "":
		return chain.LoadAccount(cfg.keyFile)
	}

	return chain.Account{}, validate.Fail("PRIVATE_KEY", "PRIVATE_KEY or KEY_FILE is required")
}

// Ballot returns the configured ballot address or a validation error
// when none is set.
func (cfg Config) Ballot() (common.Address, error) {
	if cfg.BallotAddress == (common.Address{}) {
		return common.Address{}, validate.Fail("BALLOT_CONTRACT_ADDRESS", "a ballot address is required")
	}

	return cfg.BallotAddress, nil
}

// Token returns the configured token address or a validation error when
// none is set.
func (cfg Config) Token() (common.Address, error) {
	if cfg.TokenAddress == (common.Address{}) {
		return common.Address{}, validate.Fail("TOKEN_CONTRACT_ADDRESS", "a token address is required")
	}

	return cfg.TokenAddress, nil
}

// =============================================================================

// ErrMargin is returned when a snapshot margin would not place the
// snapshot in the future.
var ErrMargin = errors.New("snapshot margin must be at least one block")

// TargetBlock returns the snapshot block for a ballot deployed at the
// current height. The result is always greater than current.
func TargetBlock(current uint64, margin uint64) (uint64, error) {
	if margin == 0 {
		return 0, ErrMargin
	}

	if current > math.MaxUint64-margin {
		return 0, fmt.Errorf("snapshot margin %d overflows height %d", margin, current)
	}

	return current + margin, nil
}
