package contractstest

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ardanlabs/ballot/business/contracts"
	"github.com/ardanlabs/ballot/foundation/chain/chaintest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
)

// Deployment bytecode the ledger maps to the simulated contracts.
var (
	TokenBytecode  = []byte("simulated:" + contracts.VoteTokenName)
	BallotBytecode = []byte("simulated:" + contracts.BallotName)
)

// Register teaches the ledger to deploy the simulated contracts.
func Register(l *chaintest.Ledger) {
	l.Register(TokenBytecode, NewToken)
	l.Register(BallotBytecode, NewBallot)
}

// WriteArtifacts writes compiled artifacts for both contracts under the
// root folder, carrying the simulated bytecode.
func WriteArtifacts(root string) error {
	abis := map[string][]byte{
		contracts.VoteTokenName: []byte(contracts.VoteTokenJSON),
		contracts.BallotName:    []byte(contracts.BallotJSON),
	}

	code := map[string][]byte{
		contracts.VoteTokenName: TokenBytecode,
		contracts.BallotName:    BallotBytecode,
	}

	for name, abiJSON := range abis {
		doc := struct {
			ContractName string          `json:"contractName"`
			ABI          json.RawMessage `json:"abi"`
			Bytecode     string          `json:"bytecode"`
		}{
			ContractName: name,
			ABI:          abiJSON,
			Bytecode:     hexutil.Encode(code[name]),
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s artifact: %w", name, err)
		}

		path := contracts.ArtifactPath(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating %s artifact folder: %w", name, err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s artifact: %w", name, err)
		}
	}

	return nil
}

// DevKeys are the well known private keys of a development node's first
// accounts. They hold no value on any public network.
var DevKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
}

// NewLedger constructs a post london ledger that knows the simulated
// contracts and funds every account with 100 ether.
func NewLedger(accounts ...common.Address) *chaintest.Ledger {
	balances := make(map[common.Address]*big.Int, len(accounts))
	for _, addr := range accounts {
		balances[addr] = new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))
	}

	ledger := chaintest.New(chaintest.Genesis{
		BaseFee:  big.NewInt(params.GWei),
		Balances: balances,
	})
	Register(ledger)

	return ledger
}
