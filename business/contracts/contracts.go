// Package contracts provides the interface descriptions of the vote token
// and the tokenized ballot, and loads compiled artifacts for deployment.
package contracts

import (
	_ "embed"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Names of the supported contracts as they appear in the artifacts.
const (
	VoteTokenName = "MyToken"
	BallotName    = "TokenizedBallot"
)

// Interface descriptions of the contracts in their json form.
var (
	//go:embed abi/MyToken.json
	VoteTokenJSON string

	//go:embed abi/TokenizedBallot.json
	BallotJSON string
)

// Parsed interface descriptions used for packing calls and unpacking
// results. Deployment bytecode is not embedded; see LoadArtifact.
var (
	VoteTokenABI = mustParse(VoteTokenJSON)
	BallotABI    = mustParse(BallotJSON)
)

// mustParse parses an embedded interface description.
func mustParse(s string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("contracts: parsing embedded abi: " + err.Error())
	}
	return &parsed
}
