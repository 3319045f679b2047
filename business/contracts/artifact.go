package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract as written by the development framework.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

// artifactFile is the subset of the artifact json that is used.
type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// ArtifactPath returns the location of the named contract's artifact under
// the artifacts folder, following the contracts/<Name>.sol/<Name>.json
// layout.
func ArtifactPath(root string, name string) string {
	return filepath.Join(root, "contracts", name+".sol", name+".json")
}

// LoadArtifact reads and parses a compiled artifact.
func LoadArtifact(path string) (Artifact, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("reading artifact: %w", err)
	}

	var af artifactFile
	if err := json.Unmarshal(content, &af); err != nil {
		return Artifact{}, fmt.Errorf("decoding artifact %s: %w", path, err)
	}

	if len(af.ABI) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s has no abi", path)
	}

	parsed, err := abi.JSON(bytes.NewReader(af.ABI))
	if err != nil {
		return Artifact{}, fmt.Errorf("parsing artifact abi %s: %w", path, err)
	}

	code, err := hexutil.Decode(af.Bytecode)
	if err != nil {
		return Artifact{}, fmt.Errorf("decoding artifact bytecode %s: %w", path, err)
	}

	if len(code) == 0 {
		return Artifact{}, errors.New("artifact has no bytecode, is it an interface or abstract contract?")
	}

	a := Artifact{
		ContractName: af.ContractName,
		ABI:          parsed,
		Bytecode:     code,
	}

	return a, nil
}
