package chaintest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract is a contract simulated in Go. Execute must leave the value
// unchanged when it returns an error; the ledger runs every call on a
// clone and only keeps the clone when the call succeeds.
type Contract interface {
	Execute(env Env, input []byte) ([]byte, error)
	Clone() Contract
}

// Factory constructs a contract from the encoded constructor arguments.
type Factory func(env Env, args []byte) (Contract, error)

// Env carries the execution context of a call.
type Env struct {
	Caller      common.Address
	Self        common.Address
	Value       *big.Int
	BlockNumber uint64

	staticCall func(to common.Address, input []byte) ([]byte, error)
}

// StaticCall performs a read only call into another contract.
func (env Env) StaticCall(to common.Address, input []byte) ([]byte, error) {
	if env.staticCall == nil {
		return nil, Revert("static call unavailable")
	}
	return env.staticCall(to, input)
}

// =============================================================================

// errorSelector is the selector of the Error(string) revert payload.
var errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

// RevertError is returned by a contract to revert with a reason. It carries
// the same revert payload a node attaches to its json-rpc error.
type RevertError struct {
	Reason string
}

// Revert constructs a revert error with a formatted reason.
func Revert(format string, args ...any) error {
	return &RevertError{Reason: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (re *RevertError) Error() string {
	return "execution reverted: " + re.Reason
}

// ErrorCode matches the json-rpc error code nodes use for reverts.
func (re *RevertError) ErrorCode() int {
	return 3
}

// ErrorData returns the hex encoded Error(string) payload.
func (re *RevertError) ErrorData() any {
	stringType, _ := abi.NewType("string", "", nil)

	packed, err := abi.Arguments{{Type: stringType}}.Pack(re.Reason)
	if err != nil {
		return nil
	}

	data := append(append([]byte{}, errorSelector...), packed...)
	return hexutil.Encode(data)
}
