package chain

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrDeploymentIncomplete is wrapped by a RevertedError when a deployment
// receipt reports success but carries no contract address.
var ErrDeploymentIncomplete = errors.New("deployment receipt has no contract address")

// ConnectionError represents an unreachable endpoint or a malformed response
// from it. It is never retried.
type ConnectionError struct {
	Endpoint string
	Msg      string
	Err      error
}

// Error implements the error interface. The message is built when the error
// is constructed so secrets embedded in the endpoint url never reach it.
func (ce *ConnectionError) Error() string {
	if ce.Endpoint == "" {
		return fmt.Sprintf("connection: %s", ce.Msg)
	}
	return fmt.Sprintf("connection %s: %s", ce.Endpoint, ce.Msg)
}

// Unwrap provides access to the underlying error.
func (ce *ConnectionError) Unwrap() error {
	return ce.Err
}

// InvalidKeyError represents signer key material that is not a well formed
// secp256k1 private key. The key itself is never part of the message.
type InvalidKeyError struct {
	Err error
}

// Error implements the error interface.
func (ke *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid private key: %s", ke.Err)
}

// Unwrap provides access to the underlying error.
func (ke *InvalidKeyError) Unwrap() error {
	return ke.Err
}

// SubmissionError represents a transaction that could not be built or was
// rejected by the node when broadcast.
type SubmissionError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (se *SubmissionError) Error() string {
	return fmt.Sprintf("%s: submitting transaction: %s", se.Op, se.Err)
}

// Unwrap provides access to the underlying error.
func (se *SubmissionError) Unwrap() error {
	return se.Err
}

// TimeoutError represents a broadcast transaction that had no receipt when
// the wait ceiling elapsed. The transaction may still be mined later.
type TimeoutError struct {
	Op      string
	TxHash  common.Hash
	Waited  time.Duration
	LastErr error
}

// Error implements the error interface.
func (te *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s: tx[%s]: no receipt after %s", te.Op, te.TxHash.Hex(), te.Waited)
	if te.LastErr != nil {
		msg += fmt.Sprintf(": last error: %s", te.LastErr)
	}
	return msg
}

// Unwrap provides access to the last transient error seen while polling.
func (te *TimeoutError) Unwrap() error {
	return te.LastErr
}

// RevertedError represents a call the chain refused to apply. This covers
// a mined receipt with a failed status, a deployment receipt missing its
// contract address, and a call the node reported would revert.
type RevertedError struct {
	Op      string
	TxHash  common.Hash
	Reason  string
	Receipt *Receipt
	Err     error
}

// Error implements the error interface.
func (re *RevertedError) Error() string {
	msg := re.Op + ": "
	if re.TxHash != (common.Hash{}) {
		msg += fmt.Sprintf("tx[%s]: ", re.TxHash.Hex())
	}

	switch {
	case re.Err != nil && errors.Is(re.Err, ErrDeploymentIncomplete):
		msg += re.Err.Error()
	case re.Reason != "":
		msg += "reverted: " + re.Reason
	default:
		msg += "reverted"
	}

	return msg
}

// Unwrap provides access to the underlying error.
func (re *RevertedError) Unwrap() error {
	return re.Err
}

// =============================================================================

// IsTimeout checks if an error of type TimeoutError exists.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsReverted checks if an error of type RevertedError exists.
func IsReverted(err error) bool {
	var re *RevertedError
	return errors.As(err, &re)
}

// GetReverted returns a copy of the RevertedError pointer.
func GetReverted(err error) *RevertedError {
	var re *RevertedError
	if !errors.As(err, &re) {
		return nil
	}
	return re
}
