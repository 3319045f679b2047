package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ReadField performs a side effect free call of the contract method at the
// latest block and returns the unpacked outputs.
func ReadField(ctx context.Context, client ContractCaller, contract common.Address, parsed *abi.ABI, method string, args ...any) ([]any, error) {
	return ReadFieldAt(ctx, client, nil, contract, parsed, method, args...)
}

// ReadFieldAt performs the read against the state of the specified block.
// A nil block means the latest block.
func ReadFieldAt(ctx context.Context, client ContractCaller, block *big.Int, contract common.Address, parsed *abi.ABI, method string, args ...any) ([]any, error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: packing arguments: %w", method, err)
	}

	msg := ethereum.CallMsg{
		To:   &contract,
		Data: input,
	}

	output, err := client.CallContract(ctx, msg, block)
	if err != nil {
		if reason, ok := revertReason(err); ok {
			return nil, &RevertedError{Op: method, Reason: reason, Err: err}
		}
		return nil, &ConnectionError{Msg: fmt.Sprintf("%s: %s", method, err), Err: err}
	}

	if len(output) == 0 {
		return nil, &ConnectionError{Msg: fmt.Sprintf("%s: empty response, no contract at %s?", method, contract.Hex()), Err: errors.New("empty response")}
	}

	values, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, &ConnectionError{Msg: fmt.Sprintf("%s: malformed response: %s", method, err), Err: err}
	}

	return values, nil
}
