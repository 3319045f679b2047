package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const revertedPrefix = "execution reverted"

// revertReason reports whether the node error describes an EVM revert and
// returns the decoded reason when one is available.
func revertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil && len(data) > 0 {
				return decodeRevert(data), true
			}
		}
	}

	msg := err.Error()
	idx := strings.Index(msg, revertedPrefix)
	if idx < 0 {
		return "", false
	}

	reason := strings.TrimPrefix(msg[idx+len(revertedPrefix):], ":")
	return strings.TrimSpace(reason), true
}

// decodeRevert decodes Error(string) revert data and falls back to the
// selector of a custom error.
func decodeRevert(data []byte) string {
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}

	if len(data) >= 4 {
		return fmt.Sprintf("custom error %s", hexutil.Encode(data[:4]))
	}

	return hexutil.Encode(data)
}
