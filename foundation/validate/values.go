package validate

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	addressLength  = 20
	keyLength      = 32
	proposalLength = 32
)

// Address validates the text is an address and returns it.
func Address(field string, s string) (common.Address, error) {
	if !IsAddress(s) {
		return common.Address{}, Fail(field, "%q is not a 0x prefixed, 40 character hex address", s)
	}

	return common.HexToAddress(s), nil
}

// Proposal validates the text can be stored as a proposal name.
func Proposal(field string, s string) (string, error) {
	if !IsProposal(s) {
		return "", Fail(field, "%q must be non-empty text of at most %d bytes", s, proposalLength)
	}

	return s, nil
}

// IsAddress verifies the text is exactly a 0x prefix followed by 40
// hexadecimal characters.
func IsAddress(s string) bool {
	if !has0xPrefix(s) {
		return false
	}

	s = s[2:]
	return len(s) == 2*addressLength && isHex(s)
}

// IsProposal verifies the text is non-empty and fits in a bytes32 slot.
func IsProposal(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	return len(s) <= proposalLength && !strings.ContainsRune(s, 0)
}

// IsHexKey verifies the text is a hex encoded 32 byte key with an optional
// 0x prefix. It doesn't check the key is a valid curve scalar.
func IsHexKey(s string) bool {
	if has0xPrefix(s) {
		s = s[2:]
	}

	return len(s) == 2*keyLength && isHex(s)
}

// =============================================================================

// has0xPrefix validates the text starts with a lowercase 0x.
func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && s[1] == 'x'
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}

	for _, c := range []byte(s) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
