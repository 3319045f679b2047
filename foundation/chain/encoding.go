package chain

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// EncodeBytes32 stores the text in a fixed width, zero padded buffer.
func EncodeBytes32(s string) ([32]byte, error) {
	var b [32]byte

	if len(s) > len(b) {
		return b, fmt.Errorf("text %q is %d bytes, max is %d", s, len(s), len(b))
	}

	if strings.IndexByte(s, 0) >= 0 {
		return b, errors.New("text contains a zero byte")
	}

	copy(b[:], s)
	return b, nil
}

// DecodeBytes32 trims a fixed width buffer to its text content, stopping
// at the first zero byte.
func DecodeBytes32(b [32]byte) string {
	if i := bytes.IndexByte(b[:], 0); i >= 0 {
		return string(b[:i])
	}
	return string(b[:])
}

// =============================================================================

// ParseUnits converts a decimal amount such as "1.5" into base units for
// a token with the specified number of decimals.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))

	v, ok := new(big.Int).SetString(digits, 10)
	if !ok || v.Sign() < 0 || strings.ContainsAny(digits, "+-") {
		return nil, fmt.Errorf("amount %q is not a positive decimal number", s)
	}

	return v, nil
}

// FormatUnits converts base units into a decimal amount.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}

	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")

	s := whole
	if frac != "" {
		s += "." + frac
	}
	if neg {
		s = "-" + s
	}

	return s
}
