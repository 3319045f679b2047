package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is an identity able to authorize transactions. The key material
// only lives in memory and is never printed.
type Account struct {
	Address    common.Address
	privateKey *ecdsa.PrivateKey
}

// NewAccount derives an account from a hex encoded private key. The key
// may carry a 0x prefix.
func NewAccount(hexKey string) (Account, error) {
	hexKey = strings.TrimSpace(hexKey)
	if strings.HasPrefix(hexKey, "0x") || strings.HasPrefix(hexKey, "0X") {
		hexKey = hexKey[2:]
	}

	if len(hexKey) != 64 {
		return Account{}, &InvalidKeyError{Err: fmt.Errorf("want 64 hex characters, got %d", len(hexKey))}
	}

	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return Account{}, &InvalidKeyError{Err: errors.New("not a valid secp256k1 scalar")}
	}

	return newAccount(privateKey), nil
}

// LoadAccount derives an account from a private key file such as the
// ones written by the wallet generate command.
func LoadAccount(path string) (Account, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return Account{}, &InvalidKeyError{Err: fmt.Errorf("loading key file: %w", err)}
	}

	return newAccount(privateKey), nil
}

// newAccount constructs an account for the private key.
func newAccount(privateKey *ecdsa.PrivateKey) Account {
	return Account{
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		privateKey: privateKey,
	}
}

// String implements the Stringer interface and only shows the address.
func (a Account) String() string {
	return a.Address.Hex()
}

// GoString keeps %#v from printing the key material.
func (a Account) GoString() string {
	return fmt.Sprintf("chain.Account{Address:%s}", a.Address.Hex())
}

// IsZero reports whether the account was never initialized.
func (a Account) IsZero() bool {
	return a.privateKey == nil
}

// signTx signs the transaction for the specified chain.
func (a Account) signTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if a.privateKey == nil {
		return nil, errors.New("account has no key")
	}

	return types.SignTx(tx, types.LatestSignerForChainID(chainID), a.privateKey)
}
