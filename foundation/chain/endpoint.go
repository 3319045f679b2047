package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// network describes a hosted RPC provider entry.
type network struct {
	host    string
	chainID uint64
}

// networks are the hosted endpoints reachable with a provider api key.
var networks = map[string]network{
	"mainnet": {host: "eth-mainnet.g.alchemy.com", chainID: 1},
	"sepolia": {host: "eth-sepolia.g.alchemy.com", chainID: 11155111},
	"holesky": {host: "eth-holesky.g.alchemy.com", chainID: 17000},
}

// Endpoint describes how to reach a ledger node. It is constructed once at
// startup and never changed.
type Endpoint struct {
	Network string
	URL     string
	ChainID uint64
	secret  string
}

// NewEndpoint constructs the endpoint for a hosted network selected by the
// provider api key.
func NewEndpoint(networkName string, apiKey string) (Endpoint, error) {
	nw, exists := networks[networkName]
	if !exists {
		return Endpoint{}, fmt.Errorf("unknown network %q", networkName)
	}

	if apiKey == "" {
		return Endpoint{}, errors.New("missing provider api key")
	}

	ep := Endpoint{
		Network: networkName,
		URL:     fmt.Sprintf("https://%s/v2/%s", nw.host, apiKey),
		ChainID: nw.chainID,
		secret:  apiKey,
	}

	return ep, nil
}

// NewURLEndpoint constructs an endpoint for an explicit node url such as a
// local hardhat or anvil node. A zero chain id accepts any chain.
func NewURLEndpoint(rawURL string, chainID uint64) (Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Endpoint{}, fmt.Errorf("malformed node url %q", rawURL)
	}

	ep := Endpoint{
		Network: "custom",
		URL:     rawURL,
		ChainID: chainID,
	}

	return ep, nil
}

// String returns the network and host without any secret path or query.
func (ep Endpoint) String() string {
	u, err := url.Parse(ep.URL)
	if err != nil {
		return ep.Network
	}
	return fmt.Sprintf("%s(%s)", ep.Network, u.Host)
}

// redact removes the endpoint url path and secret from the text.
func (ep Endpoint) redact(s string) string {
	if ep.URL != "" {
		s = strings.ReplaceAll(s, ep.URL, ep.safeURL())
	}
	if ep.secret != "" {
		s = strings.ReplaceAll(s, ep.secret, "***")
	}
	return s
}

// safeURL returns the endpoint url with any path, query or user info
// replaced since those may carry credentials.
func (ep Endpoint) safeURL() string {
	u, err := url.Parse(ep.URL)
	if err != nil {
		return "***"
	}

	if u.User == nil && strings.Trim(u.Path, "/") == "" && u.RawQuery == "" {
		return ep.URL
	}

	return u.Scheme + "://" + u.Host + "/***"
}

// redactedError carries an RPC error whose text had the endpoint secrets
// removed. The original error stays reachable through Unwrap.
type redactedError struct {
	msg string
	err error
}

func (re *redactedError) Error() string {
	return re.msg
}

func (re *redactedError) Unwrap() error {
	return re.err
}

// hide returns the error with the endpoint secrets removed from its text.
func (ep Endpoint) hide(err error) error {
	if err == nil {
		return nil
	}

	msg := ep.redact(err.Error())
	if msg == err.Error() {
		return err
	}

	return &redactedError{msg: msg, err: err}
}

// =============================================================================

// Conn is a connection to a ledger node. Every error it returns has the
// endpoint secrets removed from its text.
type Conn struct {
	client   *ethclient.Client
	Endpoint Endpoint
}

// Connect dials the endpoint and checks the node answers for the expected
// chain. There is no retry at this level.
func Connect(ctx context.Context, ep Endpoint) (*Conn, error) {
	if ep.URL == "" {
		return nil, &ConnectionError{Endpoint: ep.String(), Msg: "missing node url"}
	}

	client, err := ethclient.DialContext(ctx, ep.URL)
	if err != nil {
		return nil, &ConnectionError{Endpoint: ep.String(), Msg: ep.redact(err.Error()), Err: err}
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, &ConnectionError{Endpoint: ep.String(), Msg: "chain id: " + ep.redact(err.Error()), Err: err}
	}

	if ep.ChainID != 0 && (!id.IsUint64() || id.Uint64() != ep.ChainID) {
		client.Close()
		return nil, &ConnectionError{Endpoint: ep.String(), Msg: fmt.Sprintf("chain id mismatch: want %d, got %s", ep.ChainID, id)}
	}

	return &Conn{client: client, Endpoint: ep}, nil
}

// Close releases the connection.
func (c *Conn) Close() {
	c.client.Close()
}

// ChainID returns the chain id reported by the node.
func (c *Conn) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.client.ChainID(ctx)
	return id, c.Endpoint.hide(err)
}

// BlockNumber returns the height of the chain head.
func (c *Conn) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.client.BlockNumber(ctx)
	return n, c.Endpoint.hide(err)
}

// BalanceAt returns the native balance of the account at the block.
func (c *Conn) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	bal, err := c.client.BalanceAt(ctx, account, blockNumber)
	return bal, c.Endpoint.hide(err)
}

// HeaderByNumber returns the block header, the head for a nil number.
func (c *Conn) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	h, err := c.client.HeaderByNumber(ctx, number)
	return h, c.Endpoint.hide(err)
}

// CallContract executes a side effect free call.
func (c *Conn) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	out, err := c.client.CallContract(ctx, msg, blockNumber)
	return out, c.Endpoint.hide(err)
}

// TransactionReceipt returns the receipt of a mined transaction.
func (c *Conn) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	r, err := c.client.TransactionReceipt(ctx, txHash)
	return r, c.Endpoint.hide(err)
}

// PendingNonceAt returns the next nonce for the account.
func (c *Conn) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	n, err := c.client.PendingNonceAt(ctx, account)
	return n, c.Endpoint.hide(err)
}

// SuggestGasPrice returns the legacy gas price.
func (c *Conn) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	p, err := c.client.SuggestGasPrice(ctx)
	return p, c.Endpoint.hide(err)
}

// SuggestGasTipCap returns the priority fee for dynamic fee transactions.
func (c *Conn) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	p, err := c.client.SuggestGasTipCap(ctx)
	return p, c.Endpoint.hide(err)
}

// EstimateGas dry runs the call and returns the gas it needs.
func (c *Conn) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := c.client.EstimateGas(ctx, msg)
	return gas, c.Endpoint.hide(err)
}

// SendTransaction broadcasts the signed transaction.
func (c *Conn) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.Endpoint.hide(c.client.SendTransaction(ctx, tx))
}
