package chain_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ardanlabs/ballot/foundation/chain/chaintest"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	poorKey  = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

const storeJSON = `[
	{"type":"constructor","inputs":[{"name":"initial","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"set","inputs":[{"name":"v","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"get","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"fail","inputs":[],"outputs":[],"stateMutability":"nonpayable"}
]`

var (
	storeABI      = mustABI(storeJSON)
	storeBytecode = []byte("store-bytecode")
)

func mustABI(s string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return &parsed
}

// =============================================================================

// store is a simulated contract holding a single number.
type store struct {
	value *big.Int
}

func newStore(env chaintest.Env, args []byte) (chaintest.Contract, error) {
	values, err := storeABI.Constructor.Inputs.Unpack(args)
	if err != nil {
		return nil, chaintest.Revert("store: bad constructor arguments")
	}
	return &store{value: values[0].(*big.Int)}, nil
}

func (s *store) Clone() chaintest.Contract {
	return &store{value: new(big.Int).Set(s.value)}
}

func (s *store) Execute(env chaintest.Env, input []byte) ([]byte, error) {
	method, err := storeABI.MethodById(input)
	if err != nil {
		return nil, chaintest.Revert("store: unknown method")
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, chaintest.Revert("store: bad arguments")
	}

	switch method.Name {
	case "set":
		s.value = args[0].(*big.Int)
		return nil, nil
	case "get":
		return method.Outputs.Pack(s.value)
	}

	return nil, chaintest.Revert("store: forced failure")
}

// =============================================================================

func newLedger(t *testing.T, baseFee *big.Int) (*chaintest.Ledger, chain.Account) {
	acct, err := chain.NewAccount(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the account: %s", err)
	}

	ledger := chaintest.New(chaintest.Genesis{
		BaseFee: baseFee,
		Balances: map[common.Address]*big.Int{
			acct.Address: big.NewInt(params.Ether),
		},
	})
	ledger.Register(storeBytecode, newStore)

	return ledger, acct
}

func deploySpec(t *testing.T, initial int64) chain.CallSpec {
	args, err := storeABI.Pack("", big.NewInt(initial))
	if err != nil {
		t.Fatalf("Should be able to pack constructor arguments: %s", err)
	}

	return chain.CallSpec{Name: "deploy-store", Bytecode: storeBytecode, Data: args}
}

func callSpec(t *testing.T, to common.Address, method string, args ...any) chain.CallSpec {
	data, err := storeABI.Pack(method, args...)
	if err != nil {
		t.Fatalf("Should be able to pack %s: %s", method, err)
	}

	return chain.CallSpec{Name: method, To: &to, Data: data}
}

var fastWait = chain.Waiter{PollInterval: 5 * time.Millisecond, Timeout: 200 * time.Millisecond}

// =============================================================================

func Test_PerformCall(t *testing.T) {
	type table struct {
		name    string
		baseFee *big.Int
	}

	tt := []table{
		{name: "dynamicfee", baseFee: big.NewInt(params.GWei)},
		{name: "legacy", baseFee: nil},
	}

	t.Log("Given the need to deploy and call a contract.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s chain.", testID, tst.name)
			{
				f := func(t *testing.T) {
					ctx := context.Background()
					ledger, acct := newLedger(t, tst.baseFee)

					var events []string
					wf := chain.Workflow{
						Client:    ledger,
						Account:   acct,
						Waiter:    fastWait,
						EvHandler: func(v string, args ...any) { events = append(events, v) },
					}

					rcpt, err := wf.PerformCall(ctx, deploySpec(t, 7))
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to deploy: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to deploy.", success, testID)

					if rcpt.Status != chain.StatusSuccess || !rcpt.HasContractAddress() {
						t.Fatalf("\t%s\tTest %d:\tShould get a successful receipt with an address: %+v", failed, testID, rcpt)
					}
					t.Logf("\t%s\tTest %d:\tShould get a successful receipt with an address.", success, testID)

					if rcpt.Cost().Sign() <= 0 {
						t.Fatalf("\t%s\tTest %d:\tShould have paid for gas.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould have paid for gas.", success, testID)

					if _, err := wf.PerformCall(ctx, callSpec(t, rcpt.ContractAddress, "set", big.NewInt(42))); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to call set: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to call set.", success, testID)

					values, err := chain.ReadField(ctx, ledger, rcpt.ContractAddress, storeABI, "get")
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to read the value: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to read the value.", success, testID)

					if got := values[0].(*big.Int); got.Int64() != 42 {
						t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, 42)
						t.Fatalf("\t%s\tTest %d:\tShould read back the stored value.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould read back the stored value.", success, testID)

					if len(events) != 6 {
						t.Fatalf("\t%s\tTest %d:\tShould get three events per call, got %d.", failed, testID, len(events))
					}
					t.Logf("\t%s\tTest %d:\tShould get three events per call.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_PerformCallFailures(t *testing.T) {
	t.Log("Given the need to classify failed calls.")
	{
		ctx := context.Background()
		ledger, acct := newLedger(t, big.NewInt(params.GWei))
		wf := chain.Workflow{Client: ledger, Account: acct, Waiter: fastWait}

		rcpt, err := wf.PerformCall(ctx, deploySpec(t, 1))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to deploy: %s", failed, err)
		}
		contract := rcpt.ContractAddress

		t.Logf("\tTest 0:\tWhen the node reports the call would revert.")
		{
			_, err := wf.PerformCall(ctx, callSpec(t, contract, "fail"))
			re := chain.GetReverted(err)
			if re == nil {
				t.Fatalf("\t%s\tTest 0:\tShould get a reverted error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get a reverted error.", success)

			if re.Reason != "store: forced failure" {
				t.Logf("\t%s\tTest 0:\tgot: %q", failed, re.Reason)
				t.Logf("\t%s\tTest 0:\texp: %q", failed, "store: forced failure")
				t.Fatalf("\t%s\tTest 0:\tShould get the revert reason.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the revert reason.", success)
		}

		t.Logf("\tTest 1:\tWhen a mined transaction fails.")
		{
			spec := callSpec(t, contract, "fail")
			spec.GasLimit = 100_000

			_, err := wf.PerformCall(ctx, spec)
			re := chain.GetReverted(err)
			if re == nil || re.Receipt == nil || re.TxHash == (common.Hash{}) {
				t.Fatalf("\t%s\tTest 1:\tShould get a reverted error with the receipt: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get a reverted error with the receipt.", success)

			if re.Reason != "store: forced failure" {
				t.Fatalf("\t%s\tTest 1:\tShould recover the revert reason, got %q.", failed, re.Reason)
			}
			t.Logf("\t%s\tTest 1:\tShould recover the revert reason.", success)

			if !strings.Contains(err.Error(), re.TxHash.Hex()) {
				t.Fatalf("\t%s\tTest 1:\tShould name the transaction in the message: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould name the transaction in the message.", success)
		}

		t.Logf("\tTest 2:\tWhen a deployment fails on chain.")
		{
			spec := chain.CallSpec{Name: "deploy-unknown", Bytecode: []byte("unknown-bytecode"), GasLimit: 200_000}

			_, err := wf.PerformCall(ctx, spec)
			if !chain.IsReverted(err) {
				t.Fatalf("\t%s\tTest 2:\tShould get a reverted error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a reverted error.", success)
		}

		t.Logf("\tTest 3:\tWhen the signer can't pay for gas.")
		{
			poor, err := chain.NewAccount(poorKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to load the account: %s", failed, err)
			}

			wf := chain.Workflow{Client: ledger, Account: poor, Waiter: fastWait}

			_, err = wf.PerformCall(ctx, callSpec(t, contract, "set", big.NewInt(1)))
			var se *chain.SubmissionError
			if !errors.As(err, &se) {
				t.Fatalf("\t%s\tTest 3:\tShould get a submission error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get a submission error.", success)
		}

		t.Logf("\tTest 4:\tWhen a deployment has no bytecode.")
		{
			_, err := wf.PerformCall(ctx, chain.CallSpec{Name: "deploy-empty"})
			var se *chain.SubmissionError
			if !errors.As(err, &se) {
				t.Fatalf("\t%s\tTest 4:\tShould get a submission error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 4:\tShould get a submission error.", success)
		}
	}
}

// addressless drops the contract address from every receipt.
type addressless struct {
	*chaintest.Ledger
}

func (a addressless) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	r, err := a.Ledger.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	r.ContractAddress = common.Address{}
	return r, nil
}

func Test_DeploymentIncomplete(t *testing.T) {
	t.Log("Given the need to reject deployments without a contract address.")
	{
		t.Logf("\tTest 0:\tWhen the receipt says success but has no address.")
		{
			ledger, acct := newLedger(t, big.NewInt(params.GWei))
			wf := chain.Workflow{Client: addressless{ledger}, Account: acct, Waiter: fastWait}

			rcpt, err := wf.PerformCall(context.Background(), deploySpec(t, 1))
			if !errors.Is(err, chain.ErrDeploymentIncomplete) {
				t.Fatalf("\t%s\tTest 0:\tShould get a deployment incomplete error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get a deployment incomplete error.", success)

			if !chain.IsReverted(err) {
				t.Fatalf("\t%s\tTest 0:\tShould be classified as reverted.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be classified as reverted.", success)

			if rcpt.Status == chain.StatusSuccess {
				t.Fatalf("\t%s\tTest 0:\tShould not return a successful receipt.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not return a successful receipt.", success)
		}
	}
}

// =============================================================================

// neverMined never produces a receipt.
type neverMined struct {
	mu    sync.Mutex
	calls int
}

func (n *neverMined) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls++
	if n.calls%2 == 0 {
		return nil, errors.New("upstream hiccup")
	}
	return nil, ethereum.NotFound
}

func Test_Wait(t *testing.T) {
	t.Log("Given the need to wait for a transaction receipt.")
	{
		t.Logf("\tTest 0:\tWhen the receipt never appears.")
		{
			client := neverMined{}
			w := chain.Waiter{PollInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond}

			start := time.Now()
			_, err := w.Wait(context.Background(), &client, "never", chain.PendingTransaction{Hash: common.HexToHash("0x01")})
			elapsed := time.Since(start)

			var te *chain.TimeoutError
			if !errors.As(err, &te) {
				t.Fatalf("\t%s\tTest 0:\tShould get a timeout error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get a timeout error.", success)

			if elapsed < 100*time.Millisecond || elapsed > 2*time.Second {
				t.Fatalf("\t%s\tTest 0:\tShould return once the ceiling elapses, took %s.", failed, elapsed)
			}
			t.Logf("\t%s\tTest 0:\tShould return once the ceiling elapses.", success)

			if client.calls < 2 || te.LastErr == nil {
				t.Fatalf("\t%s\tTest 0:\tShould re-check and keep the last transient error: calls[%d] err[%v]", failed, client.calls, te.LastErr)
			}
			t.Logf("\t%s\tTest 0:\tShould re-check and keep the last transient error.", success)

			if chain.IsReverted(err) {
				t.Fatalf("\t%s\tTest 0:\tShould not be classified as reverted.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not be classified as reverted.", success)
		}

		t.Logf("\tTest 1:\tWhen the block is produced late.")
		{
			ctx := context.Background()
			ledger, acct := newLedger(t, big.NewInt(params.GWei))
			ledger.SetAutoMine(false)

			ptx, err := chain.Submit(ctx, ledger, acct, deploySpec(t, 3))
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to submit: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to submit.", success)

			var polls int
			w := chain.Waiter{
				PollInterval: 5 * time.Millisecond,
				Timeout:      5 * time.Second,
				OnPoll:       func(attempt int, elapsed time.Duration) { polls = attempt },
			}

			go func() {
				time.Sleep(50 * time.Millisecond)
				ledger.Mine(1)
			}()

			rcpt, err := w.Wait(ctx, ledger, "deploy-store", ptx)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould get the receipt: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get the receipt.", success)

			if rcpt.TxHash != ptx.Hash || polls == 0 {
				t.Fatalf("\t%s\tTest 1:\tShould have polled for the right receipt: polls[%d]", failed, polls)
			}
			t.Logf("\t%s\tTest 1:\tShould have polled for the right receipt.", success)
		}

		t.Logf("\tTest 2:\tWhen the transaction stays pending.")
		{
			ctx := context.Background()
			ledger, acct := newLedger(t, big.NewInt(params.GWei))
			ledger.SetAutoMine(false)

			wf := chain.Workflow{Client: ledger, Account: acct, Waiter: chain.Waiter{PollInterval: 5 * time.Millisecond, Timeout: 50 * time.Millisecond}}

			_, err := wf.PerformCall(ctx, deploySpec(t, 3))
			if !chain.IsTimeout(err) {
				t.Fatalf("\t%s\tTest 2:\tShould get a timeout error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a timeout error.", success)
		}

		t.Logf("\tTest 3:\tWhen the caller cancels.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			w := chain.Waiter{PollInterval: 5 * time.Millisecond, Timeout: time.Second}
			_, err := w.Wait(ctx, &neverMined{}, "cancel", chain.PendingTransaction{})
			if !errors.Is(err, context.Canceled) || chain.IsTimeout(err) {
				t.Fatalf("\t%s\tTest 3:\tShould get the cancellation: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould get the cancellation.", success)
		}
	}
}
