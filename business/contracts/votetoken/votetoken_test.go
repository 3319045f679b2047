package votetoken_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ardanlabs/ballot/business/contracts/contractstest"
	"github.com/ardanlabs/ballot/business/contracts/votetoken"
	"github.com/ardanlabs/ballot/foundation/chain"
	"github.com/ardanlabs/ballot/foundation/chain/chaintest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var mintValue = big.NewInt(100)

type fixture struct {
	ledger   *chaintest.Ledger
	deployer chain.Account
	acc1     chain.Account
	acc2     chain.Account
	token    *votetoken.Token
}

// workflow returns a workflow signing with the account.
func (f fixture) workflow(acct chain.Account) chain.Workflow {
	return chain.Workflow{
		Client:  f.ledger,
		Account: acct,
		Waiter:  chain.Waiter{PollInterval: 5 * time.Millisecond, Timeout: time.Second},
	}
}

// as returns the deployed token bound to the account's signer.
func (f fixture) as(acct chain.Account) *votetoken.Token {
	return votetoken.Bind(f.token.Address, f.workflow(acct))
}

func deploy(t *testing.T) fixture {
	var accts []chain.Account
	for _, key := range contractstest.DevKeys {
		acct, err := chain.NewAccount(key)
		if err != nil {
			t.Fatalf("Should be able to load the development account: %s", err)
		}
		accts = append(accts, acct)
	}

	f := fixture{
		ledger:   contractstest.NewLedger(accts[0].Address, accts[1].Address, accts[2].Address),
		deployer: accts[0],
		acc1:     accts[1],
		acc2:     accts[2],
	}

	token, _, err := votetoken.Deploy(context.Background(), f.workflow(f.deployer), contractstest.TokenBytecode)
	if err != nil {
		t.Fatalf("Should be able to deploy the token: %s", err)
	}
	f.token = token

	return f
}

// result carries the outcome of a numeric read.
type result struct {
	v   *big.Int
	err error
}

func read(v *big.Int, err error) result {
	return result{v: v, err: err}
}

func checkInt(t *testing.T, testID int, what string, r result, exp int64) {
	if r.err != nil {
		t.Fatalf("\t%s\tTest %d:\tShould be able to read %s: %s", failed, testID, what, r.err)
	}

	got := r.v
	if got.Cmp(big.NewInt(exp)) != 0 {
		t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got)
		t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, exp)
		t.Fatalf("\t%s\tTest %d:\tShould have %s of %d.", failed, testID, what, exp)
	}
	t.Logf("\t%s\tTest %d:\tShould have %s of %d.", success, testID, what, exp)
}

// =============================================================================

func Test_Deploy(t *testing.T) {
	t.Log("Given the need to deploy a vote token.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen deploying from the deployer account.", testID)
		{
			ctx := context.Background()
			f := deploy(t)

			inf, err := f.token.Info(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the token info: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to read the token info.", success, testID)

			if inf.Name != "MyToken" || inf.Symbol != "MTK" || inf.Decimals != votetoken.Decimals {
				t.Fatalf("\t%s\tTest %d:\tShould describe itself as MyToken/MTK/18: %+v", failed, testID, inf)
			}
			t.Logf("\t%s\tTest %d:\tShould describe itself as MyToken/MTK/18.", success, testID)

			checkInt(t, testID, "a total supply", read(f.token.TotalSupply(ctx)), 0)

			role, err := f.token.MinterRole(ctx)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the minter role: %s", failed, testID, err)
			}

			has, err := f.token.HasRole(ctx, role, f.deployer.Address)
			if err != nil || !has {
				t.Fatalf("\t%s\tTest %d:\tShould grant the deployer the minter role: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould grant the deployer the minter role.", success, testID)
		}
	}
}

func Test_Mint(t *testing.T) {
	t.Log("Given the need to mint tokens.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the deployer mints to an account.", testID)
		{
			ctx := context.Background()
			f := deploy(t)

			if _, err := f.token.Mint(ctx, f.acc1.Address, mintValue); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mint: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to mint.", success, testID)

			checkInt(t, testID, "a balance", read(f.token.BalanceOf(ctx, f.acc1.Address)), 100)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen an account without the minter role mints.", testID)
		{
			ctx := context.Background()
			f := deploy(t)

			_, err := f.as(f.acc1).Mint(ctx, f.acc1.Address, mintValue)
			if !chain.IsReverted(err) {
				t.Fatalf("\t%s\tTest %d:\tShould get a reverted error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a reverted error.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen the token is bound read only.", testID)
		{
			ctx := context.Background()
			f := deploy(t)

			token := votetoken.New(f.token.Address, f.ledger)
			if _, err := token.Mint(ctx, f.acc1.Address, mintValue); !errors.Is(err, votetoken.ErrReadOnly) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse to write: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse to write.", success, testID)
		}
	}
}

func Test_Delegation(t *testing.T) {
	t.Log("Given the need to turn a balance into voting power.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen an account self delegates.", testID)
		{
			ctx := context.Background()
			f := deploy(t)

			checkInt(t, testID, "votes before minting", read(f.token.GetVotes(ctx, f.acc1.Address)), 0)

			if _, err := f.token.Mint(ctx, f.acc1.Address, mintValue); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mint: %s", failed, testID, err)
			}

			checkInt(t, testID, "votes before delegating", read(f.token.GetVotes(ctx, f.acc1.Address)), 0)

			rcpt, err := f.as(f.acc1).Delegate(ctx, f.acc1.Address)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to delegate: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to delegate.", success, testID)

			checkInt(t, testID, "votes after delegating", read(f.token.GetVotes(ctx, f.acc1.Address)), 100)

			delegatee, err := f.token.Delegates(ctx, f.acc1.Address)
			if err != nil || delegatee != f.acc1.Address {
				t.Fatalf("\t%s\tTest %d:\tShould be its own delegate: %s %v", failed, testID, delegatee, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be its own delegate.", success, testID)

			checkInt(t, testID, "past votes before the delegation block", read(f.token.GetPastVotes(ctx, f.acc1.Address, rcpt.BlockNumber-1)), 0)

			checkInt(t, testID, "past votes at the delegation block", read(f.token.GetPastVotes(ctx, f.acc1.Address, rcpt.BlockNumber)), 100)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen reading votes of a future block.", testID)
		{
			ctx := context.Background()
			f := deploy(t)

			_, err := f.token.GetPastVotes(ctx, f.acc1.Address, f.ledger.Height()+10)
			if !chain.IsReverted(err) {
				t.Fatalf("\t%s\tTest %d:\tShould get a reverted error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a reverted error.", success, testID)
		}
	}
}

func Test_Transfer(t *testing.T) {
	t.Log("Given the need to transfer delegated tokens.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a delegated account transfers half its tokens.", testID)
		{
			ctx := context.Background()
			f := deploy(t)

			if _, err := f.token.Mint(ctx, f.acc1.Address, mintValue); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mint: %s", failed, testID, err)
			}

			acc1 := f.as(f.acc1)
			if _, err := acc1.Delegate(ctx, f.acc1.Address); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to delegate: %s", failed, testID, err)
			}

			if _, err := acc1.Transfer(ctx, f.acc2.Address, big.NewInt(50)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to transfer: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to transfer.", success, testID)

			checkInt(t, testID, "sender votes", read(f.token.GetVotes(ctx, f.acc1.Address)), 50)

			checkInt(t, testID, "receiver votes", read(f.token.GetVotes(ctx, f.acc2.Address)), 0)

			checkInt(t, testID, "a receiver balance", read(f.token.BalanceOf(ctx, f.acc2.Address)), 50)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen transferring more than the balance.", testID)
		{
			ctx := context.Background()
			f := deploy(t)

			_, err := f.as(f.acc1).Transfer(ctx, f.acc2.Address, big.NewInt(1))
			re := chain.GetReverted(err)
			if re == nil {
				t.Fatalf("\t%s\tTest %d:\tShould get a reverted error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a reverted error.", success, testID)

			if re.Reason == "" {
				t.Fatalf("\t%s\tTest %d:\tShould carry the revert reason.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould carry the revert reason: %s", success, testID, re.Reason)
		}
	}
}
