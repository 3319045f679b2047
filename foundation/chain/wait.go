package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
)

// Default settings for waiting on a receipt.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultTimeout      = 2 * time.Minute
)

// Waiter polls for a transaction receipt under a bounded wait. Block
// production on a test network is irregular so the receipt is re-checked
// instead of assuming a fixed number of blocks.
type Waiter struct {
	PollInterval time.Duration
	Timeout      time.Duration

	// OnPoll is called after every check that found no receipt.
	OnPoll func(attempt int, elapsed time.Duration)
}

// Wait blocks until the receipt for the transaction exists, the timeout
// elapses, or the context is cancelled. A receipt with a failed status is
// returned as a RevertedError, no receipt in time as a TimeoutError.
func (w Waiter) Wait(ctx context.Context, client ReceiptReader, op string, ptx PendingTransaction) (Receipt, error) {
	interval := w.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	var lastErr error

	for attempt := 1; ; attempt++ {
		r, err := client.TransactionReceipt(ctx, ptx.Hash)
		switch {
		case err == nil && r != nil:
			rcpt := newReceipt(r)
			if rcpt.Status != StatusSuccess {
				return Receipt{}, &RevertedError{Op: op, TxHash: ptx.Hash, Receipt: &rcpt}
			}
			return rcpt, nil

		case err == nil, errors.Is(err, ethereum.NotFound):

		case ctx.Err() == nil:
			lastErr = err
		}

		if w.OnPoll != nil {
			w.OnPoll(attempt, time.Since(start))
		}

		select {
		case <-ticker.C:

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Receipt{}, &TimeoutError{Op: op, TxHash: ptx.Hash, Waited: time.Since(start).Round(time.Millisecond), LastErr: lastErr}
			}
			return Receipt{}, fmt.Errorf("%s: tx[%s]: waiting for receipt: %w", op, ptx.Hash.Hex(), ctx.Err())
		}
	}
}
