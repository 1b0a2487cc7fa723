// Package payout holds the value-transfer mechanisms the host uses to pay
// withdrawn funds out of the pool.
package payout

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"

	interfaces "github.com/sheikh-saqib/prize-pool-ledger/internal/interfaces"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
)

var ErrRecipientRejected = errors.New("recipient rejected transfer")

// Wallets is an in-memory book of external wallets that receive payouts.
type Wallets struct {
	mu       sync.Mutex
	balances map[models.Identity]uint64
	rejects  map[models.Identity]bool
}

func NewWallets() *Wallets {
	return &Wallets{
		balances: make(map[models.Identity]uint64),
		rejects:  make(map[models.Identity]bool),
	}
}

// Reject makes every later transfer to id fail.
func (w *Wallets) Reject(id models.Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejects[id] = true
}

// Accept undoes Reject.
func (w *Wallets) Accept(id models.Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.rejects, id)
}

func (w *Wallets) Send(ctx context.Context, to models.Identity, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.rejects[to] {
		return fmt.Errorf("%w: %s", ErrRecipientRejected, to)
	}
	sum, carry := bits.Add64(w.balances[to], amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: wallet %s would overflow", ErrRecipientRejected, to)
	}
	w.balances[to] = sum
	return nil
}

// BalanceOf returns what id has received so far.
func (w *Wallets) BalanceOf(id models.Identity) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[id]
}

// Func adapts a plain function to the Payout interface.
type Func func(ctx context.Context, to models.Identity, amount uint64) error

func (f Func) Send(ctx context.Context, to models.Identity, amount uint64) error {
	return f(ctx, to, amount)
}

var (
	_ interfaces.Payout = (*Wallets)(nil)
	_ interfaces.Payout = Func(nil)
)
