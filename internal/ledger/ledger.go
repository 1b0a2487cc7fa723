package ledger

import (
	"fmt"
	"math/bits"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
)

// Vault is the environment-held pooled fund the ledger withdraws from.
// Transfer must either move exactly amount to the recipient and lower
// Balance by amount, or return an error and leave both untouched.
type Vault interface {
	Balance() uint64
	Transfer(to models.Identity, amount uint64) error
}

// PrizePool is the custodial ledger: one administrator fixed at creation and
// a credited amount per depositor. It performs no locking; the host serializes calls.
type PrizePool struct {
	admin   models.Identity
	credits map[models.Identity]uint64
}

// New binds creator as the administrator of a fresh pool.
func New(creator models.Identity) *PrizePool {
	return &PrizePool{
		admin:   creator,
		credits: make(map[models.Identity]uint64),
	}
}

// Restore rebuilds an active pool from persisted state.
func Restore(state models.State) *PrizePool {
	p := New(state.Administrator)
	for id, amount := range state.Credits {
		p.credits[id] = amount
	}
	return p
}

// Clone returns an independent copy, used by the host to stage a call.
func (p *PrizePool) Clone() *PrizePool {
	return Restore(models.State{Administrator: p.admin, Credits: p.credits})
}

// Administrator returns the identity allowed to withdraw.
func (p *PrizePool) Administrator() models.Identity {
	return p.admin
}

// CreditOf returns the caller's credited amount; unknown callers have zero.
func (p *PrizePool) CreditOf(id models.Identity) uint64 {
	return p.credits[id]
}

// Credits returns a copy of the depositor map.
func (p *PrizePool) Credits() map[models.Identity]uint64 {
	out := make(map[models.Identity]uint64, len(p.credits))
	for id, amount := range p.credits {
		out[id] = amount
	}
	return out
}

// Deposit credits value to caller and returns the new credited amount.
// A zero value still registers the caller.
func (p *PrizePool) Deposit(caller models.Identity, value uint64) (uint64, error) {
	credit, err := Add(p.credits[caller], value)
	if err != nil {
		return 0, err
	}
	p.credits[caller] = credit
	return credit, nil
}

// Withdraw moves amount from the vault to the administrator. Credits are
// never touched: the administrator drains the pool, not a depositor's share.
func (p *PrizePool) Withdraw(caller models.Identity, amount uint64, vault Vault) error {
	if caller != p.admin {
		return ErrUnauthorized
	}
	if amount > vault.Balance() {
		return ErrInsufficientFunds
	}
	if err := vault.Transfer(p.admin, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// Add returns a+b or ErrOverflow when the sum does not fit in uint64.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}
