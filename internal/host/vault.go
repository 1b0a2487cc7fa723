package host

import (
	"context"
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/prize-pool-ledger/internal/interfaces"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/ledger"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
)

// stagedVault exposes the pooled fund to a single withdrawal. The post-payout
// state is stored before any value moves, and reverted if the payout fails,
// so the persisted fund never claims more than what is really held.
type stagedVault struct {
	ctx     context.Context
	balance uint64
	payout  interfaces.Payout

	record func(pooled uint64) error // stores the receipt carrying the post-payout fund
	revert func() error              // undoes record
}

func (v *stagedVault) Balance() uint64 {
	return v.balance
}

func (v *stagedVault) Transfer(to models.Identity, amount uint64) error {
	if amount > v.balance {
		return ledger.ErrInsufficientFunds
	}
	after := v.balance - amount

	if err := v.record(after); err != nil {
		return fmt.Errorf("record withdrawal: %w", err)
	}
	if err := v.payout.Send(v.ctx, to, amount); err != nil {
		if rerr := v.revert(); rerr != nil {
			return errors.Join(err, fmt.Errorf("revert withdrawal record: %w", rerr))
		}
		return err
	}
	v.balance = after
	return nil
}

var _ ledger.Vault = (*stagedVault)(nil)
