package interfaces

import (
	"context"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
)

// LedgerStore persists a single prize pool deployment
type LedgerStore interface {
	// LoadState returns the zero State (Deployed() == false) when nothing was saved yet.
	LoadState(ctx context.Context) (models.State, error)
	SaveAdministrator(ctx context.Context, admin models.Identity) error
	// SaveReceipt applies the post-call state carried by the receipt and appends
	// the receipt itself, atomically.
	SaveReceipt(ctx context.Context, receipt models.Receipt) error
	// RevertReceipt removes the receipt with the given id and sets the pooled
	// fund back to pooled. It undoes a withdrawal whose payout failed.
	RevertReceipt(ctx context.Context, id string, pooled uint64) error
	GetReceipts(ctx context.Context) ([]models.Receipt, error)
}
