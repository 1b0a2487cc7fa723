package interfaces

import (
	"context"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
)

// Payout moves value out of the pool to a recipient. On error nothing moved.
type Payout interface {
	Send(ctx context.Context, to models.Identity, amount uint64) error
}
