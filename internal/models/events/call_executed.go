package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/units"
)

// CallExecuted is published for every successful deposit or withdrawal
type CallExecuted struct {
	ReceiptID  string          `json:"receipt_id"`
	Kind       string          `json:"kind"`
	Caller     string          `json:"caller"`
	Amount     decimal.Decimal `json:"amount"`
	Pooled     decimal.Decimal `json:"pooled"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewCallExecuted renders a receipt with amounts scaled by decimals.
func NewCallExecuted(r models.Receipt, decimals int32) CallExecuted {
	return CallExecuted{
		ReceiptID:  r.ID,
		Kind:       string(r.Kind),
		Caller:     r.Caller.String(),
		Amount:     units.ToDecimal(r.Amount, decimals),
		Pooled:     units.ToDecimal(r.Pooled, decimals),
		OccurredAt: r.CreatedAt,
	}
}
