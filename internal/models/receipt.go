package models

import "time"

// CallKind names the state-mutating operation a receipt records
type CallKind string

const (
	CallDeposit  CallKind = "deposit"
	CallWithdraw CallKind = "withdraw"
)

// Receipt is the environment's record of a successful mutating call.
// It carries the post-call state the store needs to apply.
type Receipt struct {
	ID        string    // unique identifier
	Kind      CallKind  // deposit or withdraw
	Caller    Identity  // who invoked the call
	Amount    uint64    // attached value for deposits, requested amount for withdrawals
	Credit    uint64    // caller's credited amount after a deposit (unused for withdrawals)
	Pooled    uint64    // pooled fund after the call
	CreatedAt time.Time // timestamp
}
