package ledger

import "errors"

var (
	ErrUnauthorized      = errors.New("caller is not the administrator")
	ErrInsufficientFunds = errors.New("amount exceeds pooled fund")
	ErrOverflow          = errors.New("amount overflows credited range")
	ErrTransferFailed    = errors.New("value transfer failed")
)
