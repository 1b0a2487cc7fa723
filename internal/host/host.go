// Package host is the execution environment around a single prize pool.
// It serializes every call, supplies caller identity and attached value,
// holds the pooled fund, and records a receipt for each successful call.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/prize-pool-ledger/internal/interfaces"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/ledger"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models/events"
)

var (
	ErrNoDeployer = errors.New("deployer identity is required")
	// ErrUnsettled is returned while a failed withdrawal is still recorded as paid.
	ErrUnsettled = errors.New("failed withdrawal is not yet reverted in the store")
)

// pendingRevert is a withdrawal receipt whose payout failed but whose
// record could not be removed.
type pendingRevert struct {
	id     string
	pooled uint64
}

// Host owns one deployed PrizePool. All operations take the same lock, so the
// pool never sees two calls interleave.
type Host struct {
	mu        sync.Mutex
	pool      *ledger.PrizePool
	pooled    uint64
	unsettled *pendingRevert

	store     interfaces.LedgerStore
	payout    interfaces.Payout
	publisher interfaces.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	decimals  int32
}

type Option func(*Host)

// WithPublisher sends a CallExecuted event after every successful call.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(h *Host) { h.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(h *Host) { h.now = now }
}

// WithDecimals sets the scale used when rendering published events.
func WithDecimals(decimals int32) Option {
	return func(h *Host) { h.decimals = decimals }
}

// Deploy initializes the pool with deployer as administrator, or resumes a
// pool already persisted in store. A resumed pool keeps its stored administrator.
func Deploy(ctx context.Context, deployer models.Identity, store interfaces.LedgerStore, payout interfaces.Payout, opts ...Option) (*Host, error) {
	if deployer == "" {
		return nil, ErrNoDeployer
	}

	h := &Host{
		store:  store,
		payout: payout,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	state, err := store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	if state.Deployed() {
		h.pool = ledger.Restore(state)
		h.pooled = state.Pooled
		if deployer != state.Administrator {
			h.logger.Warn("pool already deployed, keeping stored administrator",
				"administrator", state.Administrator, "deployer", deployer)
		}
		h.logger.Info("prize pool resumed",
			"administrator", state.Administrator, "depositors", len(state.Credits), "pooled", state.Pooled)
		return h, nil
	}

	if err := store.SaveAdministrator(ctx, deployer); err != nil {
		return nil, fmt.Errorf("save administrator: %w", err)
	}
	h.pool = ledger.New(deployer)
	h.logger.Info("prize pool deployed", "administrator", deployer)
	return h, nil
}

// Deposit credits value to caller and adds it to the pooled fund. Nothing
// changes unless the receipt is stored.
func (h *Host) Deposit(ctx context.Context, caller models.Identity, value uint64) (models.Receipt, error) {
	receipt, err := h.deposit(ctx, caller, value)
	if err != nil {
		return models.Receipt{}, err
	}
	h.publish(ctx, receipt)
	return receipt, nil
}

func (h *Host) deposit(ctx context.Context, caller models.Identity, value uint64) (models.Receipt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.settle(ctx); err != nil {
		return models.Receipt{}, err
	}

	pooled, err := ledger.Add(h.pooled, value)
	if err != nil {
		return models.Receipt{}, err
	}

	staged := h.pool.Clone()
	credit, err := staged.Deposit(caller, value)
	if err != nil {
		return models.Receipt{}, err
	}

	receipt := h.newReceipt(models.CallDeposit, caller, value, credit, pooled)
	if err := h.store.SaveReceipt(ctx, receipt); err != nil {
		return models.Receipt{}, fmt.Errorf("record deposit: %w", err)
	}

	h.pool = staged
	h.pooled = pooled
	h.logger.Info("deposit", "caller", caller, "value", value, "credit", credit, "pooled", pooled)
	return receipt, nil
}

// Withdraw pays amount from the pooled fund to the administrator.
func (h *Host) Withdraw(ctx context.Context, caller models.Identity, amount uint64) (models.Receipt, error) {
	receipt, err := h.withdraw(ctx, caller, amount)
	if err != nil {
		return models.Receipt{}, err
	}
	h.publish(ctx, receipt)
	return receipt, nil
}

func (h *Host) withdraw(ctx context.Context, caller models.Identity, amount uint64) (models.Receipt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.settle(ctx); err != nil {
		return models.Receipt{}, err
	}

	before := h.pooled
	var receipt models.Receipt
	vault := &stagedVault{
		ctx:     ctx,
		balance: before,
		payout:  h.payout,
		record: func(pooled uint64) error {
			receipt = h.newReceipt(models.CallWithdraw, caller, amount, 0, pooled)
			return h.store.SaveReceipt(ctx, receipt)
		},
		revert: func() error {
			// nothing moved; the record must go even if the request was cancelled
			err := h.store.RevertReceipt(context.WithoutCancel(ctx), receipt.ID, before)
			if err != nil {
				h.unsettled = &pendingRevert{id: receipt.ID, pooled: before}
				h.logger.Error("withdrawal failed but is still recorded", "receipt", receipt.ID, "error", err)
			}
			return err
		},
	}
	if err := h.pool.Withdraw(caller, amount, vault); err != nil {
		h.logger.Warn("withdraw rejected", "caller", caller, "amount", amount, "error", err)
		return models.Receipt{}, err
	}
	h.pooled = vault.balance

	h.logger.Info("withdraw", "caller", caller, "amount", amount, "pooled", h.pooled)
	return receipt, nil
}

// settle retries a pending revert. Mutating calls are refused until it succeeds.
func (h *Host) settle(ctx context.Context) error {
	if h.unsettled == nil {
		return nil
	}
	if err := h.store.RevertReceipt(ctx, h.unsettled.id, h.unsettled.pooled); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsettled, err)
	}
	h.logger.Info("failed withdrawal reverted", "receipt", h.unsettled.id)
	h.unsettled = nil
	return nil
}

// Balance returns the pooled fund.
func (h *Host) Balance() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pooled
}

// CreditOf returns the credited amount of id, zero for unknown identities.
func (h *Host) CreditOf(id models.Identity) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.CreditOf(id)
}

// Administrator returns the identity bound at deployment.
func (h *Host) Administrator() models.Identity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Administrator()
}

// Receipts reads the store directly without taking the host lock; the store
// is safe for concurrent use and receipts only change under the lock.
func (h *Host) Receipts(ctx context.Context) ([]models.Receipt, error) {
	return h.store.GetReceipts(ctx)
}

func (h *Host) newReceipt(kind models.CallKind, caller models.Identity, amount, credit, pooled uint64) models.Receipt {
	return models.Receipt{
		ID:        uuid.NewString(),
		Kind:      kind,
		Caller:    caller,
		Amount:    amount,
		Credit:    credit,
		Pooled:    pooled,
		CreatedAt: h.now(),
	}
}

func (h *Host) publish(ctx context.Context, receipt models.Receipt) {
	if h.publisher == nil {
		return
	}
	event := events.NewCallExecuted(receipt, h.decimals)
	if err := h.publisher.Publish(context.WithoutCancel(ctx), string(receipt.Caller), event); err != nil {
		h.logger.Warn("publish failed", "receipt", receipt.ID, "error", err)
	}
}
