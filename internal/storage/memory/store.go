package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"fmt"     // standard Go package for formatted errors
	"sync"    // standard Go package for concurrency primitives like Mutex

	interfaces "github.com/sheikh-saqib/prize-pool-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"                // domain models: State, Receipt
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// It keeps the pool state and its receipts in memory and is safe for concurrent use.
type MemoryLedgerStore struct {
	mu       sync.Mutex                 // protects every field below
	admin    models.Identity            // empty until the pool is deployed
	credits  map[models.Identity]uint64 // credited amount per depositor
	pooled   uint64                     // pooled fund after the last receipt
	receipts []models.Receipt           // append-only call history
}

// NewMemoryLedgerStore creates and returns a new, undeployed MemoryLedgerStore
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		credits:  make(map[models.Identity]uint64),
		receipts: make([]models.Receipt, 0),
	}
}

// LoadState returns a copy of the stored state so callers can't modify it.
func (m *MemoryLedgerStore) LoadState(ctx context.Context) (models.State, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	credits := make(map[models.Identity]uint64, len(m.credits))
	for id, amount := range m.credits {
		credits[id] = amount
	}
	return models.State{Administrator: m.admin, Credits: credits, Pooled: m.pooled}, nil
}

func (m *MemoryLedgerStore) SaveAdministrator(ctx context.Context, admin models.Identity) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	m.admin = admin
	return nil
}

// SaveReceipt applies the receipt's post-state and appends it.
// Always succeeds in memory.
func (m *MemoryLedgerStore) SaveReceipt(ctx context.Context, receipt models.Receipt) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if receipt.Kind == models.CallDeposit {
		m.credits[receipt.Caller] = receipt.Credit
	}
	m.pooled = receipt.Pooled
	m.receipts = append(m.receipts, receipt)
	return nil
}

// RevertReceipt drops the receipt and restores the pooled fund.
func (m *MemoryLedgerStore) RevertReceipt(ctx context.Context, id string, pooled uint64) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.receipts) - 1; i >= 0; i-- {
		if m.receipts[i].ID == id {
			m.receipts = append(m.receipts[:i], m.receipts[i+1:]...)
			m.pooled = pooled
			return nil
		}
	}
	return fmt.Errorf("receipt %s not found", id)
}

// GetReceipts returns a copy of all receipts in the order they were saved.
func (m *MemoryLedgerStore) GetReceipts(ctx context.Context) ([]models.Receipt, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.Receipt, len(m.receipts))
	copy(copied, m.receipts)
	return copied, nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
