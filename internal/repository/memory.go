package repository

import (
	"context"
	"sync"

	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// MemoryLedger is a map-backed ledger.Store. Writers are serialized; a
// transaction's writes are staged and applied only when it succeeds.
type MemoryLedger struct {
	mu       sync.RWMutex
	rent     ledger.Rent
	accounts map[models.Address]ledger.Account
	balances map[models.Identity]int64
}

// NewMemoryLedger creates an empty in-memory ledger charging the given rent.
func NewMemoryLedger(rent ledger.Rent) *MemoryLedger {
	return &MemoryLedger{
		rent:     rent,
		accounts: make(map[models.Address]ledger.Account),
		balances: make(map[models.Identity]int64),
	}
}

// Update runs fn against a staged overlay and applies it if fn succeeds.
func (m *MemoryLedger) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	overlay := &memoryOverlay{
		base:     m,
		accounts: make(map[models.Address]*ledger.Account),
		balances: make(map[models.Identity]int64),
	}
	if err := fn(&kvTx{kv: overlay, rent: m.rent}); err != nil {
		return err
	}

	for addr, acc := range overlay.accounts {
		if acc == nil {
			delete(m.accounts, addr)
			continue
		}
		m.accounts[addr] = *acc
	}
	for id, v := range overlay.balances {
		m.balances[id] = v
	}
	return nil
}

// View runs fn with read access to the committed state.
func (m *MemoryLedger) View(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	overlay := &memoryOverlay{base: m}
	return fn(&kvTx{kv: overlay, rent: m.rent, readOnly: true})
}

// Close is a no-op.
func (m *MemoryLedger) Close() error {
	return nil
}

// memoryOverlay stages writes above the committed maps. A nil account entry
// marks a deletion.
type memoryOverlay struct {
	base     *MemoryLedger
	accounts map[models.Address]*ledger.Account
	balances map[models.Identity]int64
}

func (o *memoryOverlay) loadAccount(addr models.Address) (*ledger.Account, error) {
	if acc, ok := o.accounts[addr]; ok {
		if acc == nil {
			return nil, ledger.ErrAccountNotFound
		}
		return cloneAccount(acc), nil
	}
	acc, ok := o.base.accounts[addr]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return cloneAccount(&acc), nil
}

func (o *memoryOverlay) storeAccount(a *ledger.Account) error {
	o.accounts[a.Address] = cloneAccount(a)
	return nil
}

func (o *memoryOverlay) deleteAccount(addr models.Address) error {
	o.accounts[addr] = nil
	return nil
}

func (o *memoryOverlay) loadBalance(id models.Identity) (int64, error) {
	if v, ok := o.balances[id]; ok {
		return v, nil
	}
	return o.base.balances[id], nil
}

func (o *memoryOverlay) storeBalance(id models.Identity, lamports int64) error {
	o.balances[id] = lamports
	return nil
}

func cloneAccount(a *ledger.Account) *ledger.Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}
