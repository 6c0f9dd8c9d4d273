// Package repository provides the ledger backends: in-memory, LevelDB and
// SQL (PostgreSQL or SQLite).
package repository

import (
	"errors"
	"fmt"

	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// kvBackend is the primitive record surface a key-value backend exposes
// inside one transaction. loadAccount returns ledger.ErrAccountNotFound for
// a missing key; loadBalance returns 0 for an identity never seen.
type kvBackend interface {
	loadAccount(addr models.Address) (*ledger.Account, error)
	storeAccount(a *ledger.Account) error
	deleteAccount(addr models.Address) error
	loadBalance(id models.Identity) (int64, error)
	storeBalance(id models.Identity, lamports int64) error
}

// kvTx implements ledger.Tx on top of a kvBackend.
type kvTx struct {
	kv       kvBackend
	rent     ledger.Rent
	readOnly bool
}

func (t *kvTx) Get(addr models.Address) (*ledger.Account, error) {
	return t.kv.loadAccount(addr)
}

func (t *kvTx) Allocate(addr models.Address, payer models.Identity, space int) (*ledger.Account, error) {
	if t.readOnly {
		return nil, ledger.ErrReadOnly
	}
	_, err := t.kv.loadAccount(addr)
	switch {
	case err == nil:
		return nil, fmt.Errorf("allocate %s: %w", addr, ledger.ErrAccountInUse)
	case !errors.Is(err, ledger.ErrAccountNotFound):
		return nil, err
	}

	acc := &ledger.Account{
		Address: addr,
		Payer:   payer,
		Space:   space,
		Deposit: t.rent.Deposit(space),
	}
	if err := t.kv.storeAccount(acc); err != nil {
		return nil, err
	}
	if err := t.adjustBalance(payer, -int64(acc.Deposit)); err != nil {
		return nil, err
	}
	return acc, nil
}

func (t *kvTx) Write(addr models.Address, data []byte) error {
	if t.readOnly {
		return ledger.ErrReadOnly
	}
	acc, err := t.kv.loadAccount(addr)
	if err != nil {
		return err
	}
	if err := acc.CheckWrite(data); err != nil {
		return err
	}
	acc.Data = append([]byte(nil), data...)
	return t.kv.storeAccount(acc)
}

func (t *kvTx) CloseAccount(addr models.Address, recipient models.Identity) (uint64, error) {
	if t.readOnly {
		return 0, ledger.ErrReadOnly
	}
	acc, err := t.kv.loadAccount(addr)
	if err != nil {
		return 0, err
	}
	if err := t.kv.deleteAccount(addr); err != nil {
		return 0, err
	}
	if err := t.adjustBalance(recipient, int64(acc.Deposit)); err != nil {
		return 0, err
	}
	return acc.Deposit, nil
}

func (t *kvTx) Balance(id models.Identity) (int64, error) {
	return t.kv.loadBalance(id)
}

func (t *kvTx) adjustBalance(id models.Identity, delta int64) error {
	cur, err := t.kv.loadBalance(id)
	if err != nil {
		return err
	}
	return t.kv.storeBalance(id, cur+delta)
}
