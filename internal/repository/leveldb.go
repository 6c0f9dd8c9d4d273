package repository

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// key prefixes
const (
	accountPrefix = 'A'
	balancePrefix = 'B'
)

// LevelDBLedger stores accounts and balances in a LevelDB database.
// Update uses a LevelDB transaction, so writers are serialized by the
// database itself.
type LevelDBLedger struct {
	// DB is the underlying database handle.
	DB   *leveldb.DB
	rent ledger.Rent
}

// NewLevelDBLedger wraps an open LevelDB database.
func NewLevelDBLedger(db *leveldb.DB, rent ledger.Rent) *LevelDBLedger {
	return &LevelDBLedger{DB: db, rent: rent}
}

// Update runs fn inside a LevelDB transaction, committing on success and
// discarding otherwise.
func (l *LevelDBLedger) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tr, err := l.DB.OpenTransaction()
	if err != nil {
		return fmt.Errorf("open transaction: %w", err)
	}

	if err := fn(&kvTx{kv: &levelBackend{r: tr, w: tr}, rent: l.rent}); err != nil {
		tr.Discard()
		return err
	}
	if err := tr.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn against a LevelDB snapshot.
func (l *LevelDBLedger) View(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := l.DB.GetSnapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer snap.Release()

	return fn(&kvTx{kv: &levelBackend{r: snap}, rent: l.rent, readOnly: true})
}

// Close closes the database.
func (l *LevelDBLedger) Close() error {
	return l.DB.Close()
}

type levelReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
}

type levelWriter interface {
	Put(key, value []byte, wo *opt.WriteOptions) error
	Delete(key []byte, wo *opt.WriteOptions) error
}

// levelBackend adapts a transaction or snapshot to kvBackend. w is nil for
// snapshots.
type levelBackend struct {
	r levelReader
	w levelWriter
}

func accountKey(addr models.Address) []byte {
	return append([]byte{accountPrefix}, addr[:]...)
}

func balanceKey(id models.Identity) []byte {
	return append([]byte{balancePrefix}, id[:]...)
}

func (b *levelBackend) loadAccount(addr models.Address) (*ledger.Account, error) {
	v, err := b.r.Get(accountKey(addr), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", addr, err)
	}
	acc := &ledger.Account{Address: addr}
	if err := acc.UnmarshalBinary(v); err != nil {
		return nil, err
	}
	return acc, nil
}

func (b *levelBackend) storeAccount(a *ledger.Account) error {
	if b.w == nil {
		return ledger.ErrReadOnly
	}
	v, err := a.MarshalBinary()
	if err != nil {
		return err
	}
	return b.w.Put(accountKey(a.Address), v, nil)
}

func (b *levelBackend) deleteAccount(addr models.Address) error {
	if b.w == nil {
		return ledger.ErrReadOnly
	}
	return b.w.Delete(accountKey(addr), nil)
}

func (b *levelBackend) loadBalance(id models.Identity) (int64, error) {
	v, err := b.r.Get(balanceKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", id, err)
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("balance %s: %w", id, models.ErrAccountTruncated)
	}
	return int64(binary.LittleEndian.Uint64(v)), nil
}

func (b *levelBackend) storeBalance(id models.Identity, lamports int64) error {
	if b.w == nil {
		return ledger.ErrReadOnly
	}
	return b.w.Put(balanceKey(id), binary.LittleEndian.AppendUint64(nil, uint64(lamports)), nil)
}
