package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyanshu-verma600/notekeeper/internal/db"
	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

var (
	alice = models.Identity{0xa1}
	bob   = models.Identity{0xb0}
	addr1 = models.Address{1}
	addr2 = models.Address{2}
)

type ledgerFactory func(t *testing.T) ledger.Store

func backends() map[string]ledgerFactory {
	return map[string]ledgerFactory{
		"memory": func(t *testing.T) ledger.Store {
			return NewMemoryLedger(ledger.DefaultRent())
		},
		"leveldb": func(t *testing.T) ledger.Store {
			ldb, err := db.InitLevelDB(filepath.Join(t.TempDir(), "ledger"))
			require.NoError(t, err)
			return NewLevelDBLedger(ldb, ledger.DefaultRent())
		},
		"sqlite": func(t *testing.T) ledger.Store {
			conn, err := db.InitSQLite(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			return NewSQLiteLedger(conn, ledger.DefaultRent())
		},
	}
}

func TestLedgerBackends(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Run("allocate write get", func(t *testing.T) { testAllocateWriteGet(t, factory(t)) })
			t.Run("allocate collision", func(t *testing.T) { testAllocateCollision(t, factory(t)) })
			t.Run("write overflow", func(t *testing.T) { testWriteOverflow(t, factory(t)) })
			t.Run("close refunds", func(t *testing.T) { testCloseRefunds(t, factory(t)) })
			t.Run("rollback on error", func(t *testing.T) { testRollback(t, factory(t)) })
			t.Run("view is read-only", func(t *testing.T) { testViewReadOnly(t, factory(t)) })
			t.Run("read own writes", func(t *testing.T) { testReadOwnWrites(t, factory(t)) })
			t.Run("serialized updates", func(t *testing.T) { testSerializedUpdates(t, factory(t)) })
		})
	}
}

func testAllocateWriteGet(t *testing.T, s ledger.Store) {
	defer s.Close()
	ctx := context.Background()

	err := s.Update(ctx, func(tx ledger.Tx) error {
		acc, err := tx.Allocate(addr1, alice, 16)
		if err != nil {
			return err
		}
		assert.Equal(t, ledger.DefaultRent().Deposit(16), acc.Deposit)
		return tx.Write(addr1, []byte("hello"))
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx ledger.Tx) error {
		acc, err := tx.Get(addr1)
		require.NoError(t, err)
		assert.Equal(t, alice, acc.Payer)
		assert.Equal(t, 16, acc.Space)
		assert.Equal(t, []byte("hello"), acc.Data)

		_, err = tx.Get(addr2)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

		bal, err := tx.Balance(alice)
		require.NoError(t, err)
		assert.Equal(t, -int64(ledger.DefaultRent().Deposit(16)), bal)
		return nil
	})
	require.NoError(t, err)
}

func testAllocateCollision(t *testing.T, s ledger.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx ledger.Tx) error {
		_, err := tx.Allocate(addr1, alice, 8)
		return err
	}))

	err := s.Update(ctx, func(tx ledger.Tx) error {
		_, err := tx.Allocate(addr1, bob, 8)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrAccountInUse)

	require.NoError(t, s.View(ctx, func(tx ledger.Tx) error {
		acc, err := tx.Get(addr1)
		require.NoError(t, err)
		assert.Equal(t, alice, acc.Payer)
		bal, err := tx.Balance(bob)
		require.NoError(t, err)
		assert.Zero(t, bal)
		return nil
	}))
}

func testWriteOverflow(t *testing.T, s ledger.Store) {
	defer s.Close()
	err := s.Update(context.Background(), func(tx ledger.Tx) error {
		if _, err := tx.Allocate(addr1, alice, 4); err != nil {
			return err
		}
		return tx.Write(addr1, []byte("too long"))
	})
	assert.ErrorIs(t, err, ledger.ErrAccountOverflow)

	err = s.Update(context.Background(), func(tx ledger.Tx) error {
		return tx.Write(addr2, []byte("x"))
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func testCloseRefunds(t *testing.T, s ledger.Store) {
	defer s.Close()
	ctx := context.Background()
	deposit := ledger.DefaultRent().Deposit(32)

	require.NoError(t, s.Update(ctx, func(tx ledger.Tx) error {
		_, err := tx.Allocate(addr1, alice, 32)
		return err
	}))

	var refunded uint64
	require.NoError(t, s.Update(ctx, func(tx ledger.Tx) error {
		var err error
		refunded, err = tx.CloseAccount(addr1, bob)
		return err
	}))
	assert.Equal(t, deposit, refunded)

	require.NoError(t, s.View(ctx, func(tx ledger.Tx) error {
		_, err := tx.Get(addr1)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
		a, _ := tx.Balance(alice)
		b, _ := tx.Balance(bob)
		assert.Equal(t, -int64(deposit), a)
		assert.Equal(t, int64(deposit), b)
		return nil
	}))

	err := s.Update(ctx, func(tx ledger.Tx) error {
		_, err := tx.CloseAccount(addr1, bob)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func testRollback(t *testing.T, s ledger.Store) {
	defer s.Close()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Allocate(addr1, alice, 8); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx ledger.Tx) error {
		_, err := tx.Get(addr1)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
		bal, err := tx.Balance(alice)
		require.NoError(t, err)
		assert.Zero(t, bal)
		return nil
	}))
}

func testViewReadOnly(t *testing.T, s ledger.Store) {
	defer s.Close()
	err := s.View(context.Background(), func(tx ledger.Tx) error {
		_, err := tx.Allocate(addr1, alice, 8)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrReadOnly)
}

func testReadOwnWrites(t *testing.T, s ledger.Store) {
	defer s.Close()
	err := s.Update(context.Background(), func(tx ledger.Tx) error {
		if _, err := tx.Allocate(addr1, alice, 8); err != nil {
			return err
		}
		if err := tx.Write(addr1, []byte("v1")); err != nil {
			return err
		}
		acc, err := tx.Get(addr1)
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("v1"), acc.Data)

		if _, err := tx.CloseAccount(addr1, alice); err != nil {
			return err
		}
		_, err = tx.Get(addr1)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

		bal, err := tx.Balance(alice)
		require.NoError(t, err)
		assert.Zero(t, bal)
		return nil
	})
	require.NoError(t, err)
}

func testSerializedUpdates(t *testing.T, s ledger.Store) {
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Allocate(addr1, alice, 8); err != nil {
			return err
		}
		return tx.Write(addr1, []byte{0})
	}))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, func(tx ledger.Tx) error {
				acc, err := tx.Get(addr1)
				if err != nil {
					return err
				}
				return tx.Write(addr1, []byte{acc.Data[0] + 1})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, s.View(ctx, func(tx ledger.Tx) error {
		acc, err := tx.Get(addr1)
		require.NoError(t, err)
		assert.Equal(t, byte(workers), acc.Data[0])
		return nil
	}))
}

func TestMemoryLedger_CanceledContext(t *testing.T) {
	s := NewMemoryLedger(ledger.DefaultRent())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Update(ctx, func(tx ledger.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
