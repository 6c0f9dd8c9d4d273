// Package ledger defines the key-value substrate the note service runs on:
// accounts addressed by models.Address, allocated with a rent deposit paid
// by a payer and refunded to whoever closes them, and updated atomically
// one transaction at a time.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// Ledger errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInUse    = errors.New("account already in use")
	ErrAccountOverflow = errors.New("data exceeds allocated account space")
	ErrReadOnly        = errors.New("read-only transaction")
)

// Account is a stored record together with its allocation metadata.
type Account struct {
	// Address is where the account lives.
	Address models.Address
	// Payer is the identity charged the deposit at allocation.
	Payer models.Identity
	// Space is the number of data bytes reserved.
	Space int
	// Deposit is the rent deposit held by the account, refunded on close.
	Deposit uint64
	// Data holds the record bytes, at most Space long.
	Data []byte
}

// Store is a transactional account store.
type Store interface {
	// Update runs fn in a read-write transaction. If fn returns an error
	// none of its writes are applied.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only view.
	View(ctx context.Context, fn func(tx Tx) error) error
	// Close releases the store's resources.
	Close() error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// Get returns the account at addr or ErrAccountNotFound.
	Get(addr models.Address) (*Account, error)
	// Allocate creates an empty account of the given space at addr, charging
	// payer the rent deposit. It fails with ErrAccountInUse if addr is taken.
	Allocate(addr models.Address, payer models.Identity, space int) (*Account, error)
	// Write replaces the data of the account at addr.
	Write(addr models.Address, data []byte) error
	// CloseAccount removes the account at addr, credits its deposit to
	// recipient and returns the refunded amount.
	CloseAccount(addr models.Address, recipient models.Identity) (uint64, error)
	// Balance returns the net lamport balance of id.
	Balance(id models.Identity) (int64, error)
}

// accountHeaderSize is payer, space and deposit ahead of the data.
const accountHeaderSize = models.IdentitySize + 4 + 8

// MarshalBinary encodes the account for key-value backends. The address is
// the key and is not part of the value.
func (a *Account) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, accountHeaderSize+len(a.Data))
	b = append(b, a.Payer[:]...)
	b = binary.LittleEndian.AppendUint32(b, uint32(a.Space))
	b = binary.LittleEndian.AppendUint64(b, a.Deposit)
	return append(b, a.Data...), nil
}

// UnmarshalBinary decodes an account value produced by MarshalBinary.
func (a *Account) UnmarshalBinary(b []byte) error {
	if len(b) < accountHeaderSize {
		return fmt.Errorf("decode account: %w", models.ErrAccountTruncated)
	}
	copy(a.Payer[:], b[:models.IdentitySize])
	b = b[models.IdentitySize:]
	a.Space = int(binary.LittleEndian.Uint32(b))
	a.Deposit = binary.LittleEndian.Uint64(b[4:])
	a.Data = append([]byte(nil), b[12:]...)
	return nil
}

// CheckWrite reports whether data fits the account.
func (a *Account) CheckWrite(data []byte) error {
	if len(data) > a.Space {
		return fmt.Errorf("%w: %d > %d bytes at %s", ErrAccountOverflow, len(data), a.Space, a.Address)
	}
	return nil
}
