package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// Dialect captures the SQL differences between the supported databases.
// Queries are written with PostgreSQL placeholders ($1, $2, ...) and
// rebound for the target.
type Dialect struct {
	// Name is the driver name.
	Name string
	// LockClause is appended to row reads made inside read-write transactions.
	LockClause string
	rebind     func(string) string
}

var numbered = regexp.MustCompile(`\$(\d+)`)

// Supported dialects.
var (
	Postgres = Dialect{
		Name:       "postgres",
		LockClause: " FOR UPDATE",
		rebind:     func(q string) string { return q },
	}
	SQLite = Dialect{
		Name:   "sqlite3",
		rebind: func(q string) string { return numbered.ReplaceAllString(q, "?${1}") },
	}
)

// SQLLedger implements ledger.Store on a relational database.
type SQLLedger struct {
	// DB is the database handle for executing queries and transactions.
	DB      *sql.DB
	dialect Dialect
	rent    ledger.Rent
}

// NewPostgresLedger creates a ledger on a PostgreSQL connection.
// db must be a valid *sql.DB with the schema from db.InitPostgres applied.
func NewPostgresLedger(db *sql.DB, rent ledger.Rent) *SQLLedger {
	return &SQLLedger{DB: db, dialect: Postgres, rent: rent}
}

// NewSQLiteLedger creates a ledger on a SQLite connection.
// db must be a valid *sql.DB with the schema from db.InitSQLite applied.
func NewSQLiteLedger(db *sql.DB, rent ledger.Rent) *SQLLedger {
	return &SQLLedger{DB: db, dialect: SQLite, rent: rent}
}

// Update runs fn inside a database transaction.
func (l *SQLLedger) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{ctx: ctx, tx: tx, l: l}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back.
func (l *SQLLedger) View(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqlTx{ctx: ctx, tx: tx, l: l, readOnly: true})
}

// Close closes the database handle.
func (l *SQLLedger) Close() error {
	return l.DB.Close()
}

type sqlTx struct {
	ctx      context.Context
	tx       *sql.Tx
	l        *SQLLedger
	readOnly bool
}

func (t *sqlTx) q(query string) string {
	return t.l.dialect.rebind(query)
}

func (t *sqlTx) Get(addr models.Address) (*ledger.Account, error) {
	query := `SELECT payer, space, deposit, data FROM accounts WHERE address = $1`
	if !t.readOnly {
		query += t.l.dialect.LockClause
	}

	var (
		payer   []byte
		deposit int64
	)
	acc := &ledger.Account{Address: addr}
	err := t.tx.QueryRowContext(t.ctx, t.q(query), addr[:]).Scan(&payer, &acc.Space, &deposit, &acc.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	copy(acc.Payer[:], payer)
	acc.Deposit = uint64(deposit)
	return acc, nil
}

func (t *sqlTx) Allocate(addr models.Address, payer models.Identity, space int) (*ledger.Account, error) {
	if t.readOnly {
		return nil, ledger.ErrReadOnly
	}
	deposit := t.l.rent.Deposit(space)
	res, err := t.tx.ExecContext(t.ctx, t.q(`
		INSERT INTO accounts (address, payer, space, deposit, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO NOTHING
	`), addr[:], payer[:], space, int64(deposit), []byte{})
	if err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("allocate %s: %w", addr, ledger.ErrAccountInUse)
	}

	if err := t.adjustBalance(payer, -int64(deposit)); err != nil {
		return nil, err
	}
	return &ledger.Account{Address: addr, Payer: payer, Space: space, Deposit: deposit}, nil
}

func (t *sqlTx) Write(addr models.Address, data []byte) error {
	if t.readOnly {
		return ledger.ErrReadOnly
	}
	acc, err := t.Get(addr)
	if err != nil {
		return err
	}
	if err := acc.CheckWrite(data); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(t.ctx, t.q(`UPDATE accounts SET data = $1 WHERE address = $2`), data, addr[:]); err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
}

func (t *sqlTx) CloseAccount(addr models.Address, recipient models.Identity) (uint64, error) {
	if t.readOnly {
		return 0, ledger.ErrReadOnly
	}
	var deposit int64
	err := t.tx.QueryRowContext(t.ctx, t.q(`DELETE FROM accounts WHERE address = $1 RETURNING deposit`), addr[:]).Scan(&deposit)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("close account: %w", err)
	}
	if err := t.adjustBalance(recipient, deposit); err != nil {
		return 0, err
	}
	return uint64(deposit), nil
}

func (t *sqlTx) Balance(id models.Identity) (int64, error) {
	var lamports int64
	err := t.tx.QueryRowContext(t.ctx, t.q(`SELECT lamports FROM balances WHERE identity = $1`), id[:]).Scan(&lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return lamports, nil
}

func (t *sqlTx) adjustBalance(id models.Identity, delta int64) error {
	_, err := t.tx.ExecContext(t.ctx, t.q(`
		INSERT INTO balances (identity, lamports) VALUES ($1, $2)
		ON CONFLICT (identity) DO UPDATE SET lamports = balances.lamports + EXCLUDED.lamports
	`), id[:], delta)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return nil
}
