// Package db opens and prepares the databases backing the ledger.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/syndtr/goleveldb/leveldb"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    address BYTEA PRIMARY KEY,
    payer BYTEA NOT NULL,
    space INTEGER NOT NULL,
    deposit BIGINT NOT NULL,
    data BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
    identity BYTEA PRIMARY KEY,
    lamports BIGINT NOT NULL DEFAULT 0
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    address BLOB PRIMARY KEY,
    payer BLOB NOT NULL,
    space INTEGER NOT NULL,
    deposit INTEGER NOT NULL,
    data BLOB NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS balances (
    identity BLOB PRIMARY KEY,
    lamports INTEGER NOT NULL DEFAULT 0
) WITHOUT ROWID;
`

// InitPostgres connects to PostgreSQL and creates the ledger tables.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

// InitSQLite opens (creating if needed) a SQLite database file and creates
// the ledger tables. The pool is limited to one connection so write
// transactions never interleave.
func InitSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

// InitLevelDB opens (creating if needed) a LevelDB database directory.
func InitLevelDB(path string) (*leveldb.DB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return db, nil
}
