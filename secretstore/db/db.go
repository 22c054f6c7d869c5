package db

import (
	"database/sql"
	"errors"

	"massnet.org/mass-secretstore/logging"
)

// ReadTransaction runs parameterized queries against a consistent view of
// the store.
type ReadTransaction interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// DBTransaction is a ReadTransaction that may also modify the store.
type DBTransaction interface {
	ReadTransaction
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Tx is a write transaction. Nothing it writes is visible to other
// transactions until Commit succeeds. Rollback after Commit is a no-op.
type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// ReadTx is a read-only transaction, released by Rollback.
type ReadTx interface {
	ReadTransaction
	Rollback() error
}

// DB is a handle on an opened store database.
type DB interface {
	BeginTx() (Tx, error)
	BeginReadTx() (ReadTx, error)
	Close() error
}

// Update runs f inside a write transaction and commits it only when f
// returns nil. On every other exit path, including a panic in f, the
// transaction is rolled back.
func Update(db DB, f func(tx DBTransaction) error) error {
	tx, err := db.BeginTx()
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logging.CPrint(logging.ERROR, "failed to rollback db tx",
				logging.LogFormat{"err": err})
		}
	}()

	if err := f(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// View runs f inside a read transaction.
func View(db DB, f func(tx ReadTransaction) error) error {
	tx, err := db.BeginReadTx()
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logging.CPrint(logging.ERROR, "failed to release read tx",
				logging.LogFormat{"err": err})
		}
	}()

	return f(tx)
}
