package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"massnet.org/mass-secretstore/secretstore/db"
)

// ErrWriteNotAllowed is returned by Exec on a read-only transaction.
var ErrWriteNotAllowed = errors.New("write in read-only transaction")

// MapSQLError translates sqlite constraint and locking failures into the
// backend agnostic errors of package db. Other errors are returned as is.
func MapSQLError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return parseSqliteError(sqliteErr)
	}

	// The busy error is not always wrapped in a *sqlite.Error.
	if strings.Contains(err.Error(), "SQLITE_BUSY") {
		return fmt.Errorf("%w: %v", db.ErrBusy, err)
	}

	return err
}

func parseSqliteError(sqliteErr *sqlite.Error) error {
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return &db.ConstraintError{
			Kind:    db.ErrUniqueConstraint,
			DBError: sqliteErr,
		}

	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return &db.ConstraintError{
			Kind:    db.ErrCheckConstraint,
			DBError: sqliteErr,
		}

	case sqlite3.SQLITE_BUSY:
		return fmt.Errorf("%w: %v", db.ErrBusy, sqliteErr)

	default:
		return fmt.Errorf("sqlite error: %w", sqliteErr)
	}
}
