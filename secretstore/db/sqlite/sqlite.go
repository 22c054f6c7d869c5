package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // Register the database/sql driver.

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/db"
)

const (
	dbType = "sqlite"

	// sqliteOptionPrefix is the string prefix sqlite uses to set various
	// options, in the form sqliteOptionPrefix=option_name(option_value).
	sqliteOptionPrefix = "_pragma"

	// sqliteTxLockImmediate makes write transactions take the database
	// lock at BEGIN instead of at the first write.
	sqliteTxLockImmediate = "_txlock=immediate"
)

var (
	pragmaOptions = []struct {
		name  string
		value string
	}{
		{name: "foreign_keys", value: "on"},
		{name: "journal_mode", value: "WAL"},
		{name: "busy_timeout", value: "5000"},
		// An extra WAL sync after each transaction, secrets must not be
		// lost on power failure.
		{name: "synchronous", value: "full"},
		{name: "fullfsync", value: "true"},
		{name: "secure_delete", value: "on"},
	}

	_ db.DB = (*SqliteDB)(nil)
)

// SqliteDB is a db.DB backed by a single sqlite file. It holds exactly one
// connection so every transaction is serialized.
type SqliteDB struct {
	db   *sql.DB
	path string
}

func init() {
	if err := db.RegisterDriver(db.DBDriver{
		Type:     dbType,
		OpenDB:   OpenDB,
		CreateDB: CreateDB,
	}); err != nil {
		panic(fmt.Sprintf("failed to register %s driver: %v", dbType, err))
	}
}

func parseDbPath(args ...interface{}) (string, error) {
	if len(args) != 1 {
		return "", db.ErrInvalidArgument
	}
	path, ok := args[0].(string)
	if !ok || path == "" {
		return "", db.ErrInvalidArgument
	}
	return path, nil
}

func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// CreateDB creates the database file given as the single argument and
// applies the schema. It fails with db.ErrDbExists if the file is present.
func CreateDB(args ...interface{}) (db.DB, error) {
	path, err := parseDbPath(args...)
	if err != nil {
		return nil, err
	}
	if fileExists(path) {
		return nil, db.ErrDbExists
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(db.ErrCreateDBFailed, err.Error())
	}
	return newSqliteDB(path, true)
}

// OpenDB opens the existing database file given as the single argument and
// brings its schema up to date.
func OpenDB(args ...interface{}) (db.DB, error) {
	path, err := parseDbPath(args...)
	if err != nil {
		return nil, err
	}
	if !fileExists(path) {
		return nil, db.ErrDbDoesNotExist
	}
	return newSqliteDB(path, false)
}

func dsn(path string) string {
	sqliteOptions := make(url.Values)
	for _, option := range pragmaOptions {
		sqliteOptions.Add(
			sqliteOptionPrefix,
			fmt.Sprintf("%v=%v", option.name, option.value),
		)
	}
	return fmt.Sprintf("%v?%v&%v", path, sqliteOptions.Encode(),
		sqliteTxLockImmediate)
}

func newSqliteDB(path string, create bool) (*SqliteDB, error) {
	failed := db.ErrOpenDBFailed
	if create {
		failed = db.ErrCreateDBFailed
	}

	sdb, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, errors.Wrap(failed, err.Error())
	}
	sdb.SetMaxOpenConns(1)
	sdb.SetMaxIdleConns(1)

	if err := sdb.Ping(); err != nil {
		sdb.Close()
		return nil, errors.Wrap(failed, err.Error())
	}

	if err := applyMigrations(sdb); err != nil {
		logging.CPrint(logging.ERROR, "failed to migrate sqlite db",
			logging.LogFormat{
				"err":    err,
				"path":   path,
				"create": create,
			})
		sdb.Close()
		return nil, errors.Wrap(failed, err.Error())
	}

	logging.CPrint(logging.INFO, "init sqlite db", logging.LogFormat{
		"path":   path,
		"create": create,
	})
	return &SqliteDB{db: sdb, path: path}, nil
}

// Path returns the database file path.
func (s *SqliteDB) Path() string {
	return s.path
}

// BeginTx starts a write transaction.
func (s *SqliteDB) BeginTx() (db.Tx, error) {
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return nil, MapSQLError(err)
	}
	return &transaction{tx: tx}, nil
}

// BeginReadTx starts a read-only transaction.
func (s *SqliteDB) BeginReadTx() (db.ReadTx, error) {
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, MapSQLError(err)
	}
	return &transaction{tx: tx, readOnly: true}, nil
}

// Close closes the database.
func (s *SqliteDB) Close() error {
	return s.db.Close()
}

type transaction struct {
	tx       *sql.Tx
	readOnly bool
}

func (t *transaction) Query(query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, MapSQLError(err)
	}
	return rows, nil
}

func (t *transaction) QueryRow(query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRow(query, args...)
}

func (t *transaction) Exec(query string, args ...interface{}) (sql.Result, error) {
	if t.readOnly {
		return nil, ErrWriteNotAllowed
	}
	res, err := t.tx.Exec(query, args...)
	if err != nil {
		return nil, MapSQLError(err)
	}
	return res, nil
}

func (t *transaction) Commit() error {
	return MapSQLError(t.tx.Commit())
}

func (t *transaction) Rollback() error {
	return t.tx.Rollback()
}
