package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"massnet.org/mass-secretstore/secretstore/db"
)

func newTestDB(t *testing.T) *SqliteDB {
	sdb, err := CreateDB(filepath.Join(t.TempDir(), "sub", "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		sdb.Close()
	})
	return sdb.(*SqliteDB)
}

func TestMigrationsApplied(t *testing.T) {
	sdb := newTestDB(t)

	version, err := sdb.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	tables := []string{"addresses", "hd_seeds", "hdm_addresses", "hdm_bid", "password_seed"}
	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			var n int
			err := db.View(sdb, func(tx db.ReadTransaction) error {
				return tx.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
					table).Scan(&n)
			})
			assert.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	created, err := CreateDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Update(created, func(tx db.DBTransaction) error {
		_, err := tx.Exec("INSERT INTO password_seed (id, password_seed) VALUES (1, 'a:b')")
		return err
	}))
	require.NoError(t, created.Close())

	opened, err := OpenDB(path)
	require.NoError(t, err)
	defer opened.Close()

	var seed string
	require.NoError(t, db.View(opened, func(tx db.ReadTransaction) error {
		return tx.QueryRow("SELECT password_seed FROM password_seed").Scan(&seed)
	}))
	assert.Equal(t, "a:b", seed)
}

func TestReadTxRejectsWrites(t *testing.T) {
	sdb := newTestDB(t)

	rtx, err := sdb.BeginReadTx()
	require.NoError(t, err)
	defer rtx.Rollback()

	writer, ok := rtx.(db.DBTransaction)
	require.True(t, ok)
	_, err = writer.Exec("DELETE FROM addresses")
	assert.Equal(t, ErrWriteNotAllowed, err)
}

func TestSchemaConstraints(t *testing.T) {
	tests := []struct {
		name  string
		query string
		err   error
	}{
		{
			"second password seed",
			"INSERT INTO password_seed (id, password_seed) VALUES (2, 'x:y')",
			db.ErrCheckConstraint,
		}, {
			"second hdm bid",
			"INSERT INTO hdm_bid (id, hdm_bid, encrypt_bither_password) VALUES (2, 'a', 'b')",
			db.ErrCheckConstraint,
		}, {
			"remote without address",
			"INSERT INTO hdm_addresses (hd_seed_id, hd_seed_index, pub_key_hot, pub_key_cold, pub_key_remote) " +
				"VALUES (1, 5, 'h', 'c', 'r')",
			db.ErrCheckConstraint,
		}, {
			"duplicate hdm index",
			"INSERT INTO hdm_addresses (hd_seed_id, hd_seed_index, pub_key_hot, pub_key_cold) " +
				"VALUES (1, 0, 'h', 'c')",
			db.ErrUniqueConstraint,
		},
	}

	sdb := newTestDB(t)
	require.NoError(t, db.Update(sdb, func(tx db.DBTransaction) error {
		if _, err := tx.Exec("INSERT INTO password_seed (id, password_seed) VALUES (1, 'a:b')"); err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO hdm_bid (id, hdm_bid, encrypt_bither_password) VALUES (1, 'a', 'b')"); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO hdm_addresses (hd_seed_id, hd_seed_index, pub_key_hot, pub_key_cold) " +
			"VALUES (1, 0, 'h', 'c')")
		return err
	}))

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := db.Update(sdb, func(tx db.DBTransaction) error {
				_, err := tx.Exec(test.query)
				return err
			})
			assert.True(t, errors.Is(err, test.err), "got %v", err)
		})
	}
}

func TestMapSQLError(t *testing.T) {
	assert.NoError(t, MapSQLError(nil))

	plain := errors.New("plain")
	assert.Equal(t, plain, MapSQLError(plain))

	busy := MapSQLError(errors.New("database is locked (5) (SQLITE_BUSY)"))
	assert.True(t, errors.Is(busy, db.ErrBusy))
}

func TestDsn(t *testing.T) {
	s := dsn("/tmp/store.db")
	assert.Contains(t, s, "/tmp/store.db?")
	assert.Contains(t, s, "_pragma=foreign_keys%3Don")
	assert.Contains(t, s, sqliteTxLockImmediate)
}
