package secretstore

import (
	"database/sql"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/pkg/errors"

	"massnet.org/mass-secretstore/secretstore/db"
)

const (
	addressColumns    = "address, encrypt_private_key, pub_key, is_xrandom, is_trash, is_synced, sort_time"
	hdSeedColumns     = "hd_seed_id, encrypt_seed, encrypt_hd_seed, is_xrandom, hdm_address"
	hdmPubsColumns    = "hd_seed_index, pub_key_hot, pub_key_cold, pub_key_remote"
	hdmAddressColumns = hdmPubsColumns + ", address, is_synced"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func encodePubKey(pub []byte) string {
	return base58.Encode(pub)
}

func decodePubKey(s string) []byte {
	if s == "" {
		return nil
	}
	return base58.Decode(s)
}

func nullablePubKey(pub []byte) sql.NullString {
	if len(pub) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: encodePubKey(pub), Valid: true}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toSortTime(t time.Time) int64 {
	return t.UnixMilli()
}

func fromSortTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func scanAddress(row scanner) (*Address, error) {
	var (
		a          Address
		encPrivKey sql.NullString
		pubKey     string
		sortTime   int64
	)
	err := row.Scan(&a.Address, &encPrivKey, &pubKey, &a.IsXRandom, &a.IsTrashed,
		&a.IsSynced, &sortTime)
	if err != nil {
		return nil, err
	}
	a.EncryptedPrivKey = encPrivKey.String
	a.PubKey = decodePubKey(pubKey)
	a.SortTime = fromSortTime(sortTime)
	return &a, nil
}

func scanHDSeed(row scanner) (*HDSeed, error) {
	var (
		seed      HDSeed
		encHDSeed sql.NullString
	)
	err := row.Scan(&seed.ID, &seed.EncryptedSeed, &encHDSeed, &seed.IsXRandom,
		&seed.FirstAddress)
	if err != nil {
		return nil, err
	}
	seed.EncryptedHDSeed = encHDSeed.String
	return &seed, nil
}

func scanHDMPubs(row scanner) (*HDMPubs, error) {
	var (
		pubs      HDMPubs
		hot, cold string
		remote    sql.NullString
	)
	if err := row.Scan(&pubs.Index, &hot, &cold, &remote); err != nil {
		return nil, err
	}
	pubs.Hot = decodePubKey(hot)
	pubs.Cold = decodePubKey(cold)
	pubs.Remote = decodePubKey(remote.String)
	return &pubs, nil
}

func scanHDMAddress(row scanner) (*HDMAddress, error) {
	var (
		a         HDMAddress
		hot, cold string
		remote    sql.NullString
		address   sql.NullString
	)
	err := row.Scan(&a.Index, &hot, &cold, &remote, &address, &a.IsSynced)
	if err != nil {
		return nil, err
	}
	a.Hot = decodePubKey(hot)
	a.Cold = decodePubKey(cold)
	a.Remote = decodePubKey(remote.String)
	a.Address = address.String
	return &a, nil
}

// queryList runs query and decodes every row with scan.
func queryList[T any](tx db.ReadTransaction, scan func(scanner) (T, error),
	query string, args ...interface{}) ([]T, error) {

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// queryOne decodes the single row of query. A missing row is reported as
// (zero, false, nil).
func queryOne[T any](tx db.ReadTransaction, scan func(scanner) (T, error),
	query string, args ...interface{}) (T, bool, error) {

	var empty T
	item, err := scan(tx.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return empty, false, nil
	}
	if err != nil {
		return empty, false, err
	}
	return item, true, nil
}

func countRows(tx db.ReadTransaction, query string, args ...interface{}) (int, error) {
	var n int
	err := tx.QueryRow(query, args...).Scan(&n)
	return n, err
}

// execOne runs a single row write and reports whether a row was affected.
func execOne(tx db.DBTransaction, query string, args ...interface{}) (bool, error) {
	res, err := tx.Exec(query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
