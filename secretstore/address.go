package secretstore

import (
	"database/sql"

	"github.com/pkg/errors"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/db"
)

// Addresses returns every stored address, most recently sorted first.
// Rows whose address is not valid for the store network are skipped.
func (s *Store) Addresses() ([]*Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var addrs []*Address
	err := s.view("list addresses", func(tx db.ReadTransaction) error {
		list, err := queryList(tx, scanAddress,
			"SELECT "+addressColumns+" FROM addresses ORDER BY sort_time DESC, address ASC")
		if err != nil {
			return err
		}
		addrs = make([]*Address, 0, len(list))
		for _, a := range list {
			if !s.validAddress(a.Address) {
				logging.CPrint(logging.WARN, "skip malformed stored address", logging.LogFormat{
					"address": a.Address,
				})
				continue
			}
			addrs = append(addrs, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// EncryptedPrivateKey returns the encrypted private key of address. The
// second result is false when the address is unknown or watch-only.
func (s *Store) EncryptedPrivateKey(address string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var encPrivKey sql.NullString
	err := s.view("fetch private key", func(tx db.ReadTransaction) error {
		err := tx.QueryRow("SELECT encrypt_private_key FROM addresses WHERE address = ?",
			address).Scan(&encPrivKey)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return "", false, err
	}
	if !encPrivKey.Valid || encPrivKey.String == "" {
		return "", false, nil
	}
	return encPrivKey.String, true, nil
}

// AddAddress stores a new address. When it carries a private key and no
// password seed exists yet, the password seed is created from it in the
// same transaction.
func (s *Store) AddAddress(a *Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a == nil {
		return ErrNilPointer
	}
	if !s.validAddress(a.Address) {
		return ErrInvalidAddress
	}
	if len(a.PubKey) == 0 {
		return ErrInvalidPubKey
	}
	sortTime := a.SortTime
	if sortTime.IsZero() {
		sortTime = s.now()
	}

	err := s.update("add address", func(tx db.DBTransaction) error {
		_, err := tx.Exec("INSERT INTO addresses ("+addressColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			a.Address, nullableString(a.EncryptedPrivKey), encodePubKey(a.PubKey),
			boolToInt(a.IsXRandom), boolToInt(a.IsTrashed), boolToInt(a.IsSynced),
			toSortTime(sortTime))
		if errors.Is(err, db.ErrUniqueConstraint) {
			return ErrAddressExists
		}
		if err != nil {
			return err
		}
		if !a.HasPrivKey() {
			return nil
		}
		return ensurePasswordSeed(tx, NewPasswordSeed(a.Address, a.EncryptedPrivKey))
	})
	if err != nil {
		return err
	}
	a.SortTime = fromSortTime(toSortTime(sortTime))
	return nil
}

// UpdatePrivateKey replaces the encrypted private key of address.
func (s *Store) UpdatePrivateKey(address, encPrivKey string) error {
	if encPrivKey == "" {
		return ErrEmptySecret
	}
	return s.updateAddress("update private key",
		"UPDATE addresses SET encrypt_private_key = ? WHERE address = ?",
		encPrivKey, address)
}

// TrashAddress moves address to the trash.
func (s *Store) TrashAddress(address string) error {
	return s.updateAddress("trash address",
		"UPDATE addresses SET is_trash = 1 WHERE address = ?", address)
}

// RestoreAddress takes address out of the trash. It has to be synced again
// and sorts as the most recent address.
func (s *Store) RestoreAddress(address string) error {
	return s.updateAddress("restore address",
		"UPDATE addresses SET is_trash = 0, is_synced = 0, sort_time = ? WHERE address = ?",
		toSortTime(s.now()), address)
}

// UpdateSyncComplete sets the synced flag of address.
func (s *Store) UpdateSyncComplete(address string, synced bool) error {
	return s.updateAddress("update address sync",
		"UPDATE addresses SET is_synced = ? WHERE address = ?",
		boolToInt(synced), address)
}

func (s *Store) updateAddress(op, query string, args ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(op, func(tx db.DBTransaction) error {
		ok, err := execOne(tx, query, args...)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAddressNotFound
		}
		return nil
	})
}

// RemoveWatchOnlyAddress deletes address if it has no private key. It
// reports whether a row was deleted.
func (s *Store) RemoveWatchOnlyAddress(address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed bool
	err := s.update("remove watch-only address", func(tx db.DBTransaction) error {
		var err error
		removed, err = execOne(tx,
			"DELETE FROM addresses WHERE address = ? AND encrypt_private_key IS NULL", address)
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}
