package secretstore

import (
	"github.com/pkg/errors"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/db"
)

// AddHDSeed stores a new HD seed and returns its id. When addressOfPS is set
// and no password seed exists yet, the password seed is created from
// addressOfPS and encSeed in the same transaction.
func (s *Store) AddHDSeed(encSeed, encHDSeed, firstAddress string, isXRandom bool,
	addressOfPS string) (int, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if encSeed == "" {
		return 0, ErrEmptySecret
	}
	if !s.validAddress(firstAddress) {
		return 0, ErrInvalidAddress
	}
	if addressOfPS != "" && !s.validAddress(addressOfPS) {
		return 0, ErrInvalidAddress
	}

	var id int64
	err := s.update("add hd seed", func(tx db.DBTransaction) error {
		res, err := tx.Exec("INSERT INTO hd_seeds (encrypt_seed, encrypt_hd_seed, is_xrandom, hdm_address) "+
			"VALUES (?, ?, ?, ?)",
			encSeed, nullableString(encHDSeed), boolToInt(isXRandom), firstAddress)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if encSeed == RecoverSeed {
			return nil
		}
		return ensurePasswordSeed(tx, NewPasswordSeed(addressOfPS, encSeed))
	})
	if err != nil {
		return 0, err
	}

	logging.CPrint(logging.INFO, "hd seed added", logging.LogFormat{
		"hd_seed_id":    id,
		"first_address": firstAddress,
	})
	return int(id), nil
}

// HDSeedIDs returns the ids of all stored HD seeds in ascending order.
func (s *Store) HDSeedIDs() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int
	err := s.view("list hd seeds", func(tx db.ReadTransaction) error {
		var err error
		ids, err = queryList(tx, func(row scanner) (int, error) {
			var id int
			err := row.Scan(&id)
			return id, err
		}, "SELECT hd_seed_id FROM hd_seeds ORDER BY hd_seed_id")
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// HDSeed returns the HD seed with id, or nil if it does not exist.
func (s *Store) HDSeed(id int) (*HDSeed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seed *HDSeed
	err := s.view("fetch hd seed", func(tx db.ReadTransaction) error {
		var err error
		seed, _, err = queryOne(tx, scanHDSeed,
			"SELECT "+hdSeedColumns+" FROM hd_seeds WHERE hd_seed_id = ?", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return seed, nil
}

// EncryptedSeed returns the encrypted seed of HD seed id.
func (s *Store) EncryptedSeed(id int) (string, bool, error) {
	seed, err := s.HDSeed(id)
	if err != nil || seed == nil {
		return "", false, err
	}
	return seed.EncryptedSeed, true, nil
}

// EncryptedHDSeed returns the encrypted HD seed of HD seed id. The second
// result is false when the seed is unknown or has no HD seed yet.
func (s *Store) EncryptedHDSeed(id int) (string, bool, error) {
	seed, err := s.HDSeed(id)
	if err != nil || seed == nil || seed.EncryptedHDSeed == "" {
		return "", false, err
	}
	return seed.EncryptedHDSeed, true, nil
}

// IsHDSeedFromXRandom reports whether HD seed id was generated with XRandom.
// Unknown seeds report false.
func (s *Store) IsHDSeedFromXRandom(id int) (bool, error) {
	seed, err := s.HDSeed(id)
	if err != nil || seed == nil {
		return false, err
	}
	return seed.IsXRandom, nil
}

// HDMFirstAddress returns the first address derived from HD seed id.
func (s *Store) HDMFirstAddress(id int) (string, bool, error) {
	seed, err := s.HDSeed(id)
	if err != nil || seed == nil {
		return "", false, err
	}
	return seed.FirstAddress, true, nil
}

// UpdateEncryptedHDSeed back-fills the encrypted HD seed of HD seed id.
func (s *Store) UpdateEncryptedHDSeed(id int, encHDSeed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if encHDSeed == "" {
		return ErrEmptySecret
	}
	return s.update("update hd seed", func(tx db.DBTransaction) error {
		ok, err := execOne(tx, "UPDATE hd_seeds SET encrypt_hd_seed = ? WHERE hd_seed_id = ?",
			encHDSeed, id)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(ErrHDSeedNotFound, "hd seed %d", id)
		}
		return nil
	})
}
