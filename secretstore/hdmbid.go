package secretstore

import (
	"github.com/pkg/errors"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/db"
)

// HDMBId returns the stored HDM bid, or nil if none exists.
func (s *Store) HDMBId() (*HDMBId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bid *HDMBId
	err := s.view("fetch hdm bid", func(tx db.ReadTransaction) error {
		var err error
		bid, _, err = queryOne(tx, func(row scanner) (*HDMBId, error) {
			var b HDMBId
			if err := row.Scan(&b.Address, &b.EncryptedPassword); err != nil {
				return nil, err
			}
			return &b, nil
		}, "SELECT hdm_bid, encrypt_bither_password FROM hdm_bid LIMIT 1")
		return err
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// AddHDMBId stores the HDM bid. Only one may ever be stored. When
// addressOfPS is set and no password seed exists yet, the password seed is
// created from addressOfPS and the encrypted password in the same
// transaction.
func (s *Store) AddHDMBId(bid *HDMBId, addressOfPS string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bid == nil {
		return ErrNilPointer
	}
	if !s.validAddress(bid.Address) {
		return ErrInvalidAddress
	}
	if bid.EncryptedPassword == "" {
		return ErrEmptySecret
	}
	if addressOfPS != "" && !s.validAddress(addressOfPS) {
		return ErrInvalidAddress
	}

	err := s.update("add hdm bid", func(tx db.DBTransaction) error {
		n, err := countRows(tx, "SELECT count(*) FROM hdm_bid")
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrHDMBIdExists
		}
		_, err = tx.Exec("INSERT INTO hdm_bid (id, hdm_bid, encrypt_bither_password) VALUES (1, ?, ?)",
			bid.Address, bid.EncryptedPassword)
		if errors.Is(err, db.ErrUniqueConstraint) {
			return ErrHDMBIdExists
		}
		if err != nil {
			return err
		}
		return ensurePasswordSeed(tx, NewPasswordSeed(addressOfPS, bid.EncryptedPassword))
	})
	if err != nil {
		return err
	}

	logging.CPrint(logging.INFO, "hdm bid added", logging.LogFormat{
		"hdm_bid": bid.Address,
	})
	return nil
}
