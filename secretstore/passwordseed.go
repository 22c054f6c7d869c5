package secretstore

import (
	"database/sql"

	"github.com/pkg/errors"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/db"
)

// PasswordSeed returns the stored password seed, or nil if none exists yet.
func (s *Store) PasswordSeed() (*PasswordSeed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ps *PasswordSeed
	err := s.view("fetch password seed", func(tx db.ReadTransaction) error {
		var err error
		ps, err = fetchPasswordSeed(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ps, nil
}

// HasPasswordSeed reports whether a password seed exists.
func (s *Store) HasPasswordSeed() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var has bool
	err := s.view("count password seed", func(tx db.ReadTransaction) error {
		var err error
		has, err = hasPasswordSeed(tx)
		return err
	})
	return has, err
}

// CheckPassword reports whether password is the store password. With no
// password seed there is nothing to check against and any password passes.
func (s *Store) CheckPassword(password []byte) (bool, error) {
	ps, err := s.PasswordSeed()
	if err != nil {
		return false, err
	}
	if ps == nil {
		return true, nil
	}
	return ps.CheckPassword(s.codec, password), nil
}

func hasPasswordSeed(tx db.ReadTransaction) (bool, error) {
	n, err := countRows(tx, "SELECT count(*) FROM password_seed")
	return n > 0, err
}

func fetchPasswordSeed(tx db.ReadTransaction) (*PasswordSeed, error) {
	var encoded string
	err := tx.QueryRow("SELECT password_seed FROM password_seed LIMIT 1").Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParsePasswordSeed(encoded)
}

// ensurePasswordSeed stores ps unless a password seed already exists. It
// runs inside the transaction persisting the secret ps was derived from.
func ensurePasswordSeed(tx db.DBTransaction, ps *PasswordSeed) error {
	if ps.Address == "" || ps.EncryptedSecret == "" {
		return nil
	}
	has, err := hasPasswordSeed(tx)
	if err != nil || has {
		return err
	}
	if _, err := tx.Exec("INSERT INTO password_seed (id, password_seed) VALUES (1, ?)", ps.String()); err != nil {
		return err
	}
	logging.CPrint(logging.INFO, "password seed created", logging.LogFormat{
		"address": ps.Address,
	})
	return nil
}
