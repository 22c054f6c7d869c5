package secretstore

import (
	"bytes"
	"database/sql"
	"sort"

	"github.com/pkg/errors"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/db"
)

// seedSecrets holds the ciphertexts of one HD seed.
type seedSecrets struct {
	id     int
	seed   string
	hdSeed sql.NullString
}

// secretSet is every ciphertext protected by the store password.
type secretSet struct {
	privKeys     map[string]string
	hdmPassword  sql.NullString
	seeds        []*seedSecrets
	passwordSeed *PasswordSeed
}

func (set *secretSet) count() int {
	n := len(set.privKeys) + len(set.seeds)
	if set.hdmPassword.Valid {
		n++
	}
	if set.passwordSeed != nil {
		n++
	}
	return n
}

// ChangePassword re-encrypts every secret of the store from oldPassword to
// newPassword. Either all secrets are re-encrypted or none is.
//
// The password seed is re-keyed first, so a wrong oldPassword is reported
// as ErrWrongPassword before any other secret is decrypted. All new
// ciphertexts are computed before the write transaction starts. Each write
// only applies if the row still holds the ciphertext that was read,
// otherwise the whole change fails with ErrConcurrentModification.
func (s *Store) ChangePassword(oldPassword, newPassword []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(newPassword) == 0 {
		return ErrIllegalPassword
	}
	if bytes.Equal(oldPassword, newPassword) {
		return ErrSamePassword
	}

	old, err := s.collectSecrets()
	if err != nil {
		return err
	}

	rekeyed, err := s.rekeySecrets(old, oldPassword, newPassword)
	if err != nil {
		return err
	}

	if err := s.update("change password", func(tx db.DBTransaction) error {
		return putRekeyedSecrets(tx, old, rekeyed)
	}); err != nil {
		return err
	}

	logging.CPrint(logging.INFO, "password changed", logging.LogFormat{
		"secrets": old.count(),
	})
	return nil
}

func (s *Store) collectSecrets() (*secretSet, error) {
	set := &secretSet{privKeys: make(map[string]string)}
	err := s.view("collect secrets", func(tx db.ReadTransaction) error {
		keys, err := queryList(tx, func(row scanner) ([2]string, error) {
			var kv [2]string
			err := row.Scan(&kv[0], &kv[1])
			return kv, err
		}, "SELECT address, encrypt_private_key FROM addresses WHERE encrypt_private_key IS NOT NULL")
		if err != nil {
			return err
		}
		for _, kv := range keys {
			set.privKeys[kv[0]] = kv[1]
		}

		err = tx.QueryRow("SELECT encrypt_bither_password FROM hdm_bid LIMIT 1").Scan(&set.hdmPassword)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		set.seeds, err = queryList(tx, func(row scanner) (*seedSecrets, error) {
			var ss seedSecrets
			err := row.Scan(&ss.id, &ss.seed, &ss.hdSeed)
			return &ss, err
		}, "SELECT hd_seed_id, encrypt_seed, encrypt_hd_seed FROM hd_seeds WHERE encrypt_seed != ? "+
			"ORDER BY hd_seed_id", RecoverSeed)
		if err != nil {
			return err
		}

		set.passwordSeed, err = fetchPasswordSeed(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Store) rekeySecrets(old *secretSet, oldPassword, newPassword []byte) (*secretSet, error) {
	rekeyed := &secretSet{privKeys: make(map[string]string, len(old.privKeys))}

	if old.passwordSeed != nil {
		ps := NewPasswordSeed(old.passwordSeed.Address, old.passwordSeed.EncryptedSecret)
		if err := ps.ChangePassword(s.codec, oldPassword, newPassword); err != nil {
			logging.CPrint(logging.WARN, "password seed rejected old password", logging.LogFormat{
				"err": err,
			})
			return nil, errors.Wrap(ErrWrongPassword, err.Error())
		}
		rekeyed.passwordSeed = ps
	}

	rekey := func(what, enc string) (string, error) {
		newEnc, err := s.codec.ReEncrypt(enc, oldPassword, newPassword)
		if err != nil {
			logging.CPrint(logging.ERROR, "failed to re-encrypt secret", logging.LogFormat{
				"secret": what,
				"err":    err,
			})
			return "", errors.Wrapf(err, "re-encrypt %s", what)
		}
		return newEnc, nil
	}

	for addr, enc := range old.privKeys {
		newEnc, err := rekey("private key of "+addr, enc)
		if err != nil {
			return nil, err
		}
		rekeyed.privKeys[addr] = newEnc
	}

	if old.hdmPassword.Valid {
		newEnc, err := rekey("hdm password", old.hdmPassword.String)
		if err != nil {
			return nil, err
		}
		rekeyed.hdmPassword = sql.NullString{String: newEnc, Valid: true}
	}

	for _, seed := range old.seeds {
		ss := &seedSecrets{id: seed.id}
		var err error
		if ss.seed, err = rekey("hd seed", seed.seed); err != nil {
			return nil, err
		}
		if seed.hdSeed.Valid && seed.hdSeed.String != "" {
			newEnc, err := rekey("hd seed", seed.hdSeed.String)
			if err != nil {
				return nil, err
			}
			ss.hdSeed = sql.NullString{String: newEnc, Valid: true}
		} else {
			ss.hdSeed = seed.hdSeed
		}
		rekeyed.seeds = append(rekeyed.seeds, ss)
	}

	return rekeyed, nil
}

// putRekeyedSecrets writes every re-keyed ciphertext, comparing each row
// against the ciphertext it was derived from.
func putRekeyedSecrets(tx db.DBTransaction, old, rekeyed *secretSet) error {
	swap := func(what, query string, args ...interface{}) error {
		ok, err := execOne(tx, query, args...)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrap(ErrConcurrentModification, what)
		}
		return nil
	}

	addrs := make([]string, 0, len(old.privKeys))
	for addr := range old.privKeys {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		err := swap("private key of "+addr,
			"UPDATE addresses SET encrypt_private_key = ? WHERE address = ? AND encrypt_private_key = ?",
			rekeyed.privKeys[addr], addr, old.privKeys[addr])
		if err != nil {
			return err
		}
	}

	if old.hdmPassword.Valid {
		err := swap("hdm password",
			"UPDATE hdm_bid SET encrypt_bither_password = ? WHERE encrypt_bither_password = ?",
			rekeyed.hdmPassword.String, old.hdmPassword.String)
		if err != nil {
			return err
		}
	}

	for i, seed := range old.seeds {
		err := swap("hd seed",
			"UPDATE hd_seeds SET encrypt_seed = ?, encrypt_hd_seed = ? "+
				"WHERE hd_seed_id = ? AND encrypt_seed = ? AND encrypt_hd_seed IS ?",
			rekeyed.seeds[i].seed, rekeyed.seeds[i].hdSeed,
			seed.id, seed.seed, seed.hdSeed)
		if err != nil {
			return err
		}
	}

	if old.passwordSeed != nil {
		err := swap("password seed",
			"UPDATE password_seed SET password_seed = ? WHERE password_seed = ?",
			rekeyed.passwordSeed.String(), old.passwordSeed.String())
		if err != nil {
			return err
		}
	}
	return nil
}
