package secretstore

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	cache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/db"
)

// SecretCodec encrypts secrets under a password. Ciphertexts are opaque to
// the store.
type SecretCodec interface {
	Encrypt(plaintext, password []byte) (string, error)
	Decrypt(encrypted string, password []byte) ([]byte, error)
	ReEncrypt(encrypted string, oldPassword, newPassword []byte) (string, error)
}

// Store is the persistent secret store of a wallet. Every public method is
// serialized on the store mutex.
type Store struct {
	mu     sync.Mutex
	db     db.DB
	codec  SecretCodec
	params *chaincfg.Params

	now        func() time.Time
	validAddrs *cache.Cache
}

// New returns a Store over an opened database. Addresses are validated
// against params.
func New(store db.DB, codec SecretCodec, params *chaincfg.Params) (*Store, error) {
	if store == nil || codec == nil || params == nil {
		return nil, ErrNilPointer
	}
	return &Store{
		db:         store,
		codec:      codec,
		params:     params,
		now:        time.Now,
		validAddrs: cache.New(30*time.Minute, time.Hour),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ValidAddress reports whether addr is a well formed address of the store
// network.
func (s *Store) ValidAddress(addr string) bool {
	return s.validAddress(addr)
}

func (s *Store) validAddress(addr string) bool {
	if addr == "" {
		return false
	}
	if valid, ok := s.validAddrs.Get(addr); ok {
		return valid.(bool)
	}
	decoded, err := btcutil.DecodeAddress(addr, s.params)
	valid := err == nil && decoded.IsForNet(s.params)
	s.validAddrs.Set(addr, valid, cache.DefaultExpiration)
	return valid
}

func (s *Store) update(op string, f func(tx db.DBTransaction) error) error {
	err := dbError(op, db.Update(s.db, f))
	if errors.Is(err, ErrDatabase) {
		logging.CPrint(logging.ERROR, "secret store write failed", logging.LogFormat{
			"op":  op,
			"err": err,
		})
	}
	return err
}

func (s *Store) view(op string, f func(tx db.ReadTransaction) error) error {
	err := dbError(op, db.View(s.db, f))
	if errors.Is(err, ErrDatabase) {
		logging.CPrint(logging.ERROR, "secret store read failed", logging.LogFormat{
			"op":  op,
			"err": err,
		})
	}
	return err
}
