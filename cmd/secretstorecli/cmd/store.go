package cmd

import (
	"massnet.org/mass-secretstore/config"
	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore"
	"massnet.org/mass-secretstore/secretstore/crypter"
	"massnet.org/mass-secretstore/secretstore/db"
	_ "massnet.org/mass-secretstore/secretstore/db/sqlite"
)

func newCodec(cfg *config.Config) (*crypter.Crypter, error) {
	return crypter.New(cfg.Crypto.ScryptOptions())
}

// openStore opens the configured store database, creating it if create is
// set.
func openStore(cfg *config.Config, create bool) (*secretstore.Store, error) {
	params, err := config.ParamsForNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	codec, err := newCodec(cfg)
	if err != nil {
		return nil, err
	}

	open := db.OpenDB
	if create {
		open = db.CreateDB
	}
	sdb, err := open(cfg.Data.DbType, cfg.DbPath())
	if err != nil {
		logging.VPrint(logging.ERROR, "failed to open store db", logging.LogFormat{
			"path":   cfg.DbPath(),
			"create": create,
			"err":    err,
		})
		return nil, err
	}

	store, err := secretstore.New(sdb, codec, params)
	if err != nil {
		sdb.Close()
		return nil, err
	}
	return store, nil
}
