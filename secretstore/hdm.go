package secretstore

import (
	"github.com/pkg/errors"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/db"
)

// HDM addresses of a seed move through two states. PrepareHDMAddresses
// stages rows holding only the hot and cold keys. CompleteHDMAddresses sets
// the remote key and the address together, so a row never holds one
// without the other.

// PrepareHDMAddresses stages pubs for HD seed hdSeedID. The batch is
// rejected as a whole with ErrDuplicateProvisioning if any index is already
// present for the seed or repeats within the batch.
func (s *Store) PrepareHDMAddresses(hdSeedID int, pubs []*HDMPubs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{}, len(pubs))
	for _, p := range pubs {
		if p == nil {
			return ErrNilPointer
		}
		if p.Index < 0 || len(p.Hot) == 0 || len(p.Cold) == 0 {
			return errors.Wrapf(ErrInvalidPubKey, "hdm index %d", p.Index)
		}
		if p.IsCompleted() {
			return errors.Wrapf(ErrInvalidPubKey, "hdm index %d already has a remote key", p.Index)
		}
		if _, ok := seen[p.Index]; ok {
			return errors.Wrapf(ErrDuplicateProvisioning, "index %d repeated in batch", p.Index)
		}
		seen[p.Index] = struct{}{}
	}
	if len(pubs) == 0 {
		return nil
	}

	err := s.update("prepare hdm addresses", func(tx db.DBTransaction) error {
		for _, p := range pubs {
			n, err := countRows(tx,
				"SELECT count(*) FROM hdm_addresses WHERE hd_seed_id = ? AND hd_seed_index = ?",
				hdSeedID, p.Index)
			if err != nil {
				return err
			}
			if n > 0 {
				return errors.Wrapf(ErrDuplicateProvisioning, "index %d", p.Index)
			}
		}
		for _, p := range pubs {
			_, err := tx.Exec("INSERT INTO hdm_addresses "+
				"(hd_seed_id, hd_seed_index, pub_key_hot, pub_key_cold, pub_key_remote, address, is_synced) "+
				"VALUES (?, ?, ?, ?, NULL, NULL, 0)",
				hdSeedID, p.Index, encodePubKey(p.Hot), encodePubKey(p.Cold))
			if errors.Is(err, db.ErrUniqueConstraint) {
				return errors.Wrapf(ErrDuplicateProvisioning, "index %d", p.Index)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logging.CPrint(logging.WARN, "prepare hdm addresses rejected", logging.LogFormat{
			"hd_seed_id": hdSeedID,
			"count":      len(pubs),
			"err":        err,
		})
		return err
	}

	logging.CPrint(logging.INFO, "hdm addresses prepared", logging.LogFormat{
		"hd_seed_id": hdSeedID,
		"count":      len(pubs),
	})
	return nil
}

// UncompletedHDMAddressPubs returns up to limit staged pubs of hdSeedID in
// index order.
func (s *Store) UncompletedHDMAddressPubs(hdSeedID, limit int) ([]*HDMPubs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		return []*HDMPubs{}, nil
	}
	var pubs []*HDMPubs
	err := s.view("list uncompleted hdm pubs", func(tx db.ReadTransaction) error {
		var err error
		pubs, err = queryList(tx, scanHDMPubs,
			"SELECT "+hdmPubsColumns+" FROM hdm_addresses "+
				"WHERE hd_seed_id = ? AND pub_key_remote IS NULL "+
				"ORDER BY hd_seed_index ASC LIMIT ?",
			hdSeedID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if pubs == nil {
		pubs = []*HDMPubs{}
	}
	return pubs, nil
}

// UncompletedHDMAddressCount returns the number of staged rows of
// hdSeedID.
func (s *Store) UncompletedHDMAddressCount(hdSeedID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.view("count uncompleted hdm pubs", func(tx db.ReadTransaction) error {
		var err error
		n, err = countRows(tx,
			"SELECT count(*) FROM hdm_addresses WHERE hd_seed_id = ? AND pub_key_remote IS NULL",
			hdSeedID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// MaxHDMAddressPubIndex returns the highest provisioned index of hdSeedID,
// staged or completed, or -1 if there is none.
func (s *Store) MaxHDMAddressPubIndex(hdSeedID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxIndex int
	err := s.view("max hdm index", func(tx db.ReadTransaction) error {
		return tx.QueryRow("SELECT ifnull(max(hd_seed_index), -1) FROM hdm_addresses WHERE hd_seed_id = ?",
			hdSeedID).Scan(&maxIndex)
	})
	if err != nil {
		return -1, err
	}
	return maxIndex, nil
}

// CompleteHDMAddresses sets the remote key and address of staged rows of
// hdSeedID. Every entry must target a row that is still staged, otherwise
// nothing is written and ErrStaleCompletion is returned.
func (s *Store) CompleteHDMAddresses(hdSeedID int, addrs []*HDMAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{}, len(addrs))
	for _, a := range addrs {
		if err := s.checkCompleted(a); err != nil {
			return err
		}
		if _, ok := seen[a.Index]; ok {
			return errors.Wrapf(ErrStaleCompletion, "index %d repeated in batch", a.Index)
		}
		seen[a.Index] = struct{}{}
	}
	if len(addrs) == 0 {
		return nil
	}

	err := s.update("complete hdm addresses", func(tx db.DBTransaction) error {
		for _, a := range addrs {
			ok, err := execOne(tx, "UPDATE hdm_addresses SET pub_key_remote = ?, address = ? "+
				"WHERE hd_seed_id = ? AND hd_seed_index = ? "+
				"AND pub_key_remote IS NULL AND address IS NULL",
				encodePubKey(a.Remote), a.Address, hdSeedID, a.Index)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Wrapf(ErrStaleCompletion, "index %d", a.Index)
			}
		}
		return nil
	})
	if err != nil {
		logging.CPrint(logging.WARN, "complete hdm addresses rejected", logging.LogFormat{
			"hd_seed_id": hdSeedID,
			"count":      len(addrs),
			"err":        err,
		})
		return err
	}

	logging.CPrint(logging.INFO, "hdm addresses completed", logging.LogFormat{
		"hd_seed_id": hdSeedID,
		"count":      len(addrs),
	})
	return nil
}

// RecoverHDMAddresses inserts already completed addresses of hdSeedID, as
// when restoring a wallet. Colliding indexes fail the whole batch with
// ErrDuplicateProvisioning.
func (s *Store) RecoverHDMAddresses(hdSeedID int, addrs []*HDMAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{}, len(addrs))
	for _, a := range addrs {
		if err := s.checkCompleted(a); err != nil {
			return err
		}
		if a.Index < 0 || len(a.Hot) == 0 || len(a.Cold) == 0 {
			return errors.Wrapf(ErrInvalidPubKey, "hdm index %d", a.Index)
		}
		if _, ok := seen[a.Index]; ok {
			return errors.Wrapf(ErrDuplicateProvisioning, "index %d repeated in batch", a.Index)
		}
		seen[a.Index] = struct{}{}
	}
	if len(addrs) == 0 {
		return nil
	}

	err := s.update("recover hdm addresses", func(tx db.DBTransaction) error {
		for _, a := range addrs {
			_, err := tx.Exec("INSERT INTO hdm_addresses "+
				"(hd_seed_id, hd_seed_index, pub_key_hot, pub_key_cold, pub_key_remote, address, is_synced) "+
				"VALUES (?, ?, ?, ?, ?, ?, ?)",
				hdSeedID, a.Index, encodePubKey(a.Hot), encodePubKey(a.Cold),
				encodePubKey(a.Remote), a.Address, boolToInt(a.IsSynced))
			if errors.Is(err, db.ErrUniqueConstraint) {
				return errors.Wrapf(ErrDuplicateProvisioning, "index %d", a.Index)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.CPrint(logging.INFO, "hdm addresses recovered", logging.LogFormat{
		"hd_seed_id": hdSeedID,
		"count":      len(addrs),
	})
	return nil
}

// HDMAddressesInUse returns the completed addresses of hdSeedID in index
// order.
func (s *Store) HDMAddressesInUse(hdSeedID int) ([]*HDMAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var addrs []*HDMAddress
	err := s.view("list hdm addresses", func(tx db.ReadTransaction) error {
		list, err := queryList(tx, scanHDMAddress,
			"SELECT "+hdmAddressColumns+" FROM hdm_addresses "+
				"WHERE hd_seed_id = ? AND address IS NOT NULL "+
				"ORDER BY hd_seed_index ASC",
			hdSeedID)
		if err != nil {
			return err
		}
		addrs = make([]*HDMAddress, 0, len(list))
		for _, a := range list {
			if !s.validAddress(a.Address) {
				logging.CPrint(logging.WARN, "skip malformed stored hdm address", logging.LogFormat{
					"hd_seed_id": hdSeedID,
					"index":      a.Index,
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

// UpdateHDMAddressSynced sets the synced flag of the completed address at
// index of hdSeedID.
func (s *Store) UpdateHDMAddressSynced(hdSeedID, index int, synced bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update("update hdm address sync", func(tx db.DBTransaction) error {
		ok, err := execOne(tx, "UPDATE hdm_addresses SET is_synced = ? "+
			"WHERE hd_seed_id = ? AND hd_seed_index = ? AND address IS NOT NULL",
			boolToInt(synced), hdSeedID, index)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(ErrHDMAddressNotFound, "index %d", index)
		}
		return nil
	})
}

func (s *Store) checkCompleted(a *HDMAddress) error {
	if a == nil {
		return ErrNilPointer
	}
	if !a.IsCompleted() {
		return errors.Wrapf(ErrIncompleteHDMAddress, "index %d has no remote key", a.Index)
	}
	if !s.validAddress(a.Address) {
		return errors.Wrapf(ErrIncompleteHDMAddress, "index %d has no valid address", a.Index)
	}
	return nil
}
