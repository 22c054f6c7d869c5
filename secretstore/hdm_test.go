package secretstore

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeedID = 1

func newTestPubs(t *testing.T, index int) *HDMPubs {
	return &HDMPubs{
		Index: index,
		Hot:   newTestKey(t).pubKey,
		Cold:  newTestKey(t).pubKey,
	}
}

func completeTestPubs(t *testing.T, pubs *HDMPubs) *HDMAddress {
	return &HDMAddress{
		HDMPubs: HDMPubs{
			Index:  pubs.Index,
			Hot:    pubs.Hot,
			Cold:   pubs.Cold,
			Remote: newTestKey(t).pubKey,
		},
		Address: newTestKey(t).address,
	}
}

func prepareTestPubs(t *testing.T, s *Store, indexes ...int) []*HDMPubs {
	pubs := make([]*HDMPubs, 0, len(indexes))
	for _, i := range indexes {
		pubs = append(pubs, newTestPubs(t, i))
	}
	require.NoError(t, s.PrepareHDMAddresses(testSeedID, pubs))
	return pubs
}

func TestPrepareHDMAddresses(t *testing.T) {
	s := newTestStore(t)

	maxIndex, err := s.MaxHDMAddressPubIndex(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, -1, maxIndex)

	pubs := prepareTestPubs(t, s, 2, 0, 1)

	n, err := s.UncompletedHDMAddressCount(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	maxIndex, err = s.MaxHDMAddressPubIndex(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, 2, maxIndex)

	staged, err := s.UncompletedHDMAddressPubs(testSeedID, 10)
	require.NoError(t, err)
	require.Len(t, staged, 3, spew.Sdump(staged))
	for i, p := range staged {
		assert.Equal(t, i, p.Index)
		assert.False(t, p.IsCompleted())
	}
	assert.Equal(t, pubs[1].Hot, staged[0].Hot)
	assert.Equal(t, pubs[1].Cold, staged[0].Cold)

	limited, err := s.UncompletedHDMAddressPubs(testSeedID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.UncompletedHDMAddressPubs(testSeedID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	// other seeds are independent
	n, err = s.UncompletedHDMAddressCount(testSeedID + 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, s.PrepareHDMAddresses(testSeedID+1, []*HDMPubs{newTestPubs(t, 0)}))

	inUse, err := s.HDMAddressesInUse(testSeedID)
	require.NoError(t, err)
	assert.Empty(t, inUse)
}

func TestPrepareHDMAddressesRejectsBatch(t *testing.T) {
	s := newTestStore(t)
	prepareTestPubs(t, s, 0, 1)

	tests := []struct {
		name    string
		indexes []int
		err     error
	}{
		{"existing index", []int{2, 1}, ErrDuplicateProvisioning},
		{"repeated in batch", []int{3, 3}, ErrDuplicateProvisioning},
		{"negative index", []int{-1}, ErrInvalidPubKey},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pubs := make([]*HDMPubs, 0, len(test.indexes))
			for _, i := range test.indexes {
				pubs = append(pubs, newTestPubs(t, i))
			}
			err := s.PrepareHDMAddresses(testSeedID, pubs)
			assert.True(t, errors.Is(err, test.err), "got %v", err)

			n, err := s.UncompletedHDMAddressCount(testSeedID)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}

	missingCold := newTestPubs(t, 5)
	missingCold.Cold = nil
	err := s.PrepareHDMAddresses(testSeedID, []*HDMPubs{missingCold})
	assert.True(t, errors.Is(err, ErrInvalidPubKey))

	withRemote := newTestPubs(t, 6)
	withRemote.Remote = newTestKey(t).pubKey
	err = s.PrepareHDMAddresses(testSeedID, []*HDMPubs{newTestPubs(t, 7), withRemote})
	assert.True(t, errors.Is(err, ErrInvalidPubKey), "got %v", err)
	n, err := s.UncompletedHDMAddressCount(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, ErrNilPointer, s.PrepareHDMAddresses(testSeedID, []*HDMPubs{nil}))
	assert.NoError(t, s.PrepareHDMAddresses(testSeedID, nil))
}

func TestCompleteHDMAddresses(t *testing.T) {
	s := newTestStore(t)
	pubs := prepareTestPubs(t, s, 0, 1, 2)

	completed := []*HDMAddress{completeTestPubs(t, pubs[2]), completeTestPubs(t, pubs[0])}
	require.NoError(t, s.CompleteHDMAddresses(testSeedID, completed))

	n, err := s.UncompletedHDMAddressCount(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	staged, err := s.UncompletedHDMAddressPubs(testSeedID, 10)
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, 1, staged[0].Index)

	inUse, err := s.HDMAddressesInUse(testSeedID)
	require.NoError(t, err)
	require.Len(t, inUse, 2, spew.Sdump(inUse))
	assert.Equal(t, completed[1], inUse[0])
	assert.Equal(t, completed[0], inUse[1])

	maxIndex, err := s.MaxHDMAddressPubIndex(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, 2, maxIndex)
}

func TestCompleteHDMAddressesIsExclusive(t *testing.T) {
	s := newTestStore(t)
	pubs := prepareTestPubs(t, s, 0, 1, 2)
	require.NoError(t, s.CompleteHDMAddresses(testSeedID, []*HDMAddress{completeTestPubs(t, pubs[0])}))

	tests := []struct {
		name  string
		batch func() []*HDMAddress
		err   error
	}{
		{
			"already completed",
			func() []*HDMAddress {
				return []*HDMAddress{completeTestPubs(t, pubs[1]), completeTestPubs(t, pubs[0])}
			},
			ErrStaleCompletion,
		}, {
			"never prepared",
			func() []*HDMAddress {
				return []*HDMAddress{completeTestPubs(t, pubs[1]), completeTestPubs(t, newTestPubs(t, 7))}
			},
			ErrStaleCompletion,
		}, {
			"repeated in batch",
			func() []*HDMAddress {
				return []*HDMAddress{completeTestPubs(t, pubs[1]), completeTestPubs(t, pubs[1])}
			},
			ErrStaleCompletion,
		}, {
			"missing remote",
			func() []*HDMAddress {
				a := completeTestPubs(t, pubs[1])
				a.Remote = nil
				return []*HDMAddress{a}
			},
			ErrIncompleteHDMAddress,
		}, {
			"invalid address",
			func() []*HDMAddress {
				a := completeTestPubs(t, pubs[1])
				a.Address = corrupt(a.Address)
				return []*HDMAddress{a}
			},
			ErrIncompleteHDMAddress,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := s.CompleteHDMAddresses(testSeedID, test.batch())
			assert.True(t, errors.Is(err, test.err), "got %v", err)

			// pubs[1] and pubs[2] must still be staged
			n, err := s.UncompletedHDMAddressCount(testSeedID)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			inUse, err := s.HDMAddressesInUse(testSeedID)
			require.NoError(t, err)
			assert.Len(t, inUse, 1)
		})
	}
}

func TestRecoverHDMAddresses(t *testing.T) {
	s := newTestStore(t)

	recovered := []*HDMAddress{
		completeTestPubs(t, newTestPubs(t, 0)),
		completeTestPubs(t, newTestPubs(t, 1)),
	}
	recovered[1].IsSynced = true
	require.NoError(t, s.RecoverHDMAddresses(testSeedID, recovered))

	inUse, err := s.HDMAddressesInUse(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, recovered, inUse)

	n, err := s.UncompletedHDMAddressCount(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// colliding with a recovered index rejects the whole batch
	batch := []*HDMAddress{
		completeTestPubs(t, newTestPubs(t, 2)),
		completeTestPubs(t, newTestPubs(t, 1)),
	}
	err = s.RecoverHDMAddresses(testSeedID, batch)
	assert.True(t, errors.Is(err, ErrDuplicateProvisioning), "got %v", err)

	// staging a recovered index is rejected too
	err = s.PrepareHDMAddresses(testSeedID, []*HDMPubs{newTestPubs(t, 0)})
	assert.True(t, errors.Is(err, ErrDuplicateProvisioning))

	maxIndex, err := s.MaxHDMAddressPubIndex(testSeedID)
	require.NoError(t, err)
	assert.Equal(t, 1, maxIndex)

	incomplete := completeTestPubs(t, newTestPubs(t, 3))
	incomplete.Remote = nil
	err = s.RecoverHDMAddresses(testSeedID, []*HDMAddress{incomplete})
	assert.True(t, errors.Is(err, ErrIncompleteHDMAddress))
}

func TestUpdateHDMAddressSynced(t *testing.T) {
	s := newTestStore(t)
	pubs := prepareTestPubs(t, s, 0, 1)
	require.NoError(t, s.CompleteHDMAddresses(testSeedID, []*HDMAddress{completeTestPubs(t, pubs[0])}))

	require.NoError(t, s.UpdateHDMAddressSynced(testSeedID, 0, true))
	inUse, err := s.HDMAddressesInUse(testSeedID)
	require.NoError(t, err)
	require.Len(t, inUse, 1)
	assert.True(t, inUse[0].IsSynced)

	err = s.UpdateHDMAddressSynced(testSeedID, 1, true)
	assert.True(t, errors.Is(err, ErrHDMAddressNotFound))
	err = s.UpdateHDMAddressSynced(testSeedID+1, 0, true)
	assert.True(t, errors.Is(err, ErrHDMAddressNotFound))
}

func TestHDMProvisioningScenario(t *testing.T) {
	s := newTestStore(t)
	first := newTestKey(t)

	encSeed, err := s.codec.Encrypt([]byte("hdm seed"), testPassword)
	require.NoError(t, err)
	seedID, err := s.AddHDSeed(encSeed, "", first.address, false, first.address)
	require.NoError(t, err)

	// provision in two rounds, picking up where the last one stopped
	for round := 0; round < 2; round++ {
		next, err := s.MaxHDMAddressPubIndex(seedID)
		require.NoError(t, err)
		batch := []*HDMPubs{newTestPubs(t, next+1), newTestPubs(t, next+2)}
		require.NoError(t, s.PrepareHDMAddresses(seedID, batch))

		staged, err := s.UncompletedHDMAddressPubs(seedID, 10)
		require.NoError(t, err)
		completed := make([]*HDMAddress, 0, len(staged))
		for _, p := range staged {
			completed = append(completed, completeTestPubs(t, p))
		}
		require.NoError(t, s.CompleteHDMAddresses(seedID, completed))
	}

	inUse, err := s.HDMAddressesInUse(seedID)
	require.NoError(t, err)
	require.Len(t, inUse, 4)
	for i, a := range inUse {
		assert.Equal(t, i, a.Index)
		assert.True(t, a.IsCompleted())
	}

	// the password change leaves the hdm addresses untouched
	require.NoError(t, s.ChangePassword(testPassword, newPassword))
	after, err := s.HDMAddressesInUse(seedID)
	require.NoError(t, err)
	assert.Equal(t, inUse, after)
	ok, err := s.CheckPassword(newPassword)
	require.NoError(t, err)
	assert.True(t, ok)
}
