package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/core/types"
)

// registrationMap is a RegistrationView backed by a plain map.
type registrationMap map[hash.Hash]*sidechain.Registration

func (m registrationMap) SidechainRegistration(scID *hash.Hash) *sidechain.Registration {
	return m[*scID]
}

func registered(scIDs ...byte) registrationMap {
	m := make(registrationMap)
	for _, id := range scIDs {
		var scID hash.Hash
		scID[0] = id
		m[scID] = &sidechain.Registration{ID: scID}
	}
	return m
}

func TestBuildScTxsCommitmentEmpty(t *testing.T) {
	fe, err := BuildScTxsCommitment(nil, registered())
	assert.NoError(t, err)
	assert.True(t, fe.IsNull())

	// Certificates of unregistered sidechains contribute nothing.
	fe, err = BuildScTxsCommitment([]*types.Certificate{testCert(9, 1)}, registered())
	assert.NoError(t, err)
	assert.True(t, fe.IsNull())

	assert.Equal(t, hash.ZeroHash, ScTxsCommitmentHash(fe))
}

func TestBuildScTxsCommitment(t *testing.T) {
	view := registered(1, 2)
	certs := []*types.Certificate{testCert(1, 10), testCert(2, 20)}

	fe, err := BuildScTxsCommitment(certs, view)
	assert.NoError(t, err)
	assert.False(t, fe.IsNull())

	// Deterministic.
	again, err := BuildScTxsCommitment(certs, view)
	assert.NoError(t, err)
	assert.True(t, fe.IsEqual(again))

	// Grouping is per sidechain in ascending id order, so swapping
	// certificates of different sidechains does not change the commitment.
	swapped, err := BuildScTxsCommitment(
		[]*types.Certificate{testCert(2, 20), testCert(1, 10)}, view)
	assert.NoError(t, err)
	assert.True(t, fe.IsEqual(swapped))

	// Dropping a sidechain changes it.
	one, err := BuildScTxsCommitment([]*types.Certificate{testCert(1, 10)}, view)
	assert.NoError(t, err)
	assert.False(t, fe.IsEqual(one))

	// An unregistered certificate alongside registered ones is skipped.
	extra, err := BuildScTxsCommitment(
		append(certs, testCert(7, 70)), view)
	assert.NoError(t, err)
	assert.True(t, fe.IsEqual(extra))

	// The header form is the canonical encoding.
	h := ScTxsCommitmentHash(fe)
	assert.Equal(t, fe.Bytes(), h[:])
}

func TestBuildScTxsCommitmentBindsSidechainID(t *testing.T) {
	// The same certificate payload under two different sidechain ids must
	// commit differently, because the subtree root is hashed with the id.
	certA := testCert(1, 10)
	certB := testCert(2, 10)
	certB.Quality = certA.Quality
	certB.EpochNumber = certA.EpochNumber

	feA, err := BuildScTxsCommitment([]*types.Certificate{certA}, registered(1))
	assert.NoError(t, err)
	feB, err := BuildScTxsCommitment([]*types.Certificate{certB}, registered(2))
	assert.NoError(t, err)
	assert.False(t, feA.IsEqual(feB))
}
