package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/types"
)

func testTx(lockTime uint32) *types.Transaction {
	tx := types.NewTransaction()
	tx.AddTxIn(&types.TxInput{
		PreviousOut: types.OutPoint{Hash: hash.ZeroHash, Index: types.NullPrevOutIndex},
		SignScript:  []byte{0x51},
		Sequence:    types.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&types.TxOutput{Amount: 50 * 1e8, PkScript: []byte{0x51}})
	tx.LockTime = lockTime
	return tx
}

func testCert(scID byte, quality uint64) *types.Certificate {
	cert := &types.Certificate{
		Version:     1,
		EpochNumber: 3,
		Quality:     quality,
	}
	cert.ScID[0] = scID
	return cert
}

func TestBuildMerkleTreeStore(t *testing.T) {
	// No leaves commit to the zero hash.
	merkles := BuildMerkleTreeStore(nil)
	assert.Equal(t, 1, len(merkles))
	assert.True(t, merkles[0].IsEqual(&hash.ZeroHash))

	h1 := testTx(1).TxHash()
	h2 := testTx(2).TxHash()
	h3 := testTx(3).TxHash()

	// A single leaf is its own root.
	merkles = BuildMerkleTreeStore([]*hash.Hash{&h1})
	assert.True(t, merkles[len(merkles)-1].IsEqual(&h1))

	// An odd right node is paired with itself.
	merkles = BuildMerkleTreeStore([]*hash.Hash{&h1, &h2, &h3})
	h12 := HashMerkleBranches(&h1, &h2)
	h33 := HashMerkleBranches(&h3, &h3)
	want := HashMerkleBranches(h12, h33)
	assert.True(t, merkles[len(merkles)-1].IsEqual(want))
}

func TestCalcBlockMerkleRoot(t *testing.T) {
	txs := []*types.Transaction{testTx(1), testTx(2)}
	certs := []*types.Certificate{testCert(1, 10)}

	root := CalcBlockMerkleRoot(txs, certs)
	assert.False(t, root.IsEqual(&hash.ZeroHash))

	// Deterministic.
	again := CalcBlockMerkleRoot(txs, certs)
	assert.Equal(t, root, again)

	// Transaction order matters.
	swapped := CalcBlockMerkleRoot([]*types.Transaction{testTx(2), testTx(1)}, certs)
	assert.NotEqual(t, root, swapped)

	// Certificates are committed to as trailing leaves.
	noCerts := CalcBlockMerkleRoot(txs, nil)
	assert.NotEqual(t, root, noCerts)

	leaves := BlockMerkleLeaves(txs, certs)
	assert.Equal(t, 3, len(leaves))
	certHash := certs[0].CertHash()
	assert.True(t, leaves[2].IsEqual(&certHash))
}
