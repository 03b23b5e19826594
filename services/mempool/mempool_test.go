// Copyright (c) 2017-2018 The qitmeer developers

package mempool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/blockchain"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/params"
)

type poolHarness struct {
	pool          *TxPool
	registrations map[hash.Hash]*sidechain.Registration
	height        uint64
}

func newPoolHarness(t *testing.T) *poolHarness {
	h := &poolHarness{
		registrations: make(map[hash.Hash]*sidechain.Registration),
		height:        100,
	}
	h.pool = New(&Config{
		Policy: Policy{
			MaxTxSize:     100000,
			MinRelayTxFee: DefaultMinRelayTxFee,
			MaxOrphanTxs:  100,
		},
		ChainParams: &params.PrivNetParams,
		FetchUtxoView: func(tx *types.Transaction) (*blockchain.UtxoViewpoint, error) {
			return nil, nil
		},
		BestHash:       func() *hash.Hash { return &hash.ZeroHash },
		BestHeight:     func() uint64 { return h.height },
		PastMedianTime: func() time.Time { return time.Unix(0, 0) },
		SidechainRegistration: func(scID *hash.Hash) *sidechain.Registration {
			return h.registrations[*scID]
		},
	})
	return h
}

func spendingTx(prevHash hash.Hash, prevIndex uint32) *types.Tx {
	tx := types.NewTransaction()
	tx.AddTxIn(&types.TxInput{
		PreviousOut: types.OutPoint{Hash: prevHash, Index: prevIndex},
		SignScript:  []byte{0x51},
		Sequence:    types.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&types.TxOutput{Amount: 100, PkScript: []byte{0x51}})
	return types.NewTx(tx)
}

func TestProcessTransaction(t *testing.T) {
	harness := newPoolHarness(t)
	mp := harness.pool

	var prev hash.Hash
	prev[0] = 0x01
	tx := spendingTx(prev, 0)

	assert.Equal(t, uint64(0), mp.UpdateCount())

	desc, err := mp.ProcessTransaction(tx)
	assert.NoError(t, err)
	assert.Equal(t, harness.height, desc.Height)
	assert.True(t, mp.HaveTransaction(tx.Hash()))
	assert.Equal(t, 1, mp.Count())
	assert.Equal(t, uint64(1), mp.UpdateCount())

	// Duplicate submissions are rejected.
	_, err = mp.ProcessTransaction(spendingTx(prev, 0))
	assert.Error(t, err)
	assert.IsType(t, RuleError{}, err)

	// A coinbase cannot enter the pool on its own.
	cb := spendingTx(hash.ZeroHash, types.NullPrevOutIndex)
	_, err = mp.ProcessTransaction(cb)
	assert.Error(t, err)

	// Double spends of a pooled outpoint are rejected.
	conflict := spendingTx(prev, 0)
	conflict.Tx.LockTime = 99
	_, err = mp.ProcessTransaction(conflict)
	assert.Error(t, err)

	// Removal restores the outpoint and bumps the counter.
	mp.RemoveTransaction(tx, false)
	assert.False(t, mp.HaveTransaction(tx.Hash()))
	assert.Equal(t, uint64(2), mp.UpdateCount())
	_, err = mp.ProcessTransaction(conflict)
	assert.NoError(t, err)
}

func TestProcessTransactionSizeLimit(t *testing.T) {
	harness := newPoolHarness(t)
	harness.pool.cfg.Policy.MaxTxSize = 50

	var prev hash.Hash
	prev[0] = 0x02
	tx := spendingTx(prev, 0)
	assert.True(t, int64(tx.Transaction().SerializeSize()) > 50)

	_, err := harness.pool.ProcessTransaction(tx)
	assert.Error(t, err)
}

func TestProcessCertificate(t *testing.T) {
	harness := newPoolHarness(t)
	mp := harness.pool

	var scID hash.Hash
	scID[0] = 0xaa
	harness.registrations[scID] = &sidechain.Registration{
		ID: scID,
		FieldElementConfigs: []sidechain.FieldElementCertificateFieldConfig{
			{BitSize: 8},
		},
	}

	cert := &types.Certificate{
		Version:     1,
		ScID:        scID,
		EpochNumber: 1,
		Quality:     50,
		FieldElementCertificateFields: []*sidechain.FieldElementCertificateField{
			sidechain.NewFieldElementCertificateField([]byte{0x01}),
		},
	}

	desc, err := mp.ProcessCertificate(types.NewCert(cert), 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), desc.Fee)
	assert.Equal(t, 1, mp.CertCount())
	assert.True(t, mp.HaveCertificate(types.NewCert(cert).Hash()))

	// Duplicates are rejected.
	_, err = mp.ProcessCertificate(types.NewCert(cert), 0)
	assert.Error(t, err)

	// Unknown sidechains are rejected.
	unknown := &types.Certificate{Version: 1, EpochNumber: 2}
	unknown.ScID[0] = 0xbb
	_, err = mp.ProcessCertificate(types.NewCert(unknown), 0)
	assert.Error(t, err)

	// A slot that does not match the registered config is rejected.
	bad := &types.Certificate{
		Version:     1,
		ScID:        scID,
		EpochNumber: 3,
		FieldElementCertificateFields: []*sidechain.FieldElementCertificateField{
			sidechain.NewFieldElementCertificateField([]byte{0x01, 0x02}),
		},
	}
	_, err = mp.ProcessCertificate(types.NewCert(bad), 0)
	assert.Error(t, err)
}

func TestProcessCertificateBeforeFork(t *testing.T) {
	harness := newPoolHarness(t)
	mp := harness.pool

	// TestNet activates sidechains at a later height; below it every
	// certificate is rejected no matter what it references.
	mp.cfg.ChainParams = &params.TestNetParams
	harness.height = 0

	cert := &types.Certificate{Version: 1}
	_, err := mp.ProcessCertificate(types.NewCert(cert), 0)
	assert.Error(t, err)
}

func TestPruneBlockContents(t *testing.T) {
	harness := newPoolHarness(t)
	mp := harness.pool

	var prev hash.Hash
	prev[0] = 0x03
	tx := spendingTx(prev, 0)
	_, err := mp.ProcessTransaction(tx)
	assert.NoError(t, err)

	block := &types.Block{
		Transactions: []*types.Transaction{tx.Transaction()},
	}
	mp.PruneBlockContents(block)
	assert.Equal(t, 0, mp.Count())
	assert.False(t, mp.HaveTransaction(tx.Hash()))
}
