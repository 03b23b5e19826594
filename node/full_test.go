// Copyright (c) 2017-2018 The qitmeer developers

package node

import (
	"path/filepath"
	"testing"

	bolt "github.com/coreos/bbolt"
	"github.com/stretchr/testify/assert"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/config"
	"github.com/zenoproject/zeno/core/blockchain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/params"
)

// TestBlockConnectedPrunesMempool verifies that a block connecting to the
// main chain evicts its transactions from the memory pool, so they are not
// selected into the next template again.
func TestBlockConnectedPrunesMempool(t *testing.T) {
	db, err := bolt.Open(filepath.Join(t.TempDir(), "blocks.db"), 0600, nil)
	assert.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{
		DisableRPC:   true,
		MaxOrphanTxs: 100,
	}
	n, err := NewNode(cfg, db, &params.PrivNetParams, make(chan struct{}, 1))
	assert.NoError(t, err)

	zm := n.GetZenoFull()
	mp := zm.GetTxMemPool()

	var prev hash.Hash
	prev[0] = 0x42
	tx := types.NewTransaction()
	tx.AddTxIn(&types.TxInput{
		PreviousOut: types.OutPoint{Hash: prev, Index: 0},
		SignScript:  []byte{0x51},
		Sequence:    types.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&types.TxOutput{Amount: 100, PkScript: []byte{0x51}})
	pooled := types.NewTx(tx)

	_, err = mp.ProcessTransaction(pooled)
	assert.NoError(t, err)
	assert.True(t, mp.HaveTransaction(pooled.Hash()))

	// A block carrying the transaction connects to the main chain.
	block := types.NewBlock(&types.Block{
		Transactions: []*types.Transaction{tx},
	})
	zm.handleNotifyMsg(&blockchain.Notification{
		Type: blockchain.BlockConnected,
		Data: block,
	})

	assert.False(t, mp.HaveTransaction(pooled.Hash()))
	assert.Equal(t, 0, mp.Count())
}
