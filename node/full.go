// Copyright (c) 2017-2018 The qitmeer developers

package node

import (
	"time"

	bolt "github.com/coreos/bbolt"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/blockchain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/rpc"
	"github.com/zenoproject/zeno/services/common/progresslog"
	"github.com/zenoproject/zeno/services/mempool"
	"github.com/zenoproject/zeno/services/miner"
	"github.com/zenoproject/zeno/services/mining"
)

// maxStandardTxSize is the maximum size allowed for transactions that are
// considered standard and will therefore be relayed and considered for
// inclusion in new block templates.
const maxStandardTxSize = 100000

// ZenoFull implements the zeno full node service.
type ZenoFull struct {
	// under node
	node *Node
	// database
	db *bolt.DB
	// the blockchain this node validates and extends
	chain *blockchain.BlockChain
	// mempool holds the txs and certificates waiting to be mined into
	// blocks.
	txMemPool *mempool.TxPool
	// miner service
	miner *miner.Miner
	// clock time service
	timeSource blockchain.MedianTimeSource
	// periodic block acceptance logging
	progressLogger *progresslog.BlockProgressLogger
}

func newZenoFullNode(node *Node) (*ZenoFull, error) {
	zm := ZenoFull{
		node:           node,
		db:             node.DB,
		timeSource:     blockchain.NewMedianTime(),
		progressLogger: progresslog.NewBlockProgressLogger("Processed", log),
	}
	cfg := node.Config

	// block-chain
	chain, err := blockchain.New(&blockchain.Config{
		DB:          node.DB,
		ChainParams: node.Params,
		TimeSource:  zm.timeSource,
	})
	if err != nil {
		return nil, err
	}
	zm.chain = chain
	chain.Subscribe(zm.handleNotifyMsg)

	// mem-pool
	txC := mempool.Config{
		Policy: mempool.Policy{
			MaxTxSize:     maxStandardTxSize,
			MinRelayTxFee: cfg.MinTxFee,
			MaxOrphanTxs:  cfg.MaxOrphanTxs,
		},
		ChainParams:   node.Params,
		FetchUtxoView: chain.FetchUtxoView,
		BestHash: func() *hash.Hash {
			best := chain.BestSnapshot()
			return &best.Hash
		},
		BestHeight: func() uint64 { return chain.BestSnapshot().Height },
		PastMedianTime: func() time.Time {
			return chain.BestSnapshot().MedianTime
		},
		SidechainRegistration: chain.SidechainRegistration,
	}
	zm.txMemPool = mempool.New(&txC)

	// Create the mining policy based on the configuration options.
	// NOTE: The miner relies on the mempool, so the mempool has to be
	// created before calling the function to create the miner.
	policy := mining.Policy{
		BlockMinSize: cfg.BlockMinSize,
		BlockMaxSize: cfg.BlockMaxSize,
		TxMinFreeFee: cfg.MinTxFee,
	}
	zm.miner = miner.NewMiner(cfg, &policy, node.Params, chain,
		zm.txMemPool, zm.timeSource, node.ConnectedCount)

	return &zm, nil
}

// handleNotifyMsg handles notifications from the blockchain.
func (zm *ZenoFull) handleNotifyMsg(notification *blockchain.Notification) {
	switch notification.Type {
	case blockchain.BlockConnected:
		block, ok := notification.Data.(*types.SerializedBlock)
		if !ok {
			break
		}

		// Everything the new block confirmed must leave the mempool
		// so it is not selected into the next template again.
		zm.txMemPool.PruneBlockContents(block.Block())
		zm.progressLogger.LogBlockHeight(block)
	}
}

func (zm *ZenoFull) Start() error {
	log.Debug("Starting zeno full node service")
	return zm.miner.Start()
}

func (zm *ZenoFull) Stop() error {
	log.Debug("Stopping zeno full node service")
	zm.miner.Stop()
	return nil
}

func (zm *ZenoFull) APIs() []rpc.API {
	apis := zm.apis()
	apis = append(apis, zm.miner.APIs()...)
	return apis
}

// GetChain returns the chain this node validates.
func (zm *ZenoFull) GetChain() *blockchain.BlockChain {
	return zm.chain
}

// GetTxMemPool returns the memory pool.
func (zm *ZenoFull) GetTxMemPool() *mempool.TxPool {
	return zm.txMemPool
}

// GetMiner returns the miner service.
func (zm *ZenoFull) GetMiner() *miner.Miner {
	return zm.miner
}
