// Copyright (c) 2017-2018 The qitmeer developers

package miner

import (
	"sync"
	"sync/atomic"

	"github.com/zenoproject/zeno/config"
	"github.com/zenoproject/zeno/core/blockchain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/metrics"
	"github.com/zenoproject/zeno/params"
	"github.com/zenoproject/zeno/rpc"
	"github.com/zenoproject/zeno/services/mempool"
	"github.com/zenoproject/zeno/services/mining"
)

var (
	gbtRequestCounter   = metrics.NewCounter("miner/gbt/requests")
	gbtLongPollCounter  = metrics.NewCounter("miner/gbt/longpolls")
	gbtTemplateCounter  = metrics.NewCounter("miner/gbt/templates")
	submitAcceptCounter = metrics.NewCounter("miner/submit/accepted")
	submitRejectCounter = metrics.NewCounter("miner/submit/rejected")
)

// Miner provides the block template side of mining: it owns the shared
// getblocktemplate work state and exposes the miner RPC service.  It does not
// solve blocks itself, external mining software drives it over RPC.
type Miner struct {
	started  int32
	shutdown int32

	cfg        *config.Config
	policy     *mining.Policy
	params     *params.Params
	chain      *blockchain.BlockChain
	txPool     *mempool.TxPool
	timeSource blockchain.MedianTimeSource

	// connectedCount reports the number of currently connected peers so
	// template requests can refuse to hand out work nobody can relay.
	connectedCount func() int32

	gbtWorkState *gbtWorkState

	// submitBlockLock serializes block submissions so concurrent
	// getblocktemplate and submitblock calls observe a consistent chain
	// tip.
	submitBlockLock sync.Mutex

	// quit wakes any outstanding long poll clients on shutdown.
	quit chan struct{}
}

// NewMiner returns a new miner service bound to the provided chain, mempool
// and configuration.
func NewMiner(cfg *config.Config, policy *mining.Policy, par *params.Params,
	bc *blockchain.BlockChain, txPool *mempool.TxPool,
	timeSource blockchain.MedianTimeSource,
	connectedCount func() int32) *Miner {

	m := &Miner{
		cfg:            cfg,
		policy:         policy,
		params:         par,
		chain:          bc,
		txPool:         txPool,
		timeSource:     timeSource,
		connectedCount: connectedCount,
		quit:           make(chan struct{}),
	}
	m.gbtWorkState = newGbtWorkState(timeSource)

	bc.Subscribe(m.handleChainNotification)
	return m
}

// Start begins serving block templates.
func (m *Miner) Start() error {
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return nil
	}
	log.Info("Miner service started")
	return nil
}

// Stop wakes all outstanding long poll clients and stops the service.
func (m *Miner) Stop() {
	if !atomic.CompareAndSwapInt32(&m.shutdown, 0, 1) {
		return
	}
	close(m.quit)
	log.Info("Miner service stopped")
}

// handleChainNotification wakes template long pollers whenever a new block
// extends the main chain.
func (m *Miner) handleChainNotification(notification *blockchain.Notification) {
	switch notification.Type {
	case blockchain.BlockConnected:
		block, ok := notification.Data.(*types.SerializedBlock)
		if !ok {
			log.Warn("Chain connected notification is not a block")
			break
		}
		m.gbtWorkState.NotifyBlockConnected(block.Hash(), m.txPool.UpdateCount())
	}
}

// APIs returns the RPC services exposed by the miner.
func (m *Miner) APIs() []rpc.API {
	return []rpc.API{
		{
			NameSpace: rpc.MinerNameSpace,
			Service:   NewPublicMinerAPI(m),
			Public:    true,
		},
	}
}
