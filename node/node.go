// Copyright (c) 2017-2018 The qitmeer developers

package node

import (
	"sync"

	bolt "github.com/coreos/bbolt"

	"github.com/zenoproject/zeno/common/roughtime"
	"github.com/zenoproject/zeno/config"
	"github.com/zenoproject/zeno/params"
	"github.com/zenoproject/zeno/rpc"
)

// Node works as a server container for all services that can be registered:
// the chain itself, the memory pool, the miner and the RPC layer.
type Node struct {
	wg   sync.WaitGroup
	quit chan struct{}
	lock sync.RWMutex

	startupTime int64

	// config
	Config *config.Config
	Params *params.Params

	// database layer
	DB *bolt.DB

	rpcServer *rpc.RpcServer

	zeno *ZenoFull

	shutdownRequestChannel chan struct{}
}

func NewNode(cfg *config.Config, database *bolt.DB, chainParams *params.Params, shutdownRequestChannel chan struct{}) (*Node, error) {
	n := Node{
		Config:                 cfg,
		DB:                     database,
		Params:                 chainParams,
		quit:                   make(chan struct{}),
		shutdownRequestChannel: shutdownRequestChannel,
	}

	full, err := newZenoFullNode(&n)
	if err != nil {
		return nil, err
	}
	n.zeno = full

	if !cfg.DisableRPC {
		server, err := rpc.NewRPCServer(cfg)
		if err != nil {
			return nil, err
		}
		if err := server.RegisterApis(full.APIs()); err != nil {
			return nil, err
		}
		n.rpcServer = server
		go func() {
			<-server.RequestedProcessShutdown()
			shutdownRequestChannel <- struct{}{}
		}()
	}
	return &n, nil
}

func (n *Node) Start() error {
	n.lock.Lock()
	defer n.lock.Unlock()
	log.Info("Starting Node")

	if err := n.zeno.Start(); err != nil {
		return err
	}

	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return err
		}
	}

	// Server startup time. Used for the uptime command for uptime calculation.
	n.startupTime = roughtime.Now().Unix()
	n.wg.Add(1)
	go n.nodeEventHandler()

	return nil
}

func (n *Node) Stop() error {
	log.Info("Stopping Server")

	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	n.zeno.Stop()

	// Signal the node quit.
	close(n.quit)
	return nil
}

// WaitForShutdown blocks until the main listener and service handlers are
// stopped.
func (n *Node) WaitForShutdown() {
	log.Info("Waiting for server shutdown")
	n.wg.Wait()
}

func (n *Node) nodeEventHandler() {
	<-n.quit
	log.Trace("node stop event (quit) received")
	n.wg.Done()
}

// GetZenoFull returns the full node service.
func (n *Node) GetZenoFull() *ZenoFull {
	return n.zeno
}

// ConnectedCount returns the number of currently connected peers.  The node
// runs without a relay layer yet, so the count is always zero.
// TODO hook this up once the p2p service lands.
func (n *Node) ConnectedCount() int32 {
	return 0
}
