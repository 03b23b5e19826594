// Copyright (c) 2017-2018 The nox developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/blockchain"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/params"
)

// DefaultMinRelayTxFee is the default minimum fee in base units that is
// required for a transaction to be treated as free for relay purposes.
const DefaultMinRelayTxFee = int64(1e4)

// Policy houses the policy (configuration parameters) which is used to
// control the mempool.
type Policy struct {
	// MaxTxSize is the maximum size allowed for transactions that are
	// considered standard and will therefore be relayed and considered
	// for mining.
	MaxTxSize int64

	// MinRelayTxFee defines the minimum transaction fee in base units to
	// be considered a non-zero fee, per kilobyte.
	MinRelayTxFee int64

	// MaxOrphanTxs is the maximum number of orphan transactions that can
	// be queued.
	MaxOrphanTxs int
}

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related
	// to policy.
	Policy Policy

	// ChainParams identifies which chain parameters the pool is
	// associated with.
	ChainParams *params.Params

	// FetchUtxoView defines the function to use to fetch unspent
	// transaction output information.
	FetchUtxoView func(*types.Transaction) (*blockchain.UtxoViewpoint, error)

	// BestHash defines the function to use to access the block hash of
	// the current best chain.
	BestHash func() *hash.Hash

	// BestHeight defines the function to use to access the block height
	// of the current best chain.
	BestHeight func() uint64

	// PastMedianTime defines the function to use in order to access the
	// median time calculated from the point-of-view of the current chain
	// tip within the best chain.
	PastMedianTime func() time.Time

	// SidechainRegistration defines the function to use to resolve a
	// sidechain id to its registration when accepting certificates.
	SidechainRegistration func(*hash.Hash) *sidechain.Registration
}
