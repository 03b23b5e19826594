// Copyright (c) 2017-2018 The nox developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/protocol"
	"github.com/zenoproject/zeno/core/types"
)

// Checkpoint identifies a known good point in the block chain.
type Checkpoint struct {
	Height uint64
	Hash   *hash.Hash
}

// Params defines a network by its parameters. These parameters may be used by
// applications to differentiate networks as well as addresses and keys for
// one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net protocol.Network

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *types.Block

	// GenesisHash is the starting block hash.
	GenesisHash *hash.Hash

	// PowLimit defines the highest allowed proof of work value for a
	// block as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// ReduceMinDifficulty defines whether the network should reduce the
	// minimum required difficulty after a long enough period of time has
	// passed without finding a block. This is really only useful for test
	// networks and should not be set on a main network.
	ReduceMinDifficulty bool

	// MinDiffReductionTime is the amount of time after which the minimum
	// required difficulty should be reduced when a block hasn't been
	// found. NOTE: This only applies if ReduceMinDifficulty is true.
	MinDiffReductionTime time.Duration

	// GenerateSupported specifies whether or not CPU mining is allowed.
	GenerateSupported bool

	// TargetTimespan is the desired amount of time that should elapse
	// before the block difficulty requirement is examined to determine how
	// it should be changed in order to maintain the desired block
	// generation rate.
	TargetTimespan time.Duration

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// RetargetAdjustmentFactor is the adjustment factor used to limit
	// the minimum and maximum amount of adjustment that can occur between
	// difficulty retargets.
	RetargetAdjustmentFactor int64

	// CoinbaseMaturity is the number of blocks required before newly mined
	// coins can be spent.
	CoinbaseMaturity uint16

	// Subsidy parameters.
	BaseSubsidy              int64
	SubsidyReductionInterval int64

	// Checkpoints ordered from oldest to newest.
	Checkpoints []Checkpoint

	// SidechainForkHeight is the height at which sidechain support
	// activates: from this height on blocks may carry certificates and
	// the header sidechain commitment becomes meaningful.
	SidechainForkHeight uint64

	// AddressParams holds the address encoding magics (base58 prefixes
	// and bech32 HRP) used to decode payment addresses on this network.
	AddressParams *chaincfg.Params
}

// AreSidechainsSupported reports whether sidechain rules are active at the
// given height.
func (p *Params) AreSidechainsSupported(height uint64) bool {
	return height >= p.SidechainForkHeight
}
