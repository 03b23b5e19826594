// Copyright (c) 2017-2018 The nox developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/zenoproject/zeno/core/protocol"
)

// privNetPowLimit is the highest proof of work value a block can have for the
// private test network. It is the value 2^255 - 1.
var privNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

const privNetPowLimitBits = 0x207fffff

// PrivNetParams defines the network parameters for the private test network.
// This network is similar to the normal test network except it is intended
// for private use within a group of individuals doing simulation testing.
var PrivNetParams = Params{
	Name:        "privnet",
	Net:         protocol.PrivNet,
	DefaultPort: "28130",

	// Chain parameters
	GenesisBlock:             privNetGenesisBlock,
	GenesisHash:              &privNetGenesisHash,
	PowLimit:                 privNetPowLimit,
	PowLimitBits:             privNetPowLimitBits,
	ReduceMinDifficulty:      false,
	MinDiffReductionTime:     0,
	GenerateSupported:        true,
	TargetTimePerBlock:       time.Second * 30,
	TargetTimespan:           time.Second * 30 * 16,
	RetargetAdjustmentFactor: 4,

	CoinbaseMaturity:         16,
	BaseSubsidy:              1250000000,
	SubsidyReductionInterval: 128,

	Checkpoints: nil,

	SidechainForkHeight: 1,

	AddressParams: &chaincfg.RegressionNetParams,
}
