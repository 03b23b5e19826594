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

// mainPowLimit is the highest proof of work value a block can have for the
// main network. It is the value 2^224 - 1.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1))

const mainPowLimitBits = 0x1d00ffff

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         protocol.MainNet,
	DefaultPort: "8130",

	// Chain parameters
	GenesisBlock:             genesisBlock,
	GenesisHash:              &genesisHash,
	PowLimit:                 mainPowLimit,
	PowLimitBits:             mainPowLimitBits,
	ReduceMinDifficulty:      false,
	MinDiffReductionTime:     0,
	GenerateSupported:        false,
	TargetTimePerBlock:       time.Minute * 2,
	TargetTimespan:           time.Minute * 2 * 16,
	RetargetAdjustmentFactor: 4,

	CoinbaseMaturity:         100,
	BaseSubsidy:              1250000000,
	SubsidyReductionInterval: 840000,

	Checkpoints: nil,

	SidechainForkHeight: 110,

	AddressParams: &chaincfg.MainNetParams,
}
