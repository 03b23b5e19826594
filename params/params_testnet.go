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

// testNetPowLimit is the highest proof of work value a block can have for the
// test network. It is the value 2^232 - 1.
var testNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 232), big.NewInt(1))

const testNetPowLimitBits = 0x1e00ffff

// TestNetParams defines the network parameters for the test network.
var TestNetParams = Params{
	Name:        "testnet",
	Net:         protocol.TestNet,
	DefaultPort: "18130",

	// Chain parameters
	GenesisBlock:             testNetGenesisBlock,
	GenesisHash:              &testNetGenesisHash,
	PowLimit:                 testNetPowLimit,
	PowLimitBits:             testNetPowLimitBits,
	ReduceMinDifficulty:      true,
	MinDiffReductionTime:     time.Minute * 10,
	GenerateSupported:        true,
	TargetTimePerBlock:       time.Minute * 2,
	TargetTimespan:           time.Minute * 2 * 16,
	RetargetAdjustmentFactor: 4,

	CoinbaseMaturity:         100,
	BaseSubsidy:              1250000000,
	SubsidyReductionInterval: 840000,

	Checkpoints: nil,

	SidechainForkHeight: 50,

	AddressParams: &chaincfg.TestNet3Params,
}
