// Copyright (c) 2017-2018 The nox developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"time"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/types"
)

// genesisCoinbaseTx is the coinbase transaction for the genesis blocks of all
// networks.
var genesisCoinbaseTx = types.Transaction{
	Version: 1,
	TxIn: []*types.TxInput{
		{
			PreviousOut: types.OutPoint{
				Hash:  hash.ZeroHash,
				Index: types.NullPrevOutIndex,
			},
			SignScript: []byte{
				0x00, 0x00, 0x04, 0x7a, 0x65, 0x6e, 0x6f,
			},
			Sequence: types.MaxTxInSequenceNum,
		},
	},
	TxOut: []*types.TxOutput{
		{
			Amount: 0x12a05f200,
			PkScript: []byte{
				0x6a, // OP_RETURN
			},
		},
	},
}

func newGenesisBlock(timestamp time.Time, bits uint32, nonce uint64) *types.Block {
	coinbase := genesisCoinbaseTx
	block := &types.Block{
		Header: types.BlockHeader{
			Version:   1,
			PrevBlock: hash.ZeroHash,
			Timestamp: timestamp,
			Bits:      bits,
			Nonce:     nonce,
		},
		Transactions: []*types.Transaction{&coinbase},
	}
	txHash := coinbase.TxHash()
	block.Header.MerkleRoot = txHash
	return block
}

// The genesis hashes are derived from the blocks instead of being pinned so
// a header layout change cannot silently disagree with them.
var (
	genesisBlock = newGenesisBlock(
		time.Unix(1561939200, 0), mainPowLimitBits, 0x18aea41a)
	genesisHash = genesisBlock.BlockHash()

	testNetGenesisBlock = newGenesisBlock(
		time.Unix(1561939200, 0), testNetPowLimitBits, 0x18aea41a)
	testNetGenesisHash = testNetGenesisBlock.BlockHash()

	privNetGenesisBlock = newGenesisBlock(
		time.Unix(1561939200, 0), privNetPowLimitBits, 0)
	privNetGenesisHash = privNetGenesisBlock.BlockHash()
)
