// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sort"
	"time"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/types"
)

// medianTimeBlocks is the number of previous blocks which should be used to
// calculate the median time used to validate block timestamps.
const medianTimeBlocks = 11

// blockStatus is a bit field representing the validation state of the block.
type blockStatus byte

const (
	// statusDataStored indicates that the block's payload is stored on
	// disk.
	statusDataStored blockStatus = 1 << iota

	// statusValid indicates that the block has been fully validated.
	statusValid

	// statusValidateFailed indicates that the block has failed validation.
	statusValidateFailed

	// statusInvalidAncestor indicates that one of the block's ancestors
	// has failed validation, thus the block is also invalid.
	statusInvalidAncestor

	// statusNone indicates that the block has no validation state flags
	// set.
	statusNone blockStatus = 0
)

// HaveData returns whether the full block data is stored in the database.
func (status blockStatus) HaveData() bool {
	return status&statusDataStored != 0
}

// KnownValid returns whether the block is known to be valid.
func (status blockStatus) KnownValid() bool {
	return status&statusValid != 0
}

// KnownInvalid returns whether the block is known to be invalid.  This may be
// because the block itself failed validation or any of its ancestors is
// invalid.
func (status blockStatus) KnownInvalid() bool {
	return status&(statusValidateFailed|statusInvalidAncestor) != 0
}

// blockNode represents a block within the block chain and is primarily used
// to aid in selecting the best chain to be the main chain.  The main chain is
// stored into the block database.
type blockNode struct {
	// parent is the parent block for this node.
	parent *blockNode

	// hash is the hash of the block this node represents.
	hash hash.Hash

	// workSum is the total amount of work in the chain up to and including
	// this node.
	workSum *big.Int

	// Some fields from block headers to aid in best chain selection and
	// reconstructing headers from memory.  These must be treated as
	// immutable and are intentionally ordered to avoid padding.
	height    uint64
	timestamp int64
	bits      uint32
	nonce     uint64

	// status is a bitfield representing the validation state of the block.
	// It is not protected by the chain lock; use the blockIndex accessors
	// instead.
	status blockStatus
}

// newBlockNode returns a new block node for the given block header and parent
// node.  workSum is calculated based on the parent, or zero for the parent of
// the genesis block.
func newBlockNode(blockHeader *types.BlockHeader, parent *blockNode) *blockNode {
	node := blockNode{
		hash:      blockHeader.BlockHash(),
		workSum:   CalcWork(blockHeader.Bits),
		timestamp: blockHeader.Timestamp.Unix(),
		bits:      blockHeader.Bits,
		nonce:     blockHeader.Nonce,
	}
	if parent != nil {
		node.parent = parent
		node.height = parent.height + 1
		node.workSum = node.workSum.Add(parent.workSum, node.workSum)
	}
	return &node
}

// Ancestor returns the ancestor block node at the provided height by
// following the chain backwards from this node.  The returned block will be
// nil when a height is requested that is after the height of the passed node.
func (node *blockNode) Ancestor(height uint64) *blockNode {
	if height > node.height {
		return nil
	}
	n := node
	for n != nil && n.height != height {
		n = n.parent
	}
	return n
}

// CalcPastMedianTime calculates the median time of the previous few blocks
// prior to, and including, the block node.
func (node *blockNode) CalcPastMedianTime() time.Time {
	// Create a slice of the previous few block timestamps used to
	// calculate the median per the number defined by the constant
	// medianTimeBlocks.
	timestamps := make([]int64, 0, medianTimeBlocks)
	iterNode := node
	for i := 0; i < medianTimeBlocks && iterNode != nil; i++ {
		timestamps = append(timestamps, iterNode.timestamp)
		iterNode = iterNode.parent
	}

	sort.Sort(int64Sorter(timestamps))

	// NOTE: The consensus rules incorporate the median of an even number
	// of block timestamps by choosing the lower of the two middle values.
	// This is the behavior of the reference implementation and changing it
	// would result in a different timestamp selection for half of the
	// blocks.
	medianTimestamp := timestamps[(len(timestamps)-1)/2]
	return time.Unix(medianTimestamp, 0)
}
