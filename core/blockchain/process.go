// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	bolt "github.com/coreos/bbolt"

	"github.com/zenoproject/zeno/core/types"
)

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block chain.  It includes functionality such as rejecting
// duplicate blocks, ensuring blocks follow all rules, and insertion into the
// block chain along with best chain selection.
//
// When no errors occurred during processing, the first return value indicates
// whether or not the block is on the main chain and the second indicates
// whether or not the block is an orphan.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *types.SerializedBlock, flags BehaviorFlags) (bool, bool, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	blockHash := block.Hash()
	log.Trace("Processing block", "hash", blockHash)

	// The block must not already exist in the chain.
	if b.index.HaveBlock(blockHash) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return false, false, ruleError(ErrDuplicateBlock, str)
	}

	// Perform preliminary sanity checks on the block and its transactions.
	err := checkBlockSanity(block, b.timeSource, b.params, flags)
	if err != nil {
		return false, false, err
	}

	// The previous block must be known.  There is no orphan pool; the
	// caller is expected to request the parent and resubmit.
	prevHash := &block.Block().Header.PrevBlock
	prevNode := b.index.LookupNode(prevHash)
	if prevNode == nil {
		log.Info("Adding orphan block with unknown parent", "hash",
			blockHash, "parent", prevHash)
		return false, true, nil
	}
	if b.index.NodeStatus(prevNode).KnownInvalid() {
		str := fmt.Sprintf("previous block %s is known to be invalid",
			prevHash)
		return false, false, ruleError(ErrInvalidAncestorBlock, str)
	}

	// Only blocks extending the current best chain are connected.  Side
	// chain blocks are recorded in the index but do not trigger a
	// reorganization.
	node := newBlockNode(&block.Block().Header, prevNode)
	block.SetHeight(node.height)

	if !prevNode.hash.IsEqual(&b.bestNode.hash) {
		b.index.AddNode(node)
		log.Info("Block is on a side chain", "hash", blockHash,
			"height", node.height, "best", b.bestNode.hash)
		return false, false, nil
	}

	// The block connects to the tip, so run the contextual checks against
	// the tip state.
	if err := b.checkBlockContext(block, prevNode, flags); err != nil {
		node.status = statusValidateFailed
		b.index.AddNode(node)
		return false, false, err
	}

	if err := b.connectBlock(node, block); err != nil {
		node.status = statusValidateFailed
		b.index.AddNode(node)
		return false, false, err
	}

	node.status = statusDataStored | statusValid
	b.index.AddNode(node)

	log.Debug("Accepted block", "hash", blockHash, "height", node.height)

	// Notify subscribers outside the chain lock so a subscriber can call
	// back into chain queries.
	b.chainLock.Unlock()
	b.sendNotification(BlockAccepted, block)
	b.sendNotification(BlockConnected, block)
	b.chainLock.Lock()

	return true, false, nil
}

// connectBlock stores the block, advances the best chain state and applies
// the block to the utxo set.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBlock(node *blockNode, block *types.SerializedBlock) error {
	err := b.db.Update(func(dbTx *bolt.Tx) error {
		if err := dbStoreBlock(dbTx, block); err != nil {
			return err
		}
		return dbPutBestState(dbTx, &bestChainState{
			hash:   node.hash,
			height: node.height,
		})
	})
	if err != nil {
		return err
	}

	b.bestNode = node
	b.connectUtxos(block)

	numTxns := uint64(len(block.Block().Transactions))
	numCerts := uint64(len(block.Block().Certificates))
	blockSize := uint64(block.Block().SerializeSize())
	prevTotal := b.BestSnapshot().TotalTxns

	state := newBestState(node, blockSize, numTxns, numCerts,
		node.CalcPastMedianTime(), prevTotal+numTxns)
	b.stateLock.Lock()
	b.stateSnapshot = state
	b.stateLock.Unlock()
	return nil
}
