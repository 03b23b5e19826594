// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/merkle"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/params"
)

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// performing chain processing and consensus rules checks.
type BehaviorFlags uint32

const (
	// BFFastAdd may be set to indicate that several checks which are
	// known to have already passed can be avoided.
	BFFastAdd BehaviorFlags = 1 << iota

	// BFNoPoWCheck may be set to indicate the proof of work check which
	// ensures a block hashes to a value less than the required target
	// will not be performed.
	BFNoPoWCheck

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// checkProofOfWork ensures the block header bits which indicate the target
// difficulty is in min/max range and that the block hash is less than the
// target difficulty as claimed.
func checkProofOfWork(header *types.BlockHeader, chainParams *params.Params, flags BehaviorFlags) error {
	// The target difficulty must be larger than zero.
	target := CompactToBig(header.Bits)
	if target.Sign() <= 0 {
		str := fmt.Sprintf("block target difficulty of %064x is too low",
			target)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The target difficulty must be less than the maximum allowed.
	if target.Cmp(chainParams.PowLimit) > 0 {
		str := fmt.Sprintf("block target difficulty of %064x is "+
			"higher than max of %064x", target, chainParams.PowLimit)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The block hash must be less than the claimed target unless the flag
	// to avoid proof of work checks is set.
	if flags&BFNoPoWCheck != BFNoPoWCheck {
		blockHash := header.BlockHash()
		hashNum := HashToBig(&blockHash)
		if hashNum.Cmp(target) > 0 {
			str := fmt.Sprintf("block hash of %064x is higher than "+
				"expected max of %064x", hashNum, target)
			return ruleError(ErrHighHash, str)
		}
	}

	return nil
}

// checkBlockHeaderSanity performs some preliminary checks on a block header
// to ensure it is sane before continuing with processing.  These checks are
// context free.
func checkBlockHeaderSanity(header *types.BlockHeader, timeSource MedianTimeSource,
	chainParams *params.Params, flags BehaviorFlags) error {

	if err := checkProofOfWork(header, chainParams, flags); err != nil {
		return err
	}

	// A block timestamp must not have a greater precision than one second.
	if !header.Timestamp.Equal(time.Unix(header.Timestamp.Unix(), 0)) {
		str := fmt.Sprintf("block timestamp of %v has a higher "+
			"precision than one second", header.Timestamp)
		return ruleError(ErrInvalidTime, str)
	}

	// Ensure the block time is not too far in the future.
	maxTimestamp := timeSource.AdjustedTime().Add(time.Second *
		maxTimeOffsetSeconds)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	return nil
}

// checkBlockSanity performs some preliminary checks on a block to ensure it
// is sane before continuing with block processing.  These checks are context
// free.
func checkBlockSanity(block *types.SerializedBlock, timeSource MedianTimeSource,
	chainParams *params.Params, flags BehaviorFlags) error {

	msgBlock := block.Block()
	header := &msgBlock.Header
	if err := checkBlockHeaderSanity(header, timeSource, chainParams, flags); err != nil {
		return err
	}

	// A block must have at least one transaction.
	numTx := len(msgBlock.Transactions)
	if numTx == 0 {
		return ruleError(ErrNoTransactions, "block does not contain "+
			"any transactions")
	}

	// A block must not exceed the maximum allowed block payload when
	// serialized.
	serializedSize := msgBlock.SerializeSize()
	if serializedSize > types.MaxBlockPayload {
		str := fmt.Sprintf("serialized block is too big - got %d, "+
			"max %d", serializedSize, types.MaxBlockPayload)
		return ruleError(ErrBlockTooBig, str)
	}

	// The first transaction in a block must be a coinbase.
	if !msgBlock.Transactions[0].IsCoinBase() {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in "+
			"block is not a coinbase")
	}

	// A block must not have more than one coinbase.
	for i, tx := range msgBlock.Transactions[1:] {
		if tx.IsCoinBase() {
			str := fmt.Sprintf("block contains second coinbase at "+
				"index %d", i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	// Build the merkle tree over the transaction and certificate lists and
	// ensure the calculated merkle root matches the entry in the block
	// header.  This also has the effect of caching all of the hashes.
	calculatedMerkleRoot := merkle.CalcBlockMerkleRoot(
		msgBlock.Transactions, msgBlock.Certificates)
	if !header.MerkleRoot.IsEqual(&calculatedMerkleRoot) {
		str := fmt.Sprintf("block merkle root is invalid - block "+
			"header indicates %v, but calculated value is %v",
			header.MerkleRoot, calculatedMerkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	return nil
}

// checkBlockHeaderContext performs several validation checks on the block
// header which depend on its position within the block chain.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkBlockHeaderContext(header *types.BlockHeader,
	prevNode *blockNode, flags BehaviorFlags) error {

	fastAdd := flags&BFFastAdd == BFFastAdd
	if !fastAdd {
		// Ensure the difficulty specified in the block header matches
		// the calculated difficulty based on the previous block and
		// difficulty retarget rules.
		expDiff, err := b.calcNextRequiredDifficulty(prevNode,
			header.Timestamp)
		if err != nil {
			return err
		}
		if header.Bits != expDiff {
			str := fmt.Sprintf("block difficulty of %d is not the "+
				"expected value of %d", header.Bits, expDiff)
			return ruleError(ErrUnexpectedDifficulty, str)
		}

		// Ensure the timestamp for the block header is after the
		// median time of the last several blocks.
		medianTime := prevNode.CalcPastMedianTime()
		if !header.Timestamp.After(medianTime) {
			str := fmt.Sprintf("block timestamp of %v is not after "+
				"expected %v", header.Timestamp, medianTime)
			return ruleError(ErrTimeTooOld, str)
		}
	}

	return nil
}

// checkBlockContext performs several validation checks on the block which
// depend on its position within the block chain: the sidechain activation
// gate, certificate validation against the registered configs and the header
// commitment to the sidechain content.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkBlockContext(block *types.SerializedBlock,
	prevNode *blockNode, flags BehaviorFlags) error {

	header := &block.Block().Header
	if err := b.checkBlockHeaderContext(header, prevNode, flags); err != nil {
		return err
	}

	blockHeight := prevNode.height + 1
	certs := block.Block().Certificates

	if !b.params.AreSidechainsSupported(blockHeight) {
		if len(certs) > 0 {
			str := fmt.Sprintf("block at height %d carries %d "+
				"certificates before sidechain activation at %d",
				blockHeight, len(certs), b.params.SidechainForkHeight)
			return ruleError(ErrSidechainNotActive, str)
		}
		// Below activation the commitment field must be untouched.
		if !header.ScTxsCommitment.IsEqual(&hash.ZeroHash) {
			return ruleError(ErrBadScTxsCommitment, "sidechain "+
				"commitment set before sidechain activation")
		}
		return nil
	}

	// Every certificate must reference a registered sidechain and
	// validate against the registered custom field configs.
	for i, cert := range certs {
		reg := b.scRegistry.lookup(&cert.ScID)
		if reg == nil {
			str := fmt.Sprintf("certificate %d references unknown "+
				"sidechain %s", i, cert.ScID)
			return ruleError(ErrUnknownSidechain, str)
		}
		err := reg.ValidateCustomFields(
			cert.FieldElementCertificateFields,
			cert.BitVectorCertificateFields)
		if err != nil {
			str := fmt.Sprintf("certificate %d for sidechain %s: %v",
				i, cert.ScID, err)
			return ruleError(ErrBadCertificate, str)
		}
	}

	// The header must commit to the block's sidechain content.
	commitment, err := merkle.BuildScTxsCommitment(certs, b.scRegistry)
	if err != nil {
		return ruleError(ErrBadScTxsCommitment, err.Error())
	}
	expected := merkle.ScTxsCommitmentHash(commitment)
	if !header.ScTxsCommitment.IsEqual(&expected) {
		str := fmt.Sprintf("block sidechain commitment is invalid - "+
			"block header indicates %v, but calculated value is %v",
			header.ScTxsCommitment, expected)
		return ruleError(ErrBadScTxsCommitment, str)
	}

	return nil
}

// CheckConnectBlockTemplate fully validates the passed block against the
// current tip without connecting it: the previous block must be the current
// best block.  Proof of work is not checked, which makes it suitable both
// for templates that have not been solved yet and for BIP 0023 proposals.
//
// This function is safe for concurrent access.
func (b *BlockChain) CheckConnectBlockTemplate(block *types.SerializedBlock) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	// This only checks whether the block can be connected to the tip of
	// the current chain.
	tip := b.bestNode
	header := &block.Block().Header
	if !header.PrevBlock.IsEqual(&tip.hash) {
		str := fmt.Sprintf("previous block must be the current chain "+
			"tip %v, instead got %v", tip.hash, header.PrevBlock)
		return ruleError(ErrPrevBlockNotBest, str)
	}

	flags := BFNoPoWCheck
	err := checkBlockSanity(block, b.timeSource, b.params, flags)
	if err != nil {
		return err
	}
	return b.checkBlockContext(block, tip, flags)
}
