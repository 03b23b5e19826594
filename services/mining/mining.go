// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2016-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/blockchain"
	"github.com/zenoproject/zeno/core/merkle"
	s "github.com/zenoproject/zeno/core/serialization"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/params"
	"github.com/zenoproject/zeno/services/mempool"
)

const (
	// blockHeaderOverhead is the max number of bytes it takes to serialize
	// a block header and max possible transaction count.
	blockHeaderOverhead = types.MaxBlockHeaderPayload + s.MaxVarIntPayload

	// CoinbaseFlags is some extra data appended to the coinbase script
	// sig.
	CoinbaseFlags = "/zeno/"
)

// TxSource represents a source of transactions and certificates to consider
// for inclusion in new blocks.
//
// The interface contract requires that all of these methods are safe for
// concurrent access with respect to the source.
type TxSource interface {
	// LastUpdated returns the last time a transaction was added to or
	// removed from the source pool.
	LastUpdated() time.Time

	// UpdateCount returns a counter that increases monotonically with
	// every mutation of the source pool.
	UpdateCount() uint64

	// TxDescs returns a slice of mining descriptors for all the
	// transactions in the source pool.
	TxDescs() []*mempool.TxDesc

	// CertDescs returns a slice of mining descriptors for all the
	// certificates in the source pool.
	CertDescs() []*mempool.CertDesc

	// HaveTransaction returns whether or not the passed transaction hash
	// exists in the source pool.
	HaveTransaction(hash *hash.Hash) bool
}

// MinimumMedianTime returns the minimum allowed timestamp for a block
// building on the end of the provided best chain.
func MinimumMedianTime(bc *blockchain.BlockChain) time.Time {
	return bc.BestSnapshot().MedianTime.Add(time.Second)
}

// MedianAdjustedTime returns the current time adjusted to ensure it is at
// least one second after the median timestamp of the last several blocks per
// the chain consensus rules.
func MedianAdjustedTime(bc *blockchain.BlockChain, timeSource blockchain.MedianTimeSource) time.Time {
	newTimestamp := timeSource.AdjustedTime()
	minTimestamp := MinimumMedianTime(bc)
	if newTimestamp.Before(minTimestamp) {
		newTimestamp = minTimestamp
	}
	return newTimestamp
}

// StandardCoinbaseScript returns a standard script suitable for use as the
// signature script of the coinbase transaction of a new block.
func StandardCoinbaseScript(nextBlockHeight uint64, extraNonce uint64) ([]byte, error) {
	return txscript.NewScriptBuilder().AddInt64(int64(nextBlockHeight)).
		AddInt64(int64(extraNonce)).AddData([]byte(CoinbaseFlags)).
		Script()
}

// createCoinbaseTx returns a coinbase transaction paying an appropriate
// subsidy based on the passed block height to the provided address.  When
// the address is nil, the coinbase transaction will instead be redeemable by
// anyone.
//
// See the comment for NewBlockTemplate for more information about why the
// nil address handling is useful.
func createCoinbaseTx(coinbaseScript []byte, nextBlockHeight uint64,
	addr btcutil.Address, chainParams *params.Params) (*types.Tx, error) {

	tx := types.NewTransaction()
	tx.AddTxIn(&types.TxInput{
		// Coinbase transactions have no inputs, so previous outpoint
		// is zero hash and max index.
		PreviousOut: *types.NewOutPoint(&hash.Hash{},
			types.NullPrevOutIndex),
		Sequence:   types.MaxTxInSequenceNum,
		SignScript: coinbaseScript,
	})

	subsidy := blockchain.CalcBlockSubsidy(nextBlockHeight, chainParams)

	// Create the script to pay to the provided payment address if one was
	// specified.  Otherwise create a script that allows the coinbase to
	// be redeemable by anyone.
	var pkScript []byte
	var err error
	if addr != nil {
		pkScript, err = txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, err
		}
	} else {
		pkScript, err = txscript.NewScriptBuilder().
			AddOp(txscript.OP_TRUE).Script()
		if err != nil {
			return nil, err
		}
	}

	tx.AddTxOut(&types.TxOutput{
		Amount:   uint64(subsidy),
		PkScript: pkScript,
	})
	return types.NewTx(tx), nil
}

// NewBlockTemplate returns a new block template that is ready to be solved
// using the transactions and certificates from the passed source and a
// coinbase that either pays to the passed address if it is not nil, or a
// coinbase that is redeemable by anyone if the passed address is nil.  The
// nil address functionality is useful since there are cases such as the
// getBlockTemplate RPC where external mining software is responsible for
// creating their own coinbase which will replace the one generated for the
// block template.
//
// Transactions are selected by fee, highest first, until the block size
// limit from the policy is hit.  Certificates are only included from the
// sidechain activation height on; each one must reference a registered
// sidechain and validate against the registered custom field configs, and
// failures drop the certificate from the template rather than aborting the
// build.  Certificates are ordered per sidechain by descending quality.
func NewBlockTemplate(policy *Policy, chainParams *params.Params,
	bc *blockchain.BlockChain, timeSource blockchain.MedianTimeSource,
	source TxSource, payToAddress btcutil.Address) (*types.BlockTemplate, error) {

	best := bc.BestSnapshot()
	nextBlockHeight := best.Height + 1

	// Create a standard coinbase transaction paying to the provided
	// address.
	extraNonce := uint64(0)
	coinbaseScript, err := StandardCoinbaseScript(nextBlockHeight, extraNonce)
	if err != nil {
		return nil, err
	}
	coinbaseTx, err := createCoinbaseTx(coinbaseScript, nextBlockHeight,
		payToAddress, chainParams)
	if err != nil {
		return nil, err
	}

	blockTxns := []*types.Transaction{coinbaseTx.Transaction()}
	txFees := []int64{-1} // Updated once the total fee is known.
	txSigOpCounts := []int64{int64(len(coinbaseTx.Transaction().TxIn))}

	// Select transactions by fee, highest first.
	txDescs := source.TxDescs()
	sort.Slice(txDescs, func(i, j int) bool {
		return txDescs[i].Fee > txDescs[j].Fee
	})

	blockSize := uint32(blockHeaderOverhead + coinbaseTx.Transaction().SerializeSize())
	var totalFees int64
	for _, txDesc := range txDescs {
		tx := txDesc.Tx.Transaction()
		txSize := uint32(tx.SerializeSize())
		if blockSize+txSize > policy.BlockMaxSize {
			log.Trace("Skipping tx that would exceed the max block size",
				"hash", txDesc.Tx.Hash())
			continue
		}
		blockSize += txSize
		blockTxns = append(blockTxns, tx)
		txFees = append(txFees, txDesc.Fee)
		txSigOpCounts = append(txSigOpCounts, txDesc.SigOps)
		totalFees += txDesc.Fee
	}

	// Certificates enter the template only once sidechain support is
	// active for the block being built.
	var blockCerts []*types.Certificate
	var certFees []int64
	var certSigOpCounts []int64
	if chainParams.AreSidechainsSupported(nextBlockHeight) {
		certDescs := source.CertDescs()

		// Deterministic order: group by sidechain id, best quality
		// first within a group.
		sort.Slice(certDescs, func(i, j int) bool {
			ci := certDescs[i].Cert.Certificate()
			cj := certDescs[j].Cert.Certificate()
			if cmp := bytes.Compare(ci.ScID[:], cj.ScID[:]); cmp != 0 {
				return cmp < 0
			}
			return ci.Quality > cj.Quality
		})

		for _, certDesc := range certDescs {
			cert := certDesc.Cert.Certificate()
			certSize := uint32(cert.SerializeSize())
			if blockSize+certSize > policy.BlockMaxSize {
				log.Trace("Skipping cert that would exceed the max block size",
					"hash", certDesc.Cert.Hash())
				continue
			}

			reg := bc.SidechainRegistration(&cert.ScID)
			if reg == nil {
				log.Debug("Skipping certificate for unregistered sidechain",
					"hash", certDesc.Cert.Hash(), "scid", cert.ScID)
				continue
			}
			err := reg.ValidateCustomFields(
				cert.FieldElementCertificateFields,
				cert.BitVectorCertificateFields)
			if err != nil {
				log.Debug("Skipping certificate with invalid custom fields",
					"hash", certDesc.Cert.Hash(), "error", err)
				continue
			}

			blockSize += certSize
			blockCerts = append(blockCerts, cert)
			certFees = append(certFees, certDesc.Fee)
			certSigOpCounts = append(certSigOpCounts, certDesc.SigOps)
			totalFees += certDesc.Fee
		}
	}

	// Now that the actual fees are known, pay them to the coinbase output
	// and record the convention value for the coinbase fee entry.
	coinbaseTx.Transaction().TxOut[0].Amount += uint64(totalFees)

	// Calculate the required difficulty for the block and the commitment
	// roots over the selected content.
	ts := MedianAdjustedTime(bc, timeSource)
	reqDifficulty, err := bc.CalcNextRequiredDifficulty(ts)
	if err != nil {
		return nil, err
	}

	merkleRoot := merkle.CalcBlockMerkleRoot(blockTxns, blockCerts)
	commitment, err := merkle.BuildScTxsCommitment(blockCerts, bc)
	if err != nil {
		return nil, fmt.Errorf("could not build sidechain commitment: %w", err)
	}

	var block types.Block
	block.Header = types.BlockHeader{
		Version:         1,
		PrevBlock:       best.Hash,
		MerkleRoot:      merkleRoot,
		ScTxsCommitment: merkle.ScTxsCommitmentHash(commitment),
		Timestamp:       ts,
		Bits:            reqDifficulty,
	}
	block.Transactions = blockTxns
	block.Certificates = blockCerts

	// Finally, perform a full check on the created block against the
	// chain consensus rules to ensure it properly connects to the current
	// best chain with no issues.
	sblock := types.NewBlock(&block)
	sblock.SetHeight(nextBlockHeight)
	if err := bc.CheckConnectBlockTemplate(sblock); err != nil {
		return nil, err
	}

	log.Debug("Created new block template",
		"transactions", len(block.Transactions),
		"certificates", len(block.Certificates),
		"fees", totalFees, "size", blockSize, "target", reqDifficulty)

	return &types.BlockTemplate{
		Block:           &block,
		TxFees:          txFees,
		TxSigOpCounts:   txSigOpCounts,
		CertFees:        certFees,
		CertSigOpCounts: certSigOpCounts,
		Height:          nextBlockHeight,
		ValidPayAddress: payToAddress != nil,
	}, nil
}
