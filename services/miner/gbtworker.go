// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/common/marshal"
	"github.com/zenoproject/zeno/common/roughtime"
	"github.com/zenoproject/zeno/core/blockchain"
	cjson "github.com/zenoproject/zeno/core/json"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/rpc"
	"github.com/zenoproject/zeno/services/mining"
)

const (
	// gbtRegenerateSeconds is the number of seconds that must pass before
	// a new template is generated when the chain tip has not changed and
	// there have been changes to the available transactions or
	// certificates in the memory pool.
	gbtRegenerateSeconds = 5

	// gbtNonceRange is two 32-bit big-endian hexadecimal integers which
	// represent the valid ranges of nonces returned by the
	// getBlockTemplate RPC.
	gbtNonceRange = "00000000ffffffff"

	// gbtMaxTimeOffsetSeconds is how far into the future the template
	// timestamp is allowed to drift before the cached template is
	// considered unusable.
	gbtMaxTimeOffsetSeconds = 2 * 60 * 60
)

var (
	// gbtLongPollMaxWait is how long a getBlockTemplate long poll blocks
	// before checking the memory pool state again.  It is a variable so
	// tests can shorten the wait.
	gbtLongPollMaxWait = 60 * time.Second

	// gbtLongPollExtensionWait is the extension granted on every timeout
	// that found no memory pool change.
	gbtLongPollExtensionWait = 10 * time.Second

	// gbtMutableFields are the manipulations the server allows to be made
	// to block templates generated by the getBlockTemplate RPC.  The
	// certificate list is appended when sidechain support is active for
	// the template height.
	gbtMutableFields = []string{
		"time", "transactions", "prevblock",
	}

	// gbtCapabilities describes additional capabilities returned with a
	// block template generated by the getBlockTemplate RPC.
	gbtCapabilities = []string{"proposal"}
)

// gbtWorkState houses state that is used in between multiple RPC invocations
// to getBlockTemplate.
type gbtWorkState struct {
	sync.Mutex
	lastTxUpdate      time.Time
	lastTxUpdateCount uint64
	lastGenerated     time.Time
	prevHash          *hash.Hash
	minTimestamp      time.Time
	template          *types.BlockTemplate
	notifyMap         map[hash.Hash]map[uint64]chan struct{}
	timeSource        blockchain.MedianTimeSource
}

// newGbtWorkState returns a new instance of a gbtWorkState with all internal
// fields initialized and ready to use.
func newGbtWorkState(timeSource blockchain.MedianTimeSource) *gbtWorkState {
	return &gbtWorkState{
		notifyMap:  make(map[hash.Hash]map[uint64]chan struct{}),
		timeSource: timeSource,
	}
}

// encodeTemplateID encodes the passed details into an ID that can be used to
// uniquely identify a block template: the hex tip hash followed by the
// decimal memory pool mutation counter.
func encodeTemplateID(prevHash *hash.Hash, updateCount uint64) string {
	return prevHash.String() + strconv.FormatUint(updateCount, 10)
}

// decodeTemplateID decodes an ID that is used to uniquely identify a block
// template.  This is the inverse of encodeTemplateID.
func decodeTemplateID(templateID string) (*hash.Hash, uint64, error) {
	if len(templateID) <= hash.MaxHashStringSize {
		return nil, 0, fmt.Errorf("invalid longpollid format")
	}
	prevHash, err := hash.NewHashFromStr(templateID[:hash.MaxHashStringSize])
	if err != nil {
		return nil, 0, fmt.Errorf("invalid longpollid format")
	}
	updateCount, err := strconv.ParseUint(templateID[hash.MaxHashStringSize:], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid longpollid format")
	}
	return prevHash, updateCount, nil
}

// NotifyBlockConnected uses the newly-connected block to notify any long poll
// clients with a new block template when their existing block template is
// stale due to the newly connected block.
func (state *gbtWorkState) NotifyBlockConnected(blockHash *hash.Hash, updateCount uint64) {
	go func() {
		state.Lock()
		defer state.Unlock()

		state.notifyLongPollers(blockHash, updateCount)
	}()
}

// notifyLongPollers notifies any channels registered to be notified when
// block templates are stale.
//
// This function MUST be called with the state locked.
func (state *gbtWorkState) notifyLongPollers(tipHash *hash.Hash, updateCount uint64) {
	// Notify anything that is waiting for a block template update from a
	// hash which is not the hash of the tip of the best chain since their
	// work is now invalid.
	for h, updateChans := range state.notifyMap {
		if !h.IsEqual(tipHash) {
			for _, c := range updateChans {
				close(c)
			}
			delete(state.notifyMap, h)
		}
	}

	// Notify anything that is waiting for a block template update from a
	// block template generated before the memory pool mutation counter
	// advanced.
	channels, ok := state.notifyMap[*tipHash]
	if !ok {
		return
	}
	for count, c := range channels {
		if count < updateCount {
			close(c)
			delete(channels, count)
		}
	}

	// Remove the entry altogether if there are no more registered
	// channels.
	if len(channels) == 0 {
		delete(state.notifyMap, *tipHash)
	}
}

// templateUpdateChan returns a channel that will be closed once the block
// template associated with the passed previous hash and mutation counter is
// stale.  The channel is registered such that it is closed when a new block
// connects to the chain or the memory pool changes.
//
// This function MUST be called with the state locked.
func (state *gbtWorkState) templateUpdateChan(prevHash hash.Hash, updateCount uint64) chan struct{} {
	channels, ok := state.notifyMap[prevHash]
	if !ok {
		channels = make(map[uint64]chan struct{})
		state.notifyMap[prevHash] = channels
	}

	c, ok := channels[updateCount]
	if !ok {
		c = make(chan struct{})
		channels[updateCount] = c
	}
	return c
}

// waitForTemplateUpdate blocks until the passed template update channel is
// closed, the memory pool mutates away from lastUpdateCount or the server
// shuts down.  Each timed out wait re-checks the memory pool and keeps
// extending while nothing changed, so clients behind proxies that silently
// drop idle connections still get an answer once something happens.  An
// error is returned only on shutdown.
func (m *Miner) waitForTemplateUpdate(longPollChan <-chan struct{},
	lastUpdateCount uint64) error {

	timer := time.NewTimer(gbtLongPollMaxWait)
	defer timer.Stop()
	for {
		select {
		case <-m.quit:
			return rpc.RpcInternalError("Server is shutting down",
				"Long poll aborted")
		case <-longPollChan:
			return nil
		case <-timer.C:
			if m.txPool.UpdateCount() != lastUpdateCount {
				return nil
			}
			timer.Reset(gbtLongPollExtensionWait)
		}
	}
}

// updateBlockTemplate creates or updates a block template for the work state.
// A new block template will be generated when the current best block has
// changed or the transactions or certificates in the memory pool have been
// updated and it has been long enough since the last template was generated.
// Otherwise, the timestamp for the existing block template is updated.
//
// This function MUST be called with the state locked.
func (state *gbtWorkState) updateBlockTemplate(m *Miner) error {
	lastTxUpdate := m.txPool.LastUpdated()
	if lastTxUpdate.IsZero() {
		lastTxUpdate = roughtime.Now()
	}

	// Generate a new block template when the current best block has
	// changed or the transactions in the memory pool have been updated
	// and it has been at least gbtRegenerateSeconds since the last
	// template was generated.
	var targetDifficulty string
	best := m.chain.BestSnapshot()
	template := state.template
	if template == nil || state.prevHash == nil ||
		!state.prevHash.IsEqual(&best.Hash) ||
		(state.lastTxUpdate != lastTxUpdate &&
			roughtime.Now().After(state.lastGenerated.Add(time.Second*
				gbtRegenerateSeconds))) {

		// Reset the previous best hash the block template was
		// generated against so any errors below cause the next
		// invocation to try again.
		state.prevHash = nil

		// Choose a payment address at random.  The coinbase is part
		// of every template handed out.
		addrs := m.cfg.GetMiningAddrs()
		payAddr := addrs[rand.Intn(len(addrs))]

		blkTemplate, err := mining.NewBlockTemplate(m.policy,
			m.params, m.chain, m.timeSource, m.txPool, payAddr)
		if err != nil {
			return rpc.RpcInternalError(err.Error(),
				"Failed to create new block template")
		}
		template = blkTemplate
		msgBlock := template.Block
		targetDifficulty = fmt.Sprintf("%064x",
			blockchain.CompactToBig(msgBlock.Header.Bits))

		// Get the minimum allowed timestamp for the block based on the
		// median timestamp of the last several blocks per the chain
		// consensus rules.
		minTimestamp := mining.MinimumMedianTime(m.chain)

		// Update work state to ensure another block template isn't
		// generated until needed.
		state.template = template
		state.lastGenerated = roughtime.Now()
		state.lastTxUpdate = lastTxUpdate
		state.lastTxUpdateCount = m.txPool.UpdateCount()
		state.prevHash = &msgBlock.Header.PrevBlock
		state.minTimestamp = minTimestamp

		gbtTemplateCounter.Inc(1)
		log.Debug("Generated block template",
			"transactions", len(msgBlock.Transactions),
			"certificates", len(msgBlock.Certificates),
			"target", targetDifficulty,
			"merkle root", msgBlock.Header.MerkleRoot)

		// Notify any clients that are long polling about the new
		// template.
		state.notifyLongPollers(&best.Hash, state.lastTxUpdateCount)
	} else {
		// At this point, there is a saved block template and a new
		// request for a template was made, but either the available
		// transactions haven't changed or it hasn't been long enough
		// to trigger a new block template to be generated.  So, update
		// the existing block template's timestamp to the current time
		// while accounting for the median time of the past several
		// blocks per the chain consensus rules.
		msgBlock := template.Block
		msgBlock.Header.Timestamp = mining.MedianAdjustedTime(m.chain,
			state.timeSource)
	}

	return nil
}

// blockTemplateResult returns the current block template associated with the
// state as a GetBlockTemplateResult that is ready to be encoded to JSON and
// returned to the caller.
//
// This function MUST be called with the state locked.
func (state *gbtWorkState) blockTemplateResult(m *Miner, useCoinbaseValue bool, submitOld *bool) (*cjson.GetBlockTemplateResult, error) {
	// Ensure the timestamps are still in valid range for the template.
	// This should really only ever happen if the local clock is changed
	// after the template is generated, but it's important to avoid
	// serving invalid block templates.
	template := state.template
	msgBlock := template.Block
	header := &msgBlock.Header
	adjustedTime := state.timeSource.AdjustedTime()
	maxTime := adjustedTime.Add(time.Second * gbtMaxTimeOffsetSeconds)
	if header.Timestamp.After(maxTime) {
		return nil, rpc.RpcInternalError(
			fmt.Sprintf("The template time is after the maximum allowed time for a block - template time %v, maximum time %v",
				adjustedTime, maxTime), "Template time out of range")
	}

	// Convert each transaction in the block template to a template result
	// transaction.  The result does not include the coinbase, so notice
	// the adjustments to the various lengths and indices.
	numTx := len(msgBlock.Transactions)
	transactions := make([]cjson.GetBlockTemplateResultTx, 0, numTx-1)
	txIndex := make(map[hash.Hash]int64, numTx)
	for i, tx := range msgBlock.Transactions {
		txHash := tx.TxHash()
		txIndex[txHash] = int64(i)

		// Skip the coinbase transaction.
		if i == 0 {
			continue
		}

		// Create an array of 1-based indices to transactions that come
		// before this one in the transactions list which this one
		// depends on.  This is necessary since the created block must
		// ensure proper ordering of the dependencies.  A map is used
		// before creating the final array to prevent duplicate entries
		// when multiple inputs reference the same transaction.
		dependsMap := make(map[int64]struct{})
		for _, txIn := range tx.TxIn {
			if idx, ok := txIndex[txIn.PreviousOut.Hash]; ok {
				dependsMap[idx] = struct{}{}
			}
		}
		depends := make([]int64, 0, len(dependsMap))
		for idx := range dependsMap {
			depends = append(depends, idx)
		}

		// Serialize the transaction for conversion to hex.
		txHex, err := marshal.MessageToHex(tx)
		if err != nil {
			return nil, rpc.RpcInternalError(err.Error(),
				"Failed to serialize transaction")
		}

		resultTx := cjson.GetBlockTemplateResultTx{
			Data:    txHex,
			Hash:    txHash.String(),
			Depends: depends,
			Fee:     template.TxFees[i],
			SigOps:  template.TxSigOpCounts[i],
		}
		transactions = append(transactions, resultTx)
	}

	// Convert each certificate in the block template to a template result
	// certificate.  Certificates never depend on transactions in the same
	// block, so the depends list is always empty.
	certificates := make([]cjson.GetBlockTemplateResultCert, 0, len(msgBlock.Certificates))
	for i, cert := range msgBlock.Certificates {
		certHex, err := marshal.MessageToHex(cert)
		if err != nil {
			return nil, rpc.RpcInternalError(err.Error(),
				"Failed to serialize certificate")
		}

		resultCert := cjson.GetBlockTemplateResultCert{
			Data:    certHex,
			Hash:    cert.CertHash().String(),
			Depends: []int64{},
			Fee:     template.CertFees[i],
			SigOps:  template.CertSigOpCounts[i],
		}
		certificates = append(certificates, resultCert)
	}

	// The certificate list is only part of the result, and only a valid
	// mutation, when the template height has sidechain support.
	sidechainsActive := m.params.AreSidechainsSupported(template.Height)
	mutable := gbtMutableFields
	if sidechainsActive {
		mutable = append(mutable[:len(mutable):len(mutable)], "certificates")
	}

	// Generate the block template reply.  Note that following mutations
	// are implied by the included or omission of fields:
	//  Including MinTime -> time/decrement
	//  Omitting CoinbaseTxn -> coinbase, generation
	targetDifficulty := fmt.Sprintf("%064x", blockchain.CompactToBig(header.Bits))
	longPollID := encodeTemplateID(state.prevHash, state.lastTxUpdateCount)
	reply := cjson.GetBlockTemplateResult{
		Bits:            strconv.FormatInt(int64(header.Bits), 16),
		CurTime:         header.Timestamp.Unix(),
		Height:          int64(template.Height),
		PreviousHash:    header.PrevBlock.String(),
		MerkleTree:      header.MerkleRoot.String(),
		ScTxsCommitment: header.ScTxsCommitment.String(),
		SigOpLimit:      types.MaxBlockSigOps,
		SizeLimit:       types.MaxBlockPayload,
		Transactions:    transactions,
		Version:         header.Version,
		LongPollID:      longPollID,
		SubmitOld:       submitOld,
		Target:          targetDifficulty,
		MinTime:         state.minTimestamp.Unix(),
		MaxTime:         maxTime.Unix(),
		Mutable:         mutable,
		NonceRange:      gbtNonceRange,
		Capabilities:    gbtCapabilities,
	}
	if sidechainsActive {
		reply.Certificates = &certificates
	}

	if useCoinbaseValue {
		reply.CoinbaseAux = gbtCoinbaseAux
		coinbaseValue := msgBlock.Transactions[0].TxOut[0].Amount
		reply.CoinbaseValue = &coinbaseValue
	}

	// The full coinbase transaction is always handed out so external
	// miners can assemble the block without mutating the generation
	// transaction themselves.
	if !template.ValidPayAddress {
		return nil, rpc.RpcInternalError(
			"The block template has no valid payment address, configure one via --miningaddr",
			"Configuration")
	}

	tx := msgBlock.Transactions[0]
	txHex, err := marshal.MessageToHex(tx)
	if err != nil {
		return nil, rpc.RpcInternalError(err.Error(),
			"Failed to serialize transaction")
	}

	reply.CoinbaseTxn = &cjson.GetBlockTemplateResultTx{
		Data:    txHex,
		Hash:    tx.TxHash().String(),
		Depends: []int64{},
		Fee:     template.TxFees[0],
		SigOps:  template.TxSigOpCounts[0],
	}

	return &reply, nil
}
